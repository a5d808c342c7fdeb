package waf

// HeaderPair represents a header line in an HTTP request.
type HeaderPair interface {
	Key() string
	Value() string
}

// QueryParamPair represents one query string parameter, in the order it
// appeared on the request URI.
type QueryParamPair interface {
	Key() string
	Value() string
}

// HTTPRequest is a read-only snapshot of an inbound HTTP request to be
// evaluated by the WAF. It is built once per request and safe to share.
type HTTPRequest interface {
	Method() string
	URI() string
	Path() string
	// Scheme is the protocol the client used on the inbound leg, "http" or
	// "https".
	Scheme() string
	Host() string
	RemoteAddr() string
	ClientIP() string
	Headers() []HeaderPair
	QueryParams() []QueryParamPair
	Body() string
	Management() bool
	TransactionID() string
}
