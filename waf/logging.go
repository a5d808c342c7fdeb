package waf

import "time"

// ForwardResult describes the outcome of forwarding a request to a backend.
type ForwardResult struct {
	Backend    string
	StatusCode int
	Duration   time.Duration
}

// ResultsLogger is where the WAF writes the high level outcome of each
// request for persistence. It is fire-and-forget: implementations must never
// let a recording failure affect the response sent to the client.
type ResultsLogger interface {
	// RequestBlocked records a terminal block, whether from a rule match or
	// an active timed IP ban.
	RequestBlocked(req HTTPRequest, match RuleMatch)

	// RuleMatchLogged records a rule match on a site whose policy is
	// log-only; the request was still forwarded.
	RuleMatchLogged(req HTTPRequest, match RuleMatch)

	// RequestForwarded records a completed forward to a backend.
	RequestForwarded(req HTTPRequest, result ForwardResult)

	// GatewayUnreachable records a transport failure towards a backend.
	GatewayUnreachable(req HTTPRequest, backend string, err error)
}
