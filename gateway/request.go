package gateway

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"wafgate/waf"

	"github.com/google/uuid"
)

type headerPair struct {
	key   string
	value string
}

func (h headerPair) Key() string   { return h.key }
func (h headerPair) Value() string { return h.value }

type queryParamPair struct {
	key   string
	value string
}

func (p queryParamPair) Key() string   { return p.key }
func (p queryParamPair) Value() string { return p.value }

// requestSnapshot is the read-only waf.HTTPRequest built once per inbound
// request. The body is fully read here so every consumer sees the same bytes.
type requestSnapshot struct {
	method      string
	uri         string
	path        string
	scheme      string
	host        string
	remoteAddr  string
	clientIP    string
	body        string
	headers     []waf.HeaderPair
	queryParams []waf.QueryParamPair
	management  bool
	txID        string
}

func (r *requestSnapshot) Method() string                    { return r.method }
func (r *requestSnapshot) URI() string                       { return r.uri }
func (r *requestSnapshot) Path() string                      { return r.path }
func (r *requestSnapshot) Scheme() string                    { return r.scheme }
func (r *requestSnapshot) Host() string                      { return r.host }
func (r *requestSnapshot) RemoteAddr() string                { return r.remoteAddr }
func (r *requestSnapshot) ClientIP() string                  { return r.clientIP }
func (r *requestSnapshot) Headers() []waf.HeaderPair         { return r.headers }
func (r *requestSnapshot) QueryParams() []waf.QueryParamPair { return r.queryParams }
func (r *requestSnapshot) Body() string                      { return r.body }
func (r *requestSnapshot) Management() bool                  { return r.management }
func (r *requestSnapshot) TransactionID() string             { return r.txID }

func newRequestSnapshot(r *http.Request, maxBodyBytes int64, management bool) (*requestSnapshot, error) {
	s := &requestSnapshot{
		method:     r.Method,
		uri:        r.RequestURI,
		scheme:     inboundScheme(r),
		host:       hostOnly(r.Host),
		remoteAddr: r.RemoteAddr,
		management: management,
		txID:       uuid.New().String(),
	}
	if s.uri == "" {
		s.uri = r.URL.RequestURI()
	}
	if r.URL != nil {
		s.path = r.URL.Path
	}

	for k, vv := range r.Header {
		for _, v := range vv {
			s.headers = append(s.headers, headerPair{key: k, value: v})
		}
	}

	s.clientIP = resolveClientIP(r)
	s.queryParams = parseQueryParams(r.URL.RawQuery)

	if r.Body != nil {
		bb, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			return nil, err
		}
		if int64(len(bb)) > maxBodyBytes {
			return nil, errBodyTooLarge
		}
		s.body = string(bb)
	}

	return s, nil
}

// resolveClientIP prefers the first X-Forwarded-For entry, then X-Real-IP,
// then the direct socket address.
func resolveClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.SplitN(xff, ",", 2)[0]
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	return hostOnly(r.RemoteAddr)
}

func inboundScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

// parseQueryParams decodes the raw query preserving parameter order and
// duplicates, both of which matter for scanning.
func parseQueryParams(rawQuery string) (params []waf.QueryParamPair) {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}

		key, value := pair, ""
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key, value = pair[:i], pair[i+1:]
		}

		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}

		params = append(params, queryParamPair{key: key, value: value})
	}
	return
}
