// Package proxy forwards allowed requests to a selected backend and
// reconstructs the backend's response.
package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"wafgate/waf"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds the whole outbound call, including reading the
// response body. Timeouts are reported as gateway errors.
const DefaultTimeout = 30 * time.Second

// Hop-by-hop headers are meaningful only for a single transport leg and are
// stripped in both directions.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodPatch:   true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

type forwarderImpl struct {
	logger zerolog.Logger
	client *http.Client
	scheme string
	marker string
}

// Option configures a Forwarder.
type Option func(*forwarderImpl)

// WithTimeout overrides the default outbound timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *forwarderImpl) { f.client.Timeout = d }
}

// WithScheme sets the scheme used towards backends (default "http").
func WithScheme(scheme string) Option {
	return func(f *forwarderImpl) { f.scheme = scheme }
}

// NewForwarder creates a waf.Forwarder. The marker value is sent to backends
// in the X-Wafgate header so they can identify gateway traffic.
func NewForwarder(logger zerolog.Logger, marker string, options ...Option) waf.Forwarder {
	f := &forwarderImpl{
		logger: logger,
		client: &http.Client{
			Timeout: DefaultTimeout,
			// The gateway relays redirects to the client rather than chasing them.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		scheme: "http",
		marker: "wafgate",
	}
	if marker != "" {
		f.marker = marker
	}
	for _, o := range options {
		o(f)
	}
	return f
}

// Forward sends the request to the backend and reconstructs the response.
// Unsupported methods get a 405 without contacting the backend. Transport
// failures come back as *waf.GatewayError.
func (f *forwarderImpl) Forward(ctx context.Context, req waf.HTTPRequest, site string, backend waf.Backend) (resp *waf.BackendResponse, err error) {
	if !supportedMethods[strings.ToUpper(req.Method())] {
		resp = &waf.BackendResponse{
			StatusCode: http.StatusMethodNotAllowed,
			Headers:    http.Header{"Allow": []string{"GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS"}},
			Body:       []byte("405 method not allowed\n"),
		}
		return
	}

	target := f.targetURL(req, backend)

	var bodyReader io.Reader
	if req.Body() != "" {
		bodyReader = bytes.NewReader([]byte(req.Body()))
	}

	outReq, err := http.NewRequest(strings.ToUpper(req.Method()), target, bodyReader)
	if err != nil {
		err = &waf.GatewayError{Backend: backend.Key(), Err: err}
		return
	}
	outReq = outReq.WithContext(ctx)

	f.copyRequestHeaders(req, site, outReq)

	f.logger.Debug().Str("txid", req.TransactionID()).Str("target", target).Msg("Forwarding request")

	backendResp, err := f.client.Do(outReq)
	if err != nil {
		err = &waf.GatewayError{Backend: backend.Key(), Err: err}
		return
	}
	defer backendResp.Body.Close()

	body, err := io.ReadAll(backendResp.Body)
	if err != nil {
		err = &waf.GatewayError{Backend: backend.Key(), Err: err}
		return
	}

	headers := http.Header{}
	for k, vv := range backendResp.Header {
		for _, v := range vv {
			headers.Add(k, v)
		}
	}
	removeHopByHopHeaders(headers)

	resp = &waf.BackendResponse{
		StatusCode: backendResp.StatusCode,
		Headers:    headers,
		Body:       body,
	}
	return
}

func (f *forwarderImpl) targetURL(req waf.HTTPRequest, backend waf.Backend) string {
	var b strings.Builder
	b.WriteString(f.scheme)
	b.WriteString("://")
	b.WriteString(backend.Key())
	b.WriteString(req.Path())

	if i := strings.IndexByte(req.URI(), '?'); i >= 0 {
		b.WriteString(req.URI()[i:])
	}

	return b.String()
}

func (f *forwarderImpl) copyRequestHeaders(req waf.HTTPRequest, site string, outReq *http.Request) {
	for _, h := range req.Headers() {
		outReq.Header.Add(h.Key(), h.Value())
	}
	removeHopByHopHeaders(outReq.Header)

	// The backend sees the original client, protocol and host through the
	// standard forwarding headers.
	clientIP := req.ClientIP()
	if prior := outReq.Header.Get("X-Forwarded-For"); prior != "" {
		outReq.Header.Set("X-Forwarded-For", prior+", "+clientIP)
	} else {
		outReq.Header.Set("X-Forwarded-For", clientIP)
	}
	outReq.Header.Set("X-Forwarded-Proto", req.Scheme())
	outReq.Header.Set("X-Forwarded-Host", req.Host())
	outReq.Header.Set("X-Real-IP", clientIP)
	outReq.Header.Set("X-Wafgate", f.marker)
	outReq.Header.Set("X-Wafgate-Site", site)

	outReq.Host = req.Host()
}

func removeHopByHopHeaders(h http.Header) {
	// Headers named by the Connection header are also hop-by-hop.
	for _, name := range h.Values("Connection") {
		for _, n := range strings.Split(name, ",") {
			if n = strings.TrimSpace(n); n != "" {
				h.Del(n)
			}
		}
	}

	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}
