package proxy

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"wafgate/testutils"
	"wafgate/waf"

	"github.com/stretchr/testify/assert"
)

type mockHeaderPair struct {
	k string
	v string
}

func (h *mockHeaderPair) Key() string   { return h.k }
func (h *mockHeaderPair) Value() string { return h.v }

type mockWafHTTPRequest struct {
	method  string
	uri     string
	path    string
	scheme  string
	host    string
	body    string
	headers []waf.HeaderPair
}

func (r *mockWafHTTPRequest) Method() string { return r.method }
func (r *mockWafHTTPRequest) URI() string    { return r.uri }
func (r *mockWafHTTPRequest) Path() string   { return r.path }
func (r *mockWafHTTPRequest) Scheme() string {
	if r.scheme == "" {
		return "http"
	}
	return r.scheme
}
func (r *mockWafHTTPRequest) Host() string {
	if r.host == "" {
		return "example.com"
	}
	return r.host
}
func (r *mockWafHTTPRequest) RemoteAddr() string                { return "203.0.113.9:54321" }
func (r *mockWafHTTPRequest) ClientIP() string                  { return "203.0.113.9" }
func (r *mockWafHTTPRequest) Headers() []waf.HeaderPair         { return r.headers }
func (r *mockWafHTTPRequest) QueryParams() []waf.QueryParamPair { return nil }
func (r *mockWafHTTPRequest) Body() string                      { return r.body }
func (r *mockWafHTTPRequest) Management() bool                  { return false }
func (r *mockWafHTTPRequest) TransactionID() string             { return "abc" }

func backendFromServer(t *testing.T, s *httptest.Server) waf.Backend {
	t.Helper()
	host, portStr, err := net.SplitHostPort(s.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	return waf.Backend{IPAddress: host, Port: port, IsAllowed: true}
}

func TestForwardReconstructsBackendResponse(t *testing.T) {
	assert := assert.New(t)

	var gotReq *http.Request
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer backendSrv.Close()

	f := NewForwarder(testutils.NewTestLogger(t), "wafgate")
	req := &mockWafHTTPRequest{
		method: "POST",
		uri:    "/api/things?a=1",
		path:   "/api/things",
		body:   `{"name":"x"}`,
		headers: []waf.HeaderPair{
			&mockHeaderPair{"Content-Type", "application/json"},
			&mockHeaderPair{"Connection", "keep-alive"},
			&mockHeaderPair{"X-Custom", "yes"},
		},
	}

	resp, err := f.Forward(context.Background(), req, "shop", backendFromServer(t, backendSrv))

	assert.Nil(err)
	assert.Equal(http.StatusCreated, resp.StatusCode)
	assert.Equal(`{"ok":true}`, string(resp.Body))
	assert.Equal("application/json", resp.Headers.Get("Content-Type"))
	// Hop-by-hop response headers are stripped.
	assert.Equal("", resp.Headers.Get("Keep-Alive"))

	assert.NotNil(gotReq)
	assert.Equal("/api/things", gotReq.URL.Path)
	assert.Equal("a=1", gotReq.URL.RawQuery)
	assert.Equal("yes", gotReq.Header.Get("X-Custom"))
	assert.Equal("203.0.113.9", gotReq.Header.Get("X-Forwarded-For"))
	assert.Equal("203.0.113.9", gotReq.Header.Get("X-Real-IP"))
	assert.Equal("http", gotReq.Header.Get("X-Forwarded-Proto"))
	assert.Equal("example.com", gotReq.Header.Get("X-Forwarded-Host"))
	assert.Equal("wafgate", gotReq.Header.Get("X-Wafgate"))
	assert.Equal("shop", gotReq.Header.Get("X-Wafgate-Site"))
	assert.Equal("example.com", gotReq.Host)
}

func TestForwardAppendsToExistingXForwardedFor(t *testing.T) {
	assert := assert.New(t)

	var gotXFF string
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotXFF = r.Header.Get("X-Forwarded-For")
	}))
	defer backendSrv.Close()

	f := NewForwarder(testutils.NewTestLogger(t), "wafgate")
	req := &mockWafHTTPRequest{
		method:  "GET",
		uri:     "/",
		path:    "/",
		headers: []waf.HeaderPair{&mockHeaderPair{"X-Forwarded-For", "198.51.100.7"}},
	}

	_, err := f.Forward(context.Background(), req, "shop", backendFromServer(t, backendSrv))

	assert.Nil(err)
	assert.Equal("198.51.100.7, 203.0.113.9", gotXFF)
}

func TestForwardedProtoReflectsInboundScheme(t *testing.T) {
	assert := assert.New(t)

	var gotProto string
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProto = r.Header.Get("X-Forwarded-Proto")
	}))
	defer backendSrv.Close()

	f := NewForwarder(testutils.NewTestLogger(t), "wafgate")
	req := &mockWafHTTPRequest{method: "GET", uri: "/", path: "/", scheme: "https"}

	// The client spoke https to the gateway; the backend leg is plain http
	// but X-Forwarded-Proto must report the inbound protocol.
	_, err := f.Forward(context.Background(), req, "shop", backendFromServer(t, backendSrv))

	assert.Nil(err)
	assert.Equal("https", gotProto)
}

func TestForwardRejectsUnsupportedMethodWithoutBackendContact(t *testing.T) {
	assert := assert.New(t)

	backendCalled := false
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalled = true
	}))
	defer backendSrv.Close()

	f := NewForwarder(testutils.NewTestLogger(t), "wafgate")
	req := &mockWafHTTPRequest{method: "TRACE", uri: "/", path: "/"}

	resp, err := f.Forward(context.Background(), req, "shop", backendFromServer(t, backendSrv))

	assert.Nil(err)
	assert.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
	assert.False(backendCalled)
}

func TestForwardTransportFailureIsGatewayError(t *testing.T) {
	assert := assert.New(t)

	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend := backendFromServer(t, backendSrv)
	backendSrv.Close()

	f := NewForwarder(testutils.NewTestLogger(t), "wafgate")
	req := &mockWafHTTPRequest{method: "GET", uri: "/", path: "/"}

	resp, err := f.Forward(context.Background(), req, "shop", backend)

	assert.Nil(resp)
	assert.NotNil(err)
	gwErr, ok := err.(*waf.GatewayError)
	assert.True(ok)
	assert.Equal(backend.Key(), gwErr.Backend)
}
