package waf

import (
	"context"
	"fmt"
	"net/http"
)

// BackendResponse is the reconstructed response from a backend, with
// hop-by-hop headers already removed.
type BackendResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// GatewayError wraps a transport failure while contacting a backend. It maps
// to a 502 towards the client.
type GatewayError struct {
	Backend string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("backend %v unreachable: %v", e.Backend, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Forwarder builds and sends the outbound request to a selected backend and
// reconstructs the response. The site name is sent to the backend in a marker
// header. Transport failures come back as *GatewayError; raw transport errors
// never escape to the caller.
type Forwarder interface {
	Forward(ctx context.Context, req HTTPRequest, site string, backend Backend) (*BackendResponse, error)
}
