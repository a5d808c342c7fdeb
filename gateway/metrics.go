package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the gateway's per-site request counters.
type Metrics struct {
	Requests      *prometheus.CounterVec
	Blocked       *prometheus.CounterVec
	Logged        *prometheus.CounterVec
	Forwarded     *prometheus.CounterVec
	GatewayErrors *prometheus.CounterVec
}

// NewMetrics creates the gateway metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"site"}

	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wafgate_requests_total",
			Help: "Requests that matched an active site and entered the pipeline.",
		}, labels),
		Blocked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wafgate_blocked_total",
			Help: "Requests blocked by a rule match or an active timed IP ban.",
		}, labels),
		Logged: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wafgate_logged_total",
			Help: "Rule matches recorded on log-only sites; the request was still forwarded.",
		}, labels),
		Forwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wafgate_forwarded_total",
			Help: "Requests successfully forwarded to a backend.",
		}, labels),
		GatewayErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wafgate_gateway_errors_total",
			Help: "Forwarding attempts that failed with a transport error.",
		}, labels),
	}
}
