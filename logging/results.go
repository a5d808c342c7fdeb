// Package logging records the final outcome of each request as structured
// log events. It is the in-process implementation of the outcome recorder
// boundary; a persistence-backed recorder can replace it without touching the
// pipeline.
package logging

import (
	"wafgate/waf"

	"github.com/rs/zerolog"
)

// NewZerologResultsLogger creates a waf.ResultsLogger that writes outcome
// records to the given zerolog logger. Recording never fails the request.
func NewZerologResultsLogger(logger zerolog.Logger) waf.ResultsLogger {
	return &zerologResultsLogger{logger: logger}
}

type zerologResultsLogger struct {
	logger zerolog.Logger
}

func (l *zerologResultsLogger) RequestBlocked(req waf.HTTPRequest, match waf.RuleMatch) {
	l.outcomeEvent(req, "blocked").
		Str("rule", match.RuleName).
		Str("threatType", match.ThreatType).
		Str("severity", match.Severity.String()).
		Str("details", match.Details).
		Msg("Request blocked")
}

func (l *zerologResultsLogger) RuleMatchLogged(req waf.HTTPRequest, match waf.RuleMatch) {
	l.outcomeEvent(req, "logged").
		Str("rule", match.RuleName).
		Str("threatType", match.ThreatType).
		Str("severity", match.Severity.String()).
		Str("details", match.Details).
		Msg("Rule match logged, request forwarded")
}

func (l *zerologResultsLogger) RequestForwarded(req waf.HTTPRequest, result waf.ForwardResult) {
	l.outcomeEvent(req, "forwarded").
		Str("backend", result.Backend).
		Int("status", result.StatusCode).
		Dur("duration", result.Duration).
		Msg("Request forwarded")
}

func (l *zerologResultsLogger) GatewayUnreachable(req waf.HTTPRequest, backend string, err error) {
	l.outcomeEvent(req, "gateway_error").
		Str("backend", backend).
		Err(err).
		Msg("Backend unreachable")
}

func (l *zerologResultsLogger) outcomeEvent(req waf.HTTPRequest, outcome string) *zerolog.Event {
	return l.logger.Info().
		Str("txid", req.TransactionID()).
		Str("outcome", outcome).
		Str("method", req.Method()).
		Str("host", req.Host()).
		Str("uri", req.URI()).
		Str("clientIp", req.ClientIP())
}
