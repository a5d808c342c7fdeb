// Package gateway is the request-handling entry point: it runs the decision
// pipeline over every inbound request and forwards allowed traffic to a
// load-balanced backend.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wafgate/waf"

	"github.com/rs/zerolog"
)

var errBodyTooLarge = errors.New("request body exceeds the configured limit")

// Config holds the gateway's own settings; per-site behavior comes from the
// site resolver.
type Config struct {
	// SkipPathPrefixes are admin/static path prefixes that bypass the whole
	// pipeline.
	SkipPathPrefixes []string

	// StoreTimeout bounds the timed-block store lookup. The store failing or
	// timing out never blocks the request.
	StoreTimeout time.Duration

	// MaxBodyBytes caps how much request body is buffered for scanning and
	// forwarding. Requests with larger bodies get a 413.
	MaxBodyBytes int64

	// ManagementHeader and ManagementToken flag inbound management traffic:
	// a request carrying this header with exactly this value is marked as a
	// management request. Both empty disables the flagging entirely.
	ManagementHeader string
	ManagementToken  string
}

const (
	defaultStoreTimeout = 500 * time.Millisecond
	defaultMaxBodyBytes = 128 * 1024
)

// Gateway wires the rule engines, timed-block store, backend selector and
// forwarder into one http.Handler.
type Gateway struct {
	logger     zerolog.Logger
	config     Config
	resolver   waf.SiteResolver
	blockStore waf.TimedBlockStore
	engines    map[waf.TemplateType]waf.RuleEngine
	selector   waf.BackendSelector
	forwarder  waf.Forwarder
	results    waf.ResultsLogger
	metrics    *Metrics

	// fallback handles requests the pipeline passes through without
	// forwarding: unknown hosts, skip paths, sites with no allowed backend.
	// A nil fallback leaves the response untouched.
	fallback http.Handler
}

// New creates a Gateway. Both rule engines are built up front so that
// per-request evaluation never compiles anything.
func New(logger zerolog.Logger, config Config, ref waf.RuleEngineFactory, resolver waf.SiteResolver, blockStore waf.TimedBlockStore, selector waf.BackendSelector, forwarder waf.Forwarder, results waf.ResultsLogger, metrics *Metrics, fallback http.Handler) (g *Gateway, err error) {
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = defaultStoreTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaultMaxBodyBytes
	}

	engines := make(map[waf.TemplateType]waf.RuleEngine)
	for _, t := range []waf.TemplateType{waf.TemplateBasic, waf.TemplateAdvanced} {
		engines[t], err = ref.NewEngine(t)
		if err != nil {
			err = fmt.Errorf("failed to create %v rule engine: %v", t, err)
			return
		}
	}

	g = &Gateway{
		logger:     logger,
		config:     config,
		resolver:   resolver,
		blockStore: blockStore,
		engines:    engines,
		selector:   selector,
		forwarder:  forwarder,
		results:    results,
		metrics:    metrics,
		fallback:   fallback,
	}
	return
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := newRequestSnapshot(r, g.config.MaxBodyBytes, g.isManagement(r))
	if err != nil {
		if err == errBodyTooLarge {
			http.Error(w, "413 request entity too large", http.StatusRequestEntityTooLarge)
			return
		}
		g.logger.Error().Err(err).Msg("Failed to read request")
		http.Error(w, "400 bad request", http.StatusBadRequest)
		return
	}

	logger := g.logger.With().Str("txid", req.TransactionID()).Str("host", req.Host()).Str("uri", req.URI()).Logger()

	if g.isSkipPath(req.Path()) {
		logger.Debug().Msg("Path in skip list, bypassing pipeline")
		g.passthrough(w, r, req)
		return
	}

	site, err := g.resolver.LookupActiveSiteByHost(req.Host())
	if err != nil {
		logger.Error().Err(err).Msg("Site resolver failed, passing request through")
		g.passthrough(w, r, req)
		return
	}
	if site == nil {
		logger.Debug().Msg("No active site for host")
		g.passthrough(w, r, req)
		return
	}

	logger = logger.With().Str("site", site.Name).Logger()
	g.metrics.Requests.WithLabelValues(site.Name).Inc()

	if entry := g.findActiveBan(logger, r, site, req); entry != nil {
		match := waf.RuleMatch{
			RuleName:   "timed-ip-block",
			ThreatType: fmt.Sprintf("blocked_ip_level_%d", entry.EscalationLevel),
			Severity:   waf.ThreatHigh,
			Details:    entry.Reason,
		}
		g.block(w, logger, site, req, match)
		return
	}

	verdict, match := g.engineFor(site.Policy.TemplateType).EvalRequest(logger, req)

	if verdict == waf.Block && match != nil {
		bypass := site.Policy.ManagementBypass && req.Management()
		if site.Policy.ActionType == waf.ActionBlock && !bypass {
			g.block(w, logger, site, req, *match)
			return
		}

		// Log-only policy (or management bypass): record the match and let
		// the request proceed.
		logger.Info().Str("rule", match.RuleName).Str("severity", match.Severity.String()).Msg("Rule matched on log-only request")
		g.results.RuleMatchLogged(req, *match)
		g.metrics.Logged.WithLabelValues(site.Name).Inc()
	}

	g.forward(w, r, logger, site, req)
}

// findActiveBan consults the timed-block store, failing open: a store error
// or timeout is logged and treated as "no active ban".
func (g *Gateway) findActiveBan(logger zerolog.Logger, r *http.Request, site *waf.SiteConfig, req waf.HTTPRequest) *waf.BlockedIPEntry {
	ctx, cancel := context.WithTimeout(r.Context(), g.config.StoreTimeout)
	defer cancel()

	entry, err := g.blockStore.FindActiveBan(ctx, site.Name, req.ClientIP())
	if err != nil {
		logger.Warn().Err(err).Msg("Timed-block store unavailable, failing open")
		return nil
	}
	return entry
}

func (g *Gateway) forward(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, site *waf.SiteConfig, req waf.HTTPRequest) {
	backend := g.selector.Select(site, req.ClientIP())
	if backend == nil {
		logger.Warn().Msg("No allowed backend for site, passing request through")
		g.passthrough(w, r, req)
		return
	}
	defer g.selector.Release(site, *backend)

	startTime := time.Now()
	resp, err := g.forwarder.Forward(r.Context(), req, site.Name, *backend)
	if err != nil {
		logger.Error().Err(err).Str("backend", backend.Key()).Msg("Backend unreachable")
		g.results.GatewayUnreachable(req, backend.Key(), err)
		g.metrics.GatewayErrors.WithLabelValues(site.Name).Inc()
		http.Error(w, fmt.Sprintf("502 bad gateway: %v", err), http.StatusBadGateway)
		return
	}

	for k, vv := range resp.Headers {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)

	g.results.RequestForwarded(req, waf.ForwardResult{
		Backend:    backend.Key(),
		StatusCode: resp.StatusCode,
		Duration:   time.Since(startTime),
	})
	g.metrics.Forwarded.WithLabelValues(site.Name).Inc()
}

func (g *Gateway) block(w http.ResponseWriter, logger zerolog.Logger, site *waf.SiteConfig, req waf.HTTPRequest, match waf.RuleMatch) {
	logger.Info().Str("rule", match.RuleName).Str("threatType", match.ThreatType).Str("severity", match.Severity.String()).Msg("Request blocked")
	g.results.RequestBlocked(req, match)
	g.metrics.Blocked.WithLabelValues(site.Name).Inc()
	renderBlockPage(w, match)
}

func (g *Gateway) passthrough(w http.ResponseWriter, r *http.Request, req waf.HTTPRequest) {
	if g.fallback == nil {
		return
	}

	// The snapshot drained the body; hand the fallback a fresh copy.
	r.Body = io.NopCloser(strings.NewReader(req.Body()))
	g.fallback.ServeHTTP(w, r)
}

func (g *Gateway) engineFor(t waf.TemplateType) waf.RuleEngine {
	if e, ok := g.engines[t]; ok {
		return e
	}
	return g.engines[waf.TemplateBasic]
}

func (g *Gateway) isSkipPath(path string) bool {
	for _, prefix := range g.config.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (g *Gateway) isManagement(r *http.Request) bool {
	if g.config.ManagementHeader == "" || g.config.ManagementToken == "" {
		return false
	}
	return r.Header.Get(g.config.ManagementHeader) == g.config.ManagementToken
}
