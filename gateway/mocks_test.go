package gateway

import (
	"context"

	"wafgate/waf"

	"github.com/rs/zerolog"
)

type mockRuleEngine struct {
	decision  waf.Decision
	match     *waf.RuleMatch
	evalCount int
}

func (e *mockRuleEngine) EvalRequest(logger zerolog.Logger, req waf.HTTPRequest) (waf.Decision, *waf.RuleMatch) {
	e.evalCount++
	return e.decision, e.match
}

type mockRuleEngineFactory struct {
	engine *mockRuleEngine
}

func (f *mockRuleEngineFactory) NewEngine(t waf.TemplateType) (waf.RuleEngine, error) {
	return f.engine, nil
}

type mockSiteResolver struct {
	site        *waf.SiteConfig
	err         error
	lookupCount int
}

func (r *mockSiteResolver) LookupActiveSiteByHost(host string) (*waf.SiteConfig, error) {
	r.lookupCount++
	return r.site, r.err
}

type mockBlockStore struct {
	entry     *waf.BlockedIPEntry
	err       error
	findCount int
	lastSite  string
	lastIP    string
}

func (s *mockBlockStore) FindActiveBan(ctx context.Context, site string, ip string) (*waf.BlockedIPEntry, error) {
	s.findCount++
	s.lastSite = site
	s.lastIP = ip
	return s.entry, s.err
}

type mockBackendSelector struct {
	backend      *waf.Backend
	selectCount  int
	releaseCount int
}

func (s *mockBackendSelector) Select(site *waf.SiteConfig, clientIP string) *waf.Backend {
	s.selectCount++
	return s.backend
}

func (s *mockBackendSelector) Release(site *waf.SiteConfig, b waf.Backend) {
	s.releaseCount++
}

type mockForwarder struct {
	resp         *waf.BackendResponse
	err          error
	forwardCount int
	lastSite     string
	lastBackend  waf.Backend
}

func (f *mockForwarder) Forward(ctx context.Context, req waf.HTTPRequest, site string, backend waf.Backend) (*waf.BackendResponse, error) {
	f.forwardCount++
	f.lastSite = site
	f.lastBackend = backend
	return f.resp, f.err
}

type mockResultsLogger struct {
	blockedCount     int
	loggedCount      int
	forwardedCount   int
	unreachableCount int
	lastMatch        waf.RuleMatch
	lastResult       waf.ForwardResult
}

func (l *mockResultsLogger) RequestBlocked(req waf.HTTPRequest, match waf.RuleMatch) {
	l.blockedCount++
	l.lastMatch = match
}

func (l *mockResultsLogger) RuleMatchLogged(req waf.HTTPRequest, match waf.RuleMatch) {
	l.loggedCount++
	l.lastMatch = match
}

func (l *mockResultsLogger) RequestForwarded(req waf.HTTPRequest, result waf.ForwardResult) {
	l.forwardedCount++
	l.lastResult = result
}

func (l *mockResultsLogger) GatewayUnreachable(req waf.HTTPRequest, backend string, err error) {
	l.unreachableCount++
}
