package sigrule

import (
	"regexp"

	"wafgate/waf"
)

type mockHeaderPair struct {
	k string
	v string
}

func (h *mockHeaderPair) Key() string   { return h.k }
func (h *mockHeaderPair) Value() string { return h.v }

type mockQueryParamPair struct {
	k string
	v string
}

func (p *mockQueryParamPair) Key() string   { return p.k }
func (p *mockQueryParamPair) Value() string { return p.v }

type mockWafHTTPRequest struct {
	method      string
	uri         string
	path        string
	body        string
	headers     []waf.HeaderPair
	queryParams []waf.QueryParamPair
}

func (r *mockWafHTTPRequest) Method() string {
	if r.method == "" {
		return "GET"
	}
	return r.method
}
func (r *mockWafHTTPRequest) URI() string                       { return r.uri }
func (r *mockWafHTTPRequest) Path() string                      { return r.path }
func (r *mockWafHTTPRequest) Scheme() string                    { return "http" }
func (r *mockWafHTTPRequest) Host() string                      { return "example.com" }
func (r *mockWafHTTPRequest) RemoteAddr() string                { return "203.0.113.9:54321" }
func (r *mockWafHTTPRequest) ClientIP() string                  { return "203.0.113.9" }
func (r *mockWafHTTPRequest) Headers() []waf.HeaderPair         { return r.headers }
func (r *mockWafHTTPRequest) QueryParams() []waf.QueryParamPair { return r.queryParams }
func (r *mockWafHTTPRequest) Body() string                      { return r.body }
func (r *mockWafHTTPRequest) Management() bool                  { return false }
func (r *mockWafHTTPRequest) TransactionID() string             { return "abc" }

// The mock multi-regex engine runs the patterns one by one with Go's regexp
// package, so engine tests exercise the real signature expressions without a
// Hyperscan runtime.
type mockMultiRegexEngineFactory struct{}

func (f *mockMultiRegexEngineFactory) NewMultiRegexEngine(mm []waf.MultiRegexEnginePattern) (waf.MultiRegexEngine, error) {
	e := &mockMultiRegexEngine{}
	for _, m := range mm {
		re, err := regexp.Compile("(?i)" + m.Expr)
		if err != nil {
			return nil, err
		}
		e.patterns = append(e.patterns, compiledPattern{id: m.ID, re: re})
	}
	return e, nil
}

type compiledPattern struct {
	id int
	re *regexp.Regexp
}

type mockMultiRegexEngine struct {
	patterns []compiledPattern
}

func (e *mockMultiRegexEngine) Scan(input []byte, scratchSpace waf.MultiRegexEngineScratchSpace) (matches []waf.MultiRegexEngineMatch, err error) {
	for _, p := range e.patterns {
		if loc := p.re.FindIndex(input); loc != nil {
			matches = append(matches, waf.MultiRegexEngineMatch{ID: p.id, EndPos: loc[1]})
		}
	}
	return
}

func (e *mockMultiRegexEngine) CreateScratchSpace() (waf.MultiRegexEngineScratchSpace, error) {
	return &mockScratchSpace{}, nil
}

func (e *mockMultiRegexEngine) Close() {}

type mockScratchSpace struct{}

func (s *mockScratchSpace) Close() {}
