package sigrule

import (
	"wafgate/waf"

	"github.com/rs/zerolog"
)

type engineFactoryImpl struct {
	logger                  zerolog.Logger
	multiRegexEngineFactory waf.MultiRegexEngineFactory
}

// NewEngineFactory creates a waf.RuleEngineFactory whose engines scan with
// multi-regex engines created by the given factory.
func NewEngineFactory(logger zerolog.Logger, mref waf.MultiRegexEngineFactory) waf.RuleEngineFactory {
	return &engineFactoryImpl{logger: logger, multiRegexEngineFactory: mref}
}

func (f *engineFactoryImpl) NewEngine(t waf.TemplateType) (engine waf.RuleEngine, err error) {
	return newEngine(f.logger, f.multiRegexEngineFactory, RulesForTemplate(t))
}

// patternRef maps a multi-regex engine pattern ID back to its rule.
type patternRef struct {
	ruleIdx    int
	patternIdx int
}

type engineImpl struct {
	rules            []Rule
	multiRegexEngine waf.MultiRegexEngine
	patternRefs      []patternRef
	scratchSpaceNext chan waf.MultiRegexEngineScratchSpace
}

func newEngine(logger zerolog.Logger, mref waf.MultiRegexEngineFactory, rules []Rule) (engine waf.RuleEngine, err error) {
	e := &engineImpl{rules: rules}

	patterns := []waf.MultiRegexEnginePattern{}
	for ruleIdx, rule := range rules {
		for patternIdx, expr := range rule.Patterns {
			patterns = append(patterns, waf.MultiRegexEnginePattern{ID: len(e.patternRefs), Expr: expr})
			e.patternRefs = append(e.patternRefs, patternRef{ruleIdx: ruleIdx, patternIdx: patternIdx})
		}
	}

	e.multiRegexEngine, err = mref.NewMultiRegexEngine(patterns)
	if err != nil {
		// A malformed pattern must only skip itself, never abort the whole
		// rule set. Find the offenders by compiling one at a time.
		patterns, e.patternRefs = dropUncompilablePatterns(logger, mref, patterns, e.patternRefs, rules)
		e.multiRegexEngine, err = mref.NewMultiRegexEngine(patterns)
		if err != nil {
			return
		}
	}

	// Buffered channel used for reuse of scratch spaces between requests, while not letting concurrent requests share the same scratch space.
	e.scratchSpaceNext = make(chan waf.MultiRegexEngineScratchSpace, 100000)
	s, err := e.multiRegexEngine.CreateScratchSpace()
	if err != nil {
		return
	}
	e.scratchSpaceNext <- s

	engine = e
	return
}

func dropUncompilablePatterns(logger zerolog.Logger, mref waf.MultiRegexEngineFactory, patterns []waf.MultiRegexEnginePattern, refs []patternRef, rules []Rule) ([]waf.MultiRegexEnginePattern, []patternRef) {
	keptPatterns := []waf.MultiRegexEnginePattern{}
	keptRefs := []patternRef{}

	for i, p := range patterns {
		m, err := mref.NewMultiRegexEngine([]waf.MultiRegexEnginePattern{{ID: 0, Expr: p.Expr}})
		if err != nil {
			logger.Warn().Err(err).Str("rule", rules[refs[i].ruleIdx].Name).Str("pattern", p.Expr).Msg("Skipping signature pattern that failed to compile")
			continue
		}
		m.Close()

		keptPatterns = append(keptPatterns, waf.MultiRegexEnginePattern{ID: len(keptRefs), Expr: p.Expr})
		keptRefs = append(keptRefs, refs[i])
	}

	return keptPatterns, keptRefs
}

// EvalRequest scans the request surfaces in fixed order (URL, non-safe
// headers, body, each query parameter value) against every rule. A rule
// matches on its first hit; all rule matches are collected and the highest
// severity one is returned, ties broken by rule registration order.
func (e *engineImpl) EvalRequest(logger zerolog.Logger, req waf.HTTPRequest) (waf.Decision, *waf.RuleMatch) {
	scratchSpace := e.getScratchSpace()
	defer func() { e.scratchSpaceNext <- scratchSpace }()

	// ruleIdx -> description of the first surface that hit
	matchedSurfaces := make(map[int]string)

	e.scanSurface(logger, scratchSpace, "url", req.URI(), matchedSurfaces)

	for _, h := range req.Headers() {
		if isSafeHeader(h.Key()) {
			continue
		}
		e.scanSurface(logger, scratchSpace, "header "+h.Key(), h.Value(), matchedSurfaces)
	}

	e.scanSurface(logger, scratchSpace, "body", req.Body(), matchedSurfaces)

	for _, p := range req.QueryParams() {
		e.scanSurface(logger, scratchSpace, "query parameter "+p.Key(), p.Value(), matchedSurfaces)
	}

	if len(matchedSurfaces) == 0 {
		return waf.Pass, nil
	}

	// First registered rule wins severity ties, so only a strictly higher
	// severity displaces the current selection.
	selected := -1
	for ruleIdx := range e.rules {
		if _, ok := matchedSurfaces[ruleIdx]; !ok {
			continue
		}
		if selected == -1 || e.rules[ruleIdx].Severity > e.rules[selected].Severity {
			selected = ruleIdx
		}
	}

	rule := e.rules[selected]
	return waf.Block, &waf.RuleMatch{
		RuleName:   rule.Name,
		ThreatType: rule.ThreatType,
		Severity:   rule.Severity,
		Details:    "matched " + matchedSurfaces[selected],
	}
}

func (e *engineImpl) scanSurface(logger zerolog.Logger, scratchSpace waf.MultiRegexEngineScratchSpace, surface string, content string, matchedSurfaces map[int]string) {
	if content == "" {
		return
	}

	matches, err := e.multiRegexEngine.Scan([]byte(content), scratchSpace)
	if err != nil {
		// A scan failure skips this surface, not the whole evaluation.
		logger.Error().Err(err).Str("surface", surface).Msg("Multi-regex scan failed")
		return
	}

	for _, m := range matches {
		ruleIdx := e.patternRefs[m.ID].ruleIdx
		if _, ok := matchedSurfaces[ruleIdx]; ok {
			continue
		}
		matchedSurfaces[ruleIdx] = surface
	}
}

// Reuse a scratch space, or create a new one if there are none available.
func (e *engineImpl) getScratchSpace() waf.MultiRegexEngineScratchSpace {
	select {
	case s := <-e.scratchSpaceNext:
		return s
	default:
		s, err := e.multiRegexEngine.CreateScratchSpace()
		if err != nil {
			panic(err)
		}
		return s
	}
}
