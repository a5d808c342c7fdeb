package integrationtesting

import (
	"regexp"

	"wafgate/waf"
)

// regexpMultiRegexEngineFactory backs the rule engine with Go's regexp
// package so the full pipeline can run without a Hyperscan runtime.
type regexpMultiRegexEngineFactory struct{}

func (f *regexpMultiRegexEngineFactory) NewMultiRegexEngine(mm []waf.MultiRegexEnginePattern) (waf.MultiRegexEngine, error) {
	e := &regexpMultiRegexEngine{}
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

type regexpMultiRegexEngine struct {
	patterns []compiledPattern
}

func (e *regexpMultiRegexEngine) Scan(input []byte, scratchSpace waf.MultiRegexEngineScratchSpace) (matches []waf.MultiRegexEngineMatch, err error) {
	for _, p := range e.patterns {
		if loc := p.re.FindIndex(input); loc != nil {
			matches = append(matches, waf.MultiRegexEngineMatch{ID: p.id, EndPos: loc[1]})
		}
	}
	return
}

func (e *regexpMultiRegexEngine) CreateScratchSpace() (waf.MultiRegexEngineScratchSpace, error) {
	return &regexpScratchSpace{}, nil
}

func (e *regexpMultiRegexEngine) Close() {}

type regexpScratchSpace struct{}

func (s *regexpScratchSpace) Close() {}
