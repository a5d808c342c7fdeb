package hyperscan

import (
	"wafgate/waf"

	hs "github.com/flier/gohs/hyperscan"
)

type engineFactoryImpl struct {
}

type engineImpl struct {
	// Hyperscan's compiled database of regexes
	db hs.BlockDatabase
}

type scratchSpaceImpl struct {
	// Pre-allocated memory space that Hyperscan needs during evaluation
	scratch *hs.Scratch
}

// NewMultiRegexEngineFactory creates a waf.MultiRegexEngineFactory.
func NewMultiRegexEngineFactory() waf.MultiRegexEngineFactory {
	return &engineFactoryImpl{}
}

// NewMultiRegexEngine creates a waf.MultiRegexEngine.
func (f *engineFactoryImpl) NewMultiRegexEngine(mm []waf.MultiRegexEnginePattern) (m waf.MultiRegexEngine, err error) {
	h := &engineImpl{}

	patterns := []*hs.Pattern{}
	for _, p := range mm {
		pattern := hs.NewPattern(p.Expr, 0)
		pattern.Id = p.ID

		// SingleMatch makes Hyperscan only return one match per regex, which
		// is all the rule engine needs. Caseless because the signature
		// patterns are specified case-insensitive.
		pattern.Flags = hs.SingleMatch | hs.Caseless

		patterns = append(patterns, pattern)
	}

	h.db, err = hs.NewBlockDatabase(patterns...)
	if err != nil {
		return
	}

	m = h
	return
}

// CreateScratchSpace allocates the temporary memory Hyperscan needs during a
// scan. Scratch spaces must not be used by concurrent scans.
func (h *engineImpl) CreateScratchSpace() (scratchSpace waf.MultiRegexEngineScratchSpace, err error) {
	s := &scratchSpaceImpl{}
	s.scratch, err = hs.NewScratch(h.db)
	if err != nil {
		return
	}

	scratchSpace = s
	return
}

// Scan scans the given input for all expressions this engine was initialized with.
func (h *engineImpl) Scan(input []byte, scratchSpace waf.MultiRegexEngineScratchSpace) (matches []waf.MultiRegexEngineMatch, err error) {
	s := scratchSpace.(*scratchSpaceImpl)

	matches = []waf.MultiRegexEngineMatch{}
	handler := func(id uint, from, to uint64, flags uint, context interface{}) error {
		matches = append(matches, waf.MultiRegexEngineMatch{ID: int(id), EndPos: int(to)})
		return nil
	}

	err = h.db.Scan(input, s.scratch, handler, nil)
	return
}

// Close releases the compiled database.
func (h *engineImpl) Close() {
	h.db.Close()
}

// Close releases the scratch space.
func (s *scratchSpaceImpl) Close() {
	s.scratch.Free()
}
