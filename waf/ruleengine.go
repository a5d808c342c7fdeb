package waf

import "github.com/rs/zerolog"

// TemplateType selects which signature set a rule engine loads.
type TemplateType string

const (
	// TemplateBasic loads the base signature set.
	TemplateBasic TemplateType = "basic"
	// TemplateAdvanced loads the base set plus the extended signatures.
	TemplateAdvanced TemplateType = "advanced"
)

// RuleMatch describes one triggered detection signature.
type RuleMatch struct {
	RuleName   string
	ThreatType string
	Severity   ThreatLevel
	Details    string
}

// RuleEngineFactory creates RuleEngines. This makes mocking possible when testing.
type RuleEngineFactory interface {
	NewEngine(t TemplateType) (RuleEngine, error)
}

// RuleEngine evaluates one request against a fixed, pre-compiled set of
// pattern rules. Implementations must be safe for concurrent use.
//
// The returned Decision is the raw engine verdict: Block if any rule matched,
// Pass otherwise. Site policy filtering happens downstream in the decision
// pipeline. The returned match, if any, is the highest severity one, ties
// broken by rule registration order.
type RuleEngine interface {
	EvalRequest(logger zerolog.Logger, req HTTPRequest) (Decision, *RuleMatch)
}
