package waf

// ThreatLevel is the ordered severity classification of a rule match. Higher
// numeric values outrank lower ones when multiple rules match one request.
type ThreatLevel int

const (
	// ThreatNone means no threat.
	ThreatNone ThreatLevel = iota
	// ThreatLow means a low severity threat.
	ThreatLow
	// ThreatMedium means a medium severity threat.
	ThreatMedium
	// ThreatHigh means a high severity threat.
	ThreatHigh
	// ThreatCritical means a critical severity threat.
	ThreatCritical
)

func (t ThreatLevel) String() string {
	switch t {
	case ThreatNone:
		return "none"
	case ThreatLow:
		return "low"
	case ThreatMedium:
		return "medium"
	case ThreatHigh:
		return "high"
	case ThreatCritical:
		return "critical"
	}
	return "unknown"
}
