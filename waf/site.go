package waf

import "strconv"

// ActionType is what a site wants done when a rule matches.
type ActionType string

const (
	// ActionBlock renders a 403 on a rule match.
	ActionBlock ActionType = "block"
	// ActionLog records the match but lets the request proceed.
	ActionLog ActionType = "log"
)

// Algorithm selects the backend selection policy for a site.
type Algorithm string

const (
	// AlgorithmRoundRobin rotates evenly over the allowed backends.
	AlgorithmRoundRobin Algorithm = "round_robin"
	// AlgorithmLeastConnections picks the backend with fewest in-flight requests.
	AlgorithmLeastConnections Algorithm = "least_connections"
	// AlgorithmIPHash hashes the client IP for session affinity.
	AlgorithmIPHash Algorithm = "ip_hash"
)

// SitePolicy is the per-site filtering policy.
type SitePolicy struct {
	ActionType       ActionType
	SensitivityLevel int
	TemplateType     TemplateType

	// ManagementBypass, when set, exempts requests flagged as management
	// traffic from blocking. It is an explicit policy flag; it is never
	// inferred from path prefixes.
	ManagementBypass bool
}

// Backend is one upstream server candidate for a site.
type Backend struct {
	IPAddress string
	Port      int
	IsAllowed bool
}

// Key returns the "ip:port" identity used for connection accounting.
func (b Backend) Key() string {
	return b.IPAddress + ":" + strconv.Itoa(b.Port)
}

// SiteConfig is everything the pipeline needs to know about one site.
type SiteConfig struct {
	Name      string
	Host      string
	Policy    SitePolicy
	Backends  []Backend
	Algorithm Algorithm
}

// AllowedBackends returns the backends participating in selection.
func (s *SiteConfig) AllowedBackends() (allowed []Backend) {
	for _, b := range s.Backends {
		if b.IsAllowed {
			allowed = append(allowed, b)
		}
	}
	return
}

// SiteResolver looks up the active site configuration for a request host.
// Host matching is exact; there is no fallback site. A nil SiteConfig with a
// nil error means no site is configured for the host.
type SiteResolver interface {
	LookupActiveSiteByHost(host string) (*SiteConfig, error)
}
