package waf

// BackendSelector picks one backend per request under a site's configured
// load-balancing algorithm. Select returns nil when no candidate is allowed,
// or when the only selection would forward the request back to this service
// itself. Callers must call Release exactly once for every non-nil selection,
// after the forwarded response completes or fails.
type BackendSelector interface {
	Select(site *SiteConfig, clientIP string) *Backend
	Release(site *SiteConfig, b Backend)
}
