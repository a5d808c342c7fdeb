// Package balancer implements per-site backend selection under the
// round_robin, least_connections and ip_hash policies.
package balancer

import (
	"hash/fnv"
	"net"
	"strconv"
	"sync"

	"wafgate/waf"
)

// siteState is the mutable load-balancing state for one site. It is owned
// exclusively by the selector and never persisted.
type siteState struct {
	roundRobinIndex uint64
	activeConns     map[string]int
	firstSeen       []string
}

type selectorImpl struct {
	// ownHost/ownPort is this service's own listening address; selecting it
	// would forward the request back into ourselves. ownHost is empty for
	// hostless listen addresses like ":8080".
	ownHost string
	ownPort string

	// localAddrs are this machine's interface addresses, used to decide
	// whether a backend IP is us when listening on all interfaces.
	localAddrs map[string]bool

	mutex sync.Mutex
	sites map[string]*siteState
}

// NewSelector creates a waf.BackendSelector. ownAddr is the gateway's own
// listen address ("host:port" or ":port"), used to refuse self-loop
// selections.
func NewSelector(ownAddr string) waf.BackendSelector {
	s := &selectorImpl{
		localAddrs: localAddresses(),
		sites:      make(map[string]*siteState),
	}
	if host, port, err := net.SplitHostPort(ownAddr); err == nil {
		s.ownHost = host
		s.ownPort = port
	}
	return s
}

// Select picks one allowed backend for the site, or nil when there is no
// allowed candidate or the pick would loop back to this service. A non-nil
// selection holds a connection slot until Release is called.
func (s *selectorImpl) Select(site *waf.SiteConfig, clientIP string) *waf.Backend {
	candidates := site.AllowedBackends()
	if len(candidates) == 0 {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	state := s.siteState(site.Name, candidates)

	var picked waf.Backend
	switch site.Algorithm {
	case waf.AlgorithmLeastConnections:
		picked = leastConnections(state, candidates)
	case waf.AlgorithmIPHash:
		picked = candidates[ipHash(clientIP)%uint32(len(candidates))]
	default:
		picked = candidates[state.roundRobinIndex%uint64(len(candidates))]
		state.roundRobinIndex++
	}

	if s.isSelf(picked) {
		return nil
	}

	state.activeConns[picked.Key()]++
	return &picked
}

// Release returns the backend's connection slot. It must be called exactly
// once per non-nil Select, after the forwarded response completes or fails.
func (s *selectorImpl) Release(site *waf.SiteConfig, b waf.Backend) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state, ok := s.sites[site.Name]
	if !ok {
		return
	}

	if state.activeConns[b.Key()] > 0 {
		state.activeConns[b.Key()]--
	}
}

// isSelf reports whether forwarding to this backend would loop the request
// back into the gateway. With an explicit listen host the comparison is
// exact; with a hostless listen address (all interfaces) any loopback or
// local interface address on the listen port is us.
func (s *selectorImpl) isSelf(b waf.Backend) bool {
	if s.ownPort == "" || strconv.Itoa(b.Port) != s.ownPort {
		return false
	}

	if s.ownHost != "" {
		return b.IPAddress == s.ownHost
	}

	if ip := net.ParseIP(b.IPAddress); ip != nil && (ip.IsLoopback() || ip.IsUnspecified()) {
		return true
	}
	return s.localAddrs[b.IPAddress]
}

// Caller must hold s.mutex.
func (s *selectorImpl) siteState(site string, candidates []waf.Backend) *siteState {
	state, ok := s.sites[site]
	if !ok {
		state = &siteState{activeConns: make(map[string]int)}
		s.sites[site] = state
	}

	// Keep first-seen order current for least-connections tie-breaking.
	seen := make(map[string]bool, len(state.firstSeen))
	for _, k := range state.firstSeen {
		seen[k] = true
	}
	for _, c := range candidates {
		if !seen[c.Key()] {
			state.firstSeen = append(state.firstSeen, c.Key())
			seen[c.Key()] = true
		}
	}

	return state
}

// leastConnections picks the candidate with the smallest live connection
// count, ties broken by first-seen order.
func leastConnections(state *siteState, candidates []waf.Backend) waf.Backend {
	byKey := make(map[string]waf.Backend, len(candidates))
	for _, c := range candidates {
		byKey[c.Key()] = c
	}

	best := candidates[0]
	bestCount := -1
	for _, k := range state.firstSeen {
		c, ok := byKey[k]
		if !ok {
			continue
		}
		if bestCount == -1 || state.activeConns[k] < bestCount {
			best = c
			bestCount = state.activeConns[k]
		}
	}

	return best
}

func ipHash(clientIP string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(clientIP))
	return h.Sum32()
}
