// Package banstore provides an in-memory waf.TimedBlockStore with escalating,
// naturally expiring IP bans.
package banstore

import (
	"context"
	"sync"
	"time"

	"wafgate/waf"
)

type banKey struct {
	site string
	ip   string
}

// Store holds at most one active ban per (site, ip). Expired entries stop
// blocking immediately; a background sweep reclaims their memory.
type Store struct {
	mutex   sync.Mutex
	entries map[banKey]*waf.BlockedIPEntry
	done    chan struct{}
	now     func() time.Time
}

// NewStore creates a Store and starts its garbage collection sweep.
func NewStore(gcInterval time.Duration) *Store {
	s := &Store{
		entries: make(map[banKey]*waf.BlockedIPEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go s.gcLoop(gcInterval)

	return s
}

// FindActiveBan returns the active ban for (site, ip), or nil if there is
// none or it has expired.
func (s *Store) FindActiveBan(ctx context.Context, site string, ip string) (entry *waf.BlockedIPEntry, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.entries[banKey{site, ip}]
	if !ok || !e.Active(s.now()) {
		return
	}

	copied := *e
	entry = &copied
	return
}

// Put inserts a ban for (site, ip), or extends the existing one if the pair
// is already banned: the expiry is raised by the new duration and the
// escalation level incremented.
func (s *Store) Put(site string, ip string, reason string, duration time.Duration) waf.BlockedIPEntry {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := banKey{site, ip}
	now := s.now()

	if e, ok := s.entries[key]; ok && e.Active(now) {
		e.Reason = reason
		e.Extend(duration)
		return *e
	}

	e := &waf.BlockedIPEntry{
		Site:            site,
		IPAddress:       ip,
		Reason:          reason,
		BlockedAt:       now,
		ExpiresAt:       now.Add(duration),
		EscalationLevel: 1,
	}
	s.entries[key] = e
	return *e
}

// Close stops the garbage collection sweep.
func (s *Store) Close() {
	close(s.done)
}

func (s *Store) gcLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *Store) sweep() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if !e.Active(now) {
			delete(s.entries, k)
		}
	}
}
