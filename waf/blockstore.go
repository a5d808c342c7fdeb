package waf

import (
	"context"
	"time"
)

// BlockedIPEntry is one active timed ban for a (site, ip) pair.
type BlockedIPEntry struct {
	Site            string
	IPAddress       string
	Reason          string
	BlockedAt       time.Time
	ExpiresAt       time.Time
	EscalationLevel int
}

// Active reports whether the ban is still in force at the given time.
func (e *BlockedIPEntry) Active(now time.Time) bool {
	return e.ExpiresAt.After(now)
}

// Extend raises the expiry by d and bumps the escalation level.
func (e *BlockedIPEntry) Extend(d time.Duration) {
	e.ExpiresAt = e.ExpiresAt.Add(d)
	e.EscalationLevel++
}

// TimedBlockStore looks up active, expiring IP bans. Implementations may do
// I/O; callers bound the call with the context and treat errors as "no active
// ban" so that a broken store never blocks legitimate traffic.
type TimedBlockStore interface {
	FindActiveBan(ctx context.Context, site string, ip string) (*BlockedIPEntry, error)
}
