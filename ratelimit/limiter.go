// Package ratelimit implements a per-user debounce: a message is
// accepted only if enough time has passed since the same user's last
// accepted message. It is deliberately not a token bucket — no burst
// credit accumulates.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultInterval is the minimum gap between two accepted messages
// from the same user.
const DefaultInterval = 600 * time.Millisecond

// Limiter tracks the last accepted timestamp per user. Safe for
// concurrent use; the check and the timestamp update happen under one
// lock so two racing messages cannot both pass.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastSeen map[int64]time.Time
}

func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Limiter{
		interval: interval,
		lastSeen: make(map[int64]time.Time),
	}
}

// Allow reports whether a message from user at time now should be
// processed. On acceptance the user's last-contact timestamp is set to
// now; on rejection it is left untouched.
func (l *Limiter) Allow(user int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.lastSeen[user]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[user] = now
	return true
}

// Size reports how many users have a recorded timestamp.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lastSeen)
}

// CleanupStale drops entries older than maxAge relative to now and
// returns how many were removed.
func (l *Limiter) CleanupStale(maxAge time.Duration, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for user, last := range l.lastSeen {
		if now.Sub(last) > maxAge {
			delete(l.lastSeen, user)
			removed++
		}
	}
	return removed
}
