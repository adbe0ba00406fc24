// Package ratelimit throttles abusable endpoints (reservations, list password
// attempts) per key, where a key is a user ID or a client IP.
//
// Two stores implement the same interface:
//   - MemoryStore keeps a token bucket per key in an LRU cache. It is the
//     default and is exact for a single instance.
//   - RedisStore keeps fixed-window counters in Redis so several instances
//     share one budget.
package ratelimit

import (
	"context"
	"time"
)

// Store decides whether another request for key may proceed.
type Store interface {
	Allow(ctx context.Context, key string) (bool, error)
	// Reset forgets every key. Used by tests and the admin tooling.
	Reset(ctx context.Context) error
}

// Limit is the budget every key gets: RPS tokens per second, up to Burst at once.
type Limit struct {
	RPS   float64
	Burst int
}

// Window is the fixed window length that gives Burst requests at RPS.
func (l Limit) Window() time.Duration {
	if l.RPS <= 0 {
		return time.Second
	}
	w := time.Duration(float64(l.Burst) / l.RPS * float64(time.Second))
	if w < time.Second {
		w = time.Second
	}
	return w
}

// Disabled reports whether the limit lets everything through.
func (l Limit) Disabled() bool {
	return l.RPS <= 0 || l.Burst <= 0
}
