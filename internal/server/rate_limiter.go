// Package server implements a token bucket rate limiter for per-connection
// throttling that keeps one noisy session from flooding the room.
package server

import (
	"sync"
	"time"
)

type rateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
}

func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	capacity = max(capacity, 1)
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		tokens:     float64(capacity),
		capacity:   float64(capacity),
		refillRate: float64(capacity) / interval.Seconds(),
		lastRefill: time.Now(),
	}
}

// allow consumes one token if available, refilling the bucket for the time
// elapsed since the last call.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(rl.lastRefill).Seconds(); elapsed > 0 {
		rl.tokens = min(rl.tokens+elapsed*rl.refillRate, rl.capacity)
	}
	rl.lastRefill = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
