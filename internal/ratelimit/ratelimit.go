// Package ratelimit provides per-session admission control for the
// input pipeline: a token bucket for burst shaping with a sliding
// window ceiling on sustained throughput.
package ratelimit

import (
	"sync"
	"time"

	"github.com/bnema/wayportal/internal/core"
)

// Config holds the limiter parameters.
type Config struct {
	// MaxEventsPerSec is the steady-state refill rate.
	MaxEventsPerSec int
	// BurstLimit is the bucket capacity.
	BurstLimit int
	// Window is the sliding-window duration for the hard ceiling.
	Window time.Duration
}

// DefaultConfig matches the portal defaults.
func DefaultConfig() Config {
	return Config{
		MaxEventsPerSec: 1000,
		BurstLimit:      100,
		Window:          time.Second,
	}
}

// Decision is the admission result.
type Decision struct {
	Allowed bool
	// RetryAfter hints when the next event could be admitted. Only set
	// when Allowed is false.
	RetryAfter time.Duration
}

type bucket struct {
	mu          sync.Mutex
	tokens      float64
	lastRefill  time.Time
	windowCount uint32
	windowStart time.Time
}

// Limiter is the per-session admission controller. Buckets are created
// lazily on first check and removed when the session closes.
type Limiter struct {
	cfg Config

	mu      sync.RWMutex
	buckets map[core.SessionID]*bucket

	now func() time.Time // test seam
}

// New creates a limiter with the given parameters.
func New(cfg Config) *Limiter {
	if cfg.MaxEventsPerSec <= 0 {
		cfg.MaxEventsPerSec = DefaultConfig().MaxEventsPerSec
	}
	if cfg.BurstLimit <= 0 {
		cfg.BurstLimit = DefaultConfig().BurstLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	return &Limiter{
		cfg:     cfg,
		buckets: make(map[core.SessionID]*bucket),
		now:     time.Now,
	}
}

// Check admits or rejects one event for the session. It never blocks
// beyond the bucket lock and cannot fail except by rejecting.
func (l *Limiter) Check(session core.SessionID) Decision {
	b := l.bucketFor(session)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	rate := float64(l.cfg.MaxEventsPerSec)

	// Refill against elapsed time, capped at the burst capacity.
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(float64(l.cfg.BurstLimit), b.tokens+elapsed*rate)
	}
	b.lastRefill = now

	// Roll the sliding window.
	if now.Sub(b.windowStart) > l.cfg.Window {
		b.windowCount = 0
		b.windowStart = now
	}

	windowCeiling := uint32(float64(l.cfg.MaxEventsPerSec) * l.cfg.Window.Seconds())
	if b.tokens >= 1 && b.windowCount < windowCeiling {
		b.tokens--
		b.windowCount++
		return Decision{Allowed: true}
	}

	retry := time.Duration((1 - b.tokens) / rate * float64(time.Second))
	if retry <= 0 {
		// Window-limited rather than bucket-limited: retry when the
		// window rolls.
		retry = l.cfg.Window - now.Sub(b.windowStart)
	}
	return Decision{Allowed: false, RetryAfter: retry}
}

// Forget drops the session's bucket. Called strictly after the
// session's close completes.
func (l *Limiter) Forget(session core.SessionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, session)
}

// Tracked returns the number of live buckets.
func (l *Limiter) Tracked() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}

func (l *Limiter) bucketFor(session core.SessionID) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[session]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[session]; ok {
		return b
	}
	now := l.now()
	b = &bucket{
		tokens:      float64(l.cfg.BurstLimit),
		lastRefill:  now,
		windowStart: now,
	}
	l.buckets[session] = b
	return b
}
