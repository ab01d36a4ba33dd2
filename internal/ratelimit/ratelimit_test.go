package ratelimit

import (
	"testing"
	"time"

	"github.com/bnema/wayportal/internal/core"
)

// fakeClock drives the limiter deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	l := New(cfg)
	clock := &fakeClock{now: time.Unix(1000, 0)}
	l.now = func() time.Time { return clock.now }
	return l, clock
}

func TestBurstThenRateLimited(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxEventsPerSec: 1000, BurstLimit: 100, Window: time.Second})
	id := core.NewSessionID("/s/1")

	for i := 0; i < 100; i++ {
		if d := l.Check(id); !d.Allowed {
			t.Fatalf("call %d rejected, want admitted", i+1)
		}
	}

	d := l.Check(id)
	if d.Allowed {
		t.Fatal("101st call in the same instant should be rejected")
	}
	if d.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive hint", d.RetryAfter)
	}
}

func TestRefillAfterSleep(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxEventsPerSec: 1000, BurstLimit: 100, Window: time.Second})
	id := core.NewSessionID("/s/1")

	for i := 0; i < 100; i++ {
		l.Check(id)
	}
	if l.Check(id).Allowed {
		t.Fatal("bucket should be empty")
	}

	clock.advance(1100 * time.Millisecond)

	for i := 0; i < 100; i++ {
		if d := l.Check(id); !d.Allowed {
			t.Fatalf("call %d after refill rejected", i+1)
		}
	}
}

func TestRefillIsCappedAtBurst(t *testing.T) {
	l, clock := newTestLimiter(Config{MaxEventsPerSec: 1000, BurstLimit: 10, Window: time.Second})
	id := core.NewSessionID("/s/1")

	// Create the bucket first; a long idle period afterwards must not
	// bank more than the bucket holds.
	l.Check(id)
	clock.advance(time.Minute)

	admitted := 0
	for i := 0; i < 50; i++ {
		if l.Check(id).Allowed {
			admitted++
		}
	}
	if admitted != 10 {
		t.Errorf("admitted %d events after idle, want burst limit 10", admitted)
	}
}

func TestWindowCeiling(t *testing.T) {
	// Rate 10/s with a generous burst: the sliding window must still
	// cap a window's admissions at rate x window.
	l, clock := newTestLimiter(Config{MaxEventsPerSec: 10, BurstLimit: 100, Window: time.Second})
	id := core.NewSessionID("/s/1")

	admitted := 0
	for i := 0; i < 100; i++ {
		if l.Check(id).Allowed {
			admitted++
		}
		clock.advance(time.Millisecond)
	}
	if admitted > 10 {
		t.Errorf("admitted %d in one window, ceiling is 10", admitted)
	}

	clock.advance(time.Second)
	if !l.Check(id).Allowed {
		t.Error("should admit again after the window rolls")
	}
}

func TestAdmissionBound(t *testing.T) {
	// Property: admissions over [t, t+T] never exceed burst + T*rate.
	cfg := Config{MaxEventsPerSec: 100, BurstLimit: 20, Window: time.Second}
	l, clock := newTestLimiter(cfg)
	id := core.NewSessionID("/s/1")

	const duration = 3 * time.Second
	const step = 5 * time.Millisecond

	admitted := 0
	for elapsed := time.Duration(0); elapsed < duration; elapsed += step {
		if l.Check(id).Allowed {
			admitted++
		}
		clock.advance(step)
	}

	bound := cfg.BurstLimit + int(duration.Seconds())*cfg.MaxEventsPerSec
	if admitted > bound {
		t.Errorf("admitted %d over %v, bound is %d", admitted, duration, bound)
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxEventsPerSec: 1000, BurstLimit: 5, Window: time.Second})
	a := core.NewSessionID("/s/a")
	b := core.NewSessionID("/s/b")

	for i := 0; i < 5; i++ {
		l.Check(a)
	}
	if l.Check(a).Allowed {
		t.Fatal("session a should be exhausted")
	}
	if !l.Check(b).Allowed {
		t.Error("session b must not share a's bucket")
	}
}

func TestForgetDropsBucket(t *testing.T) {
	l, _ := newTestLimiter(DefaultConfig())
	id := core.NewSessionID("/s/1")

	l.Check(id)
	if l.Tracked() != 1 {
		t.Fatalf("Tracked = %d, want 1", l.Tracked())
	}
	l.Forget(id)
	if l.Tracked() != 0 {
		t.Errorf("Tracked = %d after Forget, want 0", l.Tracked())
	}
}

func TestCheckNeverBlocks(t *testing.T) {
	l := New(DefaultConfig())
	id := core.NewSessionID("/s/1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			l.Check(id)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Check appears to block")
	}
}
