package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bnema/wayportal/internal/core"
)

func TestCreateAndLookup(t *testing.T) {
	m := NewManager(DefaultConfig())
	id := core.NewSessionID("/s/1")

	if err := m.Create(id, "app.a"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}

	err := m.With(id, func(s *core.Session) error {
		if s.AppID != "app.a" {
			t.Errorf("AppID = %q", s.AppID)
		}
		if s.State != core.StateCreated {
			t.Errorf("State = %s, want created", s.State)
		}
		if s.CreatedAt.IsZero() {
			t.Error("CreatedAt not stamped")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With: %v", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	m := NewManager(DefaultConfig())
	id := core.NewSessionID("/s/1")

	if err := m.Create(id, "app.a"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := m.Create(id, "app.b")
	if !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("duplicate Create = %v, want AlreadyExists", err)
	}
}

func TestMaxSessions(t *testing.T) {
	m := NewManager(Config{MaxSessions: 2, EventBacklog: 8})

	if err := m.Create("/s/1", "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Create("/s/2", "a"); err != nil {
		t.Fatal(err)
	}
	err := m.Create("/s/3", "a")
	if !errors.Is(err, core.ErrMaxSessionsExceeded) {
		t.Errorf("Create over cap = %v, want MaxSessionsExceeded", err)
	}

	// Closing frees a slot.
	if err := m.Close("/s/1", nil); err != nil {
		t.Fatal(err)
	}
	if err := m.Create("/s/4", "a"); err != nil {
		t.Errorf("Create after close: %v", err)
	}
}

func TestWithUnknownSession(t *testing.T) {
	m := NewManager(DefaultConfig())
	err := m.With("/s/none", func(*core.Session) error { return nil })
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("With = %v, want NotFound", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewManager(DefaultConfig())
	id := core.NewSessionID("/s/1")
	if err := m.Create(id, "a"); err != nil {
		t.Fatal(err)
	}

	events, cancel := m.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := m.Close(id, nil); err != nil {
			t.Fatalf("Close #%d: %v", i+1, err)
		}
	}

	closed := 0
drain:
	for {
		select {
		case ev := <-events:
			if ev.Event.Kind == core.LifecycleClosed {
				closed++
			}
		default:
			break drain
		}
	}
	if closed != 1 {
		t.Errorf("Closed events = %d, want exactly 1", closed)
	}

	// Verbs after close fail NotFound.
	err := m.With(id, func(*core.Session) error { return nil })
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("With after close = %v, want NotFound", err)
	}
}

func TestSessionIDNeverReused(t *testing.T) {
	m := NewManager(DefaultConfig())
	id := core.NewSessionID("/s/1")

	if err := m.Create(id, "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(id, nil); err != nil {
		t.Fatal(err)
	}

	err := m.Create(id, "a")
	if !errors.Is(err, core.ErrAlreadyExists) {
		t.Errorf("re-Create of closed id = %v, want AlreadyExists", err)
	}
}

func TestConcurrentCreateSameID(t *testing.T) {
	m := NewManager(DefaultConfig())
	id := core.NewSessionID("/s/3")

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Create(id, "app")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, core.ErrAlreadyExists):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d creates succeeded, want exactly 1", succeeded)
	}
}

func TestCloseCallbackSeesSession(t *testing.T) {
	m := NewManager(DefaultConfig())
	id := core.NewSessionID("/s/1")
	if err := m.Create(id, "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.With(id, func(s *core.Session) error {
		s.CaptureStream = &core.CaptureStream{Handle: "h", SessionID: id}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	var sawStream bool
	if err := m.Close(id, func(s *core.Session) {
		sawStream = s.CaptureStream != nil
	}); err != nil {
		t.Fatal(err)
	}
	if !sawStream {
		t.Error("close callback should observe the capture stream before teardown")
	}
}

func TestBroadcastIsLossyNotBlocking(t *testing.T) {
	m := NewManager(Config{MaxSessions: 16, EventBacklog: 4})

	events, cancel := m.Subscribe()
	defer cancel()

	// Nobody reads while we emit far past the backlog; producers must
	// not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			m.Emit("/s/1", core.LifecycleEvent{Kind: core.LifecycleInputDispatched, Input: "pointer-motion"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow subscriber")
	}

	// The backlog holds the most recent entries only.
	received := 0
	for {
		select {
		case <-events:
			received++
			continue
		default:
		}
		break
	}
	if received == 0 || received > 4 {
		t.Errorf("received %d events, want 1..4 (lossy bounded backlog)", received)
	}
}

func TestSubscribeCancelTwice(t *testing.T) {
	m := NewManager(DefaultConfig())
	_, cancel := m.Subscribe()
	cancel()
	cancel() // must not panic
}

func TestSnapshot(t *testing.T) {
	m := NewManager(DefaultConfig())
	id := core.NewSessionID("/s/1")
	if err := m.Create(id, "app.a"); err != nil {
		t.Fatal(err)
	}

	snap, err := m.Snapshot(id)
	if err != nil {
		t.Fatal(err)
	}
	if snap.ID != id || snap.AppID != "app.a" {
		t.Errorf("Snapshot = %+v", snap)
	}

	// Mutating the snapshot must not touch the live session.
	snap.AppID = "mutated"
	again, _ := m.Snapshot(id)
	if again.AppID != "app.a" {
		t.Error("snapshot aliases the live session")
	}
}
