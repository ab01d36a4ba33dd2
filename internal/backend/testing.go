package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/bnema/wayportal/internal/core"
)

// Recorder is an in-memory backend used as a test seam. It records
// every injected event in order and can be told to fail.
type Recorder struct {
	mu sync.Mutex

	Caps Capabilities

	// FailWith, when set, is returned by every injection method.
	FailWith error

	Events    []RecordedEvent
	Connected bool
	Streams   map[core.SessionID]*core.CaptureStream
}

// RecordedEvent is one injected event as the backend observed it.
type RecordedEvent struct {
	Session core.SessionID
	Name    string
	Args    []any
}

// NewRecorder returns a recorder advertising every capability.
func NewRecorder() *Recorder {
	return &Recorder{
		Caps: Capabilities{
			BackendName:       "recorder",
			DisplayServer:     DisplayServerWayland,
			CanInjectKeyboard: true,
			CanInjectPointer:  true,
			CanInjectTouch:    true,
			CanCaptureScreen:  true,
			CanCaptureWindow:  true,
			CursorModes:       core.CursorHidden | core.CursorEmbedded | core.CursorMetadata,
		},
		Streams: make(map[core.SessionID]*core.CaptureStream),
	}
}

func (r *Recorder) Capabilities() Capabilities {
	return r.Caps
}

func (r *Recorder) Connect(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Connected = true
	return nil
}

func (r *Recorder) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Connected = false
	return nil
}

// EventsFor returns the recorded events for one session, in order.
func (r *Recorder) EventsFor(session core.SessionID) []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RecordedEvent
	for _, e := range r.Events {
		if e.Session == session {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) record(session core.SessionID, name string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	r.Events = append(r.Events, RecordedEvent{Session: session, Name: name, Args: args})
	return nil
}

func (r *Recorder) InjectPointerMotion(_ context.Context, s core.SessionID, dx, dy float64, _ uint32) error {
	return r.record(s, "pointer-motion", dx, dy)
}

func (r *Recorder) InjectPointerMotionAbsolute(_ context.Context, s core.SessionID, x, y float64, _ uint32) error {
	return r.record(s, "pointer-motion-absolute", x, y)
}

func (r *Recorder) InjectPointerButton(_ context.Context, s core.SessionID, button int32, state core.ButtonState, _ uint32) error {
	return r.record(s, "pointer-button", button, state)
}

func (r *Recorder) InjectPointerAxis(_ context.Context, s core.SessionID, axis core.Axis, delta float64, _ uint32) error {
	return r.record(s, "pointer-axis", axis, delta)
}

func (r *Recorder) InjectPointerAxisDiscrete(_ context.Context, s core.SessionID, axis core.Axis, steps int32, _ uint32) error {
	return r.record(s, "pointer-axis-discrete", axis, steps)
}

func (r *Recorder) InjectKeyboardKeycode(_ context.Context, s core.SessionID, keycode int32, state core.KeyState, _ uint32) error {
	return r.record(s, "keyboard-keycode", keycode, state)
}

func (r *Recorder) InjectKeyboardKeysym(_ context.Context, s core.SessionID, keysym int32, state core.KeyState, _ uint32) error {
	return r.record(s, "keyboard-keysym", keysym, state)
}

func (r *Recorder) InjectTouchDown(_ context.Context, s core.SessionID, slot uint32, x, y float64, _ uint32) error {
	return r.record(s, "touch-down", slot, x, y)
}

func (r *Recorder) InjectTouchMotion(_ context.Context, s core.SessionID, slot uint32, x, y float64, _ uint32) error {
	return r.record(s, "touch-motion", slot, x, y)
}

func (r *Recorder) InjectTouchUp(_ context.Context, s core.SessionID, slot uint32, _ uint32) error {
	return r.record(s, "touch-up", slot)
}

func (r *Recorder) StartCapture(_ context.Context, s core.SessionID, _ core.SourceType, _ core.CursorMode) (*core.CaptureStream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return nil, r.FailWith
	}
	stream := &core.CaptureStream{
		Handle:    fmt.Sprintf("recorder-stream-%d", len(r.Streams)+1),
		SessionID: s,
		EISFd:     -1,
	}
	r.Streams[s] = stream
	return stream, nil
}

func (r *Recorder) StopCapture(_ context.Context, s core.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Streams, s)
	return nil
}
