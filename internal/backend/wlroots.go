package backend

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bnema/wayland-virtual-input-go/virtual_keyboard"
	"github.com/bnema/wayland-virtual-input-go/virtual_pointer"
	"github.com/google/uuid"

	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/logger"
)

// Wheel click distance in continuous-axis units, matching the Wayland
// convention of 15 units per detent.
const wheelClickDelta = 15.0

// WlrootsBackend injects input through the zwlr_virtual_pointer_v1 and
// zwp_virtual_keyboard_v1 protocols. Works on Sway, Hyprland, River and
// other wlroots-based compositors without special privileges.
type WlrootsBackend struct {
	mu sync.Mutex

	pointerMgr  *virtual_pointer.VirtualPointerManager
	pointer     *virtual_pointer.VirtualPointer
	keyboardMgr *virtual_keyboard.VirtualKeyboardManager
	keyboard    *virtual_keyboard.VirtualKeyboard

	connected bool

	// The virtual pointer protocol is relative-only, so absolute
	// positioning converts against the tracked position.
	curX, curY     float64
	posInitialized bool

	// Active capture streams keyed by session, plus dup'ed EIS
	// descriptors kept alive for the stream lifetime.
	streams  map[core.SessionID]*core.CaptureStream
	eisFiles map[core.SessionID]*os.File
}

// NewWlrootsBackend returns an unconnected backend.
func NewWlrootsBackend() *WlrootsBackend {
	return &WlrootsBackend{
		streams:  make(map[core.SessionID]*core.CaptureStream),
		eisFiles: make(map[core.SessionID]*os.File),
	}
}

// Capabilities reports keyboard injection unless Connect ran and found
// no virtual keyboard protocol.
func (b *WlrootsBackend) Capabilities() Capabilities {
	b.mu.Lock()
	keyboard := !b.connected || b.keyboard != nil
	b.mu.Unlock()

	return Capabilities{
		BackendName:       "wlroots virtual input",
		DisplayServer:     DisplayServerWayland,
		CanInjectKeyboard: keyboard,
		CanInjectPointer:  true,
		CanInjectTouch:    false,
		CanCaptureScreen:  true,
		CanCaptureWindow:  false,
		CursorModes:       core.CursorHidden | core.CursorEmbedded,
	}
}

// Connect creates the virtual devices. Idempotent. A missing keyboard
// protocol does not fail the connect; keyboard injection then reports
// ErrUnsupported.
func (b *WlrootsBackend) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return nil
	}

	pointerMgr, err := virtual_pointer.NewVirtualPointerManager(ctx)
	if err != nil {
		return fmt.Errorf("create virtual pointer manager: %w", err)
	}
	pointer, err := pointerMgr.CreatePointer()
	if err != nil {
		pointerMgr.Close()
		return fmt.Errorf("create virtual pointer: %w", err)
	}
	b.pointerMgr = pointerMgr
	b.pointer = pointer

	keyboardMgr, err := virtual_keyboard.NewVirtualKeyboardManager(ctx)
	if err != nil {
		logger.Warnf("virtual keyboard protocol unavailable, keyboard injection disabled: %v", err)
	} else {
		keyboard, err := keyboardMgr.CreateKeyboard()
		if err != nil {
			logger.Warnf("create virtual keyboard failed, keyboard injection disabled: %v", err)
			keyboardMgr.Close()
		} else {
			b.keyboardMgr = keyboardMgr
			b.keyboard = keyboard
		}
	}

	b.connected = true
	logger.Info("wlroots virtual input connected")
	return nil
}

func (b *WlrootsBackend) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil
	}
	b.connected = false

	if b.keyboard != nil {
		if err := b.keyboard.Close(); err != nil {
			logger.Errorf("close virtual keyboard: %v", err)
		}
		b.keyboard = nil
	}
	if b.keyboardMgr != nil {
		if err := b.keyboardMgr.Close(); err != nil {
			logger.Errorf("close virtual keyboard manager: %v", err)
		}
		b.keyboardMgr = nil
	}
	if b.pointer != nil {
		if err := b.pointer.Close(); err != nil {
			logger.Errorf("close virtual pointer: %v", err)
		}
		b.pointer = nil
	}
	if b.pointerMgr != nil {
		if err := b.pointerMgr.Close(); err != nil {
			logger.Errorf("close virtual pointer manager: %v", err)
		}
		b.pointerMgr = nil
	}
	return nil
}

func (b *WlrootsBackend) InjectPointerMotion(_ context.Context, _ core.SessionID, dx, dy float64, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pointer == nil {
		return ErrUnsupported
	}
	b.curX += dx
	b.curY += dy
	b.pointer.MoveRelative(dx, dy)
	b.pointer.Frame()
	return nil
}

func (b *WlrootsBackend) InjectPointerMotionAbsolute(_ context.Context, _ core.SessionID, x, y float64, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pointer == nil {
		return ErrUnsupported
	}

	// First absolute event seeds the tracked position instead of
	// sweeping the pointer across the whole surface.
	dx, dy := x-b.curX, y-b.curY
	if !b.posInitialized {
		dx, dy = 0, 0
		b.posInitialized = true
	}
	b.curX, b.curY = x, y

	if dx != 0 || dy != 0 {
		b.pointer.MoveRelative(dx, dy)
		b.pointer.Frame()
	}
	return nil
}

func (b *WlrootsBackend) InjectPointerButton(_ context.Context, _ core.SessionID, button int32, state core.ButtonState, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pointer == nil {
		return ErrUnsupported
	}
	st := virtual_pointer.BUTTON_STATE_RELEASED
	if state == core.ButtonPressed {
		st = virtual_pointer.BUTTON_STATE_PRESSED
	}
	b.pointer.Button(time.Now(), uint32(button), st)
	b.pointer.Frame()
	return nil
}

func (b *WlrootsBackend) InjectPointerAxis(_ context.Context, _ core.SessionID, axis core.Axis, delta float64, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pointer == nil {
		return ErrUnsupported
	}
	if axis == core.AxisHorizontal {
		b.pointer.ScrollHorizontal(delta)
	} else {
		b.pointer.ScrollVertical(delta)
	}
	b.pointer.Frame()
	return nil
}

func (b *WlrootsBackend) InjectPointerAxisDiscrete(ctx context.Context, session core.SessionID, axis core.Axis, steps int32, timeMs uint32) error {
	return b.InjectPointerAxis(ctx, session, axis, float64(steps)*wheelClickDelta, timeMs)
}

func (b *WlrootsBackend) InjectKeyboardKeycode(_ context.Context, _ core.SessionID, keycode int32, state core.KeyState, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.keyboard == nil {
		return ErrUnsupported
	}
	st := virtual_keyboard.KeyStateReleased
	if state == core.KeyPressed {
		st = virtual_keyboard.KeyStatePressed
	}
	return b.keyboard.Key(time.Now(), uint32(keycode), st)
}

// InjectKeyboardKeysym is unsupported: the virtual keyboard protocol
// takes scancodes against an uploaded keymap, and the portal does not
// own the client's keymap.
func (b *WlrootsBackend) InjectKeyboardKeysym(context.Context, core.SessionID, int32, core.KeyState, uint32) error {
	return ErrUnsupported
}

func (b *WlrootsBackend) InjectTouchDown(context.Context, core.SessionID, uint32, float64, float64, uint32) error {
	return ErrUnsupported
}

func (b *WlrootsBackend) InjectTouchMotion(context.Context, core.SessionID, uint32, float64, float64, uint32) error {
	return ErrUnsupported
}

func (b *WlrootsBackend) InjectTouchUp(context.Context, core.SessionID, uint32, uint32) error {
	return ErrUnsupported
}

// StartCapture hands out an opaque stream handle. When the compositor
// exposes an EIS socket its descriptor rides along so clients can drive
// input through libei instead of the portal verbs.
func (b *WlrootsBackend) StartCapture(_ context.Context, session core.SessionID, sources core.SourceType, _ core.CursorMode) (*core.CaptureStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return nil, ErrTransient
	}
	if !sources.Has(core.SourceMonitor) {
		return nil, ErrUnsupported
	}
	if s, ok := b.streams[session]; ok {
		return s, nil
	}

	stream := &core.CaptureStream{
		Handle:    uuid.NewString(),
		SessionID: session,
		EISFd:     -1,
	}
	if f, err := ConnectEIS(); err == nil {
		stream.EISFd = int(f.Fd())
		b.eisFiles[session] = f
	}

	b.streams[session] = stream
	logger.Infof("capture stream %s started for session %s", stream.Handle, session)
	return stream, nil
}

func (b *WlrootsBackend) StopCapture(_ context.Context, session core.SessionID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.streams, session)
	if f, ok := b.eisFiles[session]; ok {
		if err := f.Close(); err != nil {
			logger.Errorf("close EIS fd for session %s: %v", session, err)
		}
		delete(b.eisFiles, session)
	}
	return nil
}
