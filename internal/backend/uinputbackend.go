package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThomasT75/uinput"

	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/logger"
)

// Linux input-event button codes, as delivered by clients.
const (
	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
)

// UinputBackend injects input through /dev/uinput. It works on any
// display server but needs write access to the uinput device, so it
// ranks below the compositor-native backends.
type UinputBackend struct {
	mu       sync.Mutex
	mouse    uinput.Mouse
	keyboard uinput.Keyboard
	closed   bool
}

// NewUinputBackend creates the virtual devices.
func NewUinputBackend() (*UinputBackend, error) {
	mouse, err := uinput.CreateMouse("/dev/uinput", []byte("wayportal virtual mouse"))
	if err != nil {
		return nil, fmt.Errorf("create virtual mouse: %w", err)
	}
	keyboard, err := uinput.CreateKeyboard("/dev/uinput", []byte("wayportal virtual keyboard"))
	if err != nil {
		if cerr := mouse.Close(); cerr != nil {
			logger.Errorf("close virtual mouse: %v", cerr)
		}
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	return &UinputBackend{mouse: mouse, keyboard: keyboard}, nil
}

func (b *UinputBackend) Capabilities() Capabilities {
	return Capabilities{
		BackendName:       "uinput",
		DisplayServer:     DetectDisplayServer(),
		CanInjectKeyboard: true,
		CanInjectPointer:  true,
		CanInjectTouch:    false,
		CanCaptureScreen:  false,
		CanCaptureWindow:  false,
	}
}

// Connect is a no-op: the devices are created in NewUinputBackend.
func (b *UinputBackend) Connect(context.Context) error {
	return nil
}

func (b *UinputBackend) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	err := b.mouse.Close()
	if kerr := b.keyboard.Close(); kerr != nil && err == nil {
		err = kerr
	}
	return err
}

func (b *UinputBackend) InjectPointerMotion(_ context.Context, _ core.SessionID, dx, dy float64, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrTransient
	}
	return b.mouse.Move(int32(dx), int32(dy))
}

// InjectPointerMotionAbsolute is unsupported: a uinput relative mouse
// has no absolute axes.
func (b *UinputBackend) InjectPointerMotionAbsolute(context.Context, core.SessionID, float64, float64, uint32) error {
	return ErrUnsupported
}

func (b *UinputBackend) InjectPointerButton(_ context.Context, _ core.SessionID, button int32, state core.ButtonState, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrTransient
	}
	pressed := state == core.ButtonPressed
	switch button {
	case btnLeft:
		if pressed {
			return b.mouse.LeftPress()
		}
		return b.mouse.LeftRelease()
	case btnRight:
		if pressed {
			return b.mouse.RightPress()
		}
		return b.mouse.RightRelease()
	case btnMiddle:
		if pressed {
			return b.mouse.MiddlePress()
		}
		return b.mouse.MiddleRelease()
	default:
		return fmt.Errorf("button 0x%x: %w", button, ErrUnsupported)
	}
}

func (b *UinputBackend) InjectPointerAxis(ctx context.Context, session core.SessionID, axis core.Axis, delta float64, timeMs uint32) error {
	// uinput wheels are discrete; fold continuous deltas into whole
	// clicks and drop the remainder.
	steps := int32(delta / wheelClickDelta)
	if steps == 0 && delta != 0 {
		if delta > 0 {
			steps = 1
		} else {
			steps = -1
		}
	}
	return b.InjectPointerAxisDiscrete(ctx, session, axis, steps, timeMs)
}

func (b *UinputBackend) InjectPointerAxisDiscrete(_ context.Context, _ core.SessionID, axis core.Axis, steps int32, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrTransient
	}
	if steps == 0 {
		return nil
	}
	// Positive portal deltas scroll down; uinput wheels count up.
	return b.mouse.Wheel(axis == core.AxisHorizontal, -steps)
}

func (b *UinputBackend) InjectKeyboardKeycode(_ context.Context, _ core.SessionID, keycode int32, state core.KeyState, _ uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrTransient
	}
	if state == core.KeyPressed {
		return b.keyboard.KeyDown(int(keycode))
	}
	return b.keyboard.KeyUp(int(keycode))
}

// InjectKeyboardKeysym is unsupported: uinput speaks scancodes only.
func (b *UinputBackend) InjectKeyboardKeysym(context.Context, core.SessionID, int32, core.KeyState, uint32) error {
	return ErrUnsupported
}

func (b *UinputBackend) InjectTouchDown(context.Context, core.SessionID, uint32, float64, float64, uint32) error {
	return ErrUnsupported
}

func (b *UinputBackend) InjectTouchMotion(context.Context, core.SessionID, uint32, float64, float64, uint32) error {
	return ErrUnsupported
}

func (b *UinputBackend) InjectTouchUp(context.Context, core.SessionID, uint32, uint32) error {
	return ErrUnsupported
}

func (b *UinputBackend) StartCapture(context.Context, core.SessionID, core.SourceType, core.CursorMode) (*core.CaptureStream, error) {
	return nil, ErrUnsupported
}

func (b *UinputBackend) StopCapture(context.Context, core.SessionID) error {
	return nil
}
