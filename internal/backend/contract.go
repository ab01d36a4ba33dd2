// Package backend defines the compositor backend contract and the
// providers that bind the portal to a concrete display server.
package backend

import (
	"context"
	"errors"

	"github.com/bnema/wayportal/internal/core"
)

// Backend method failure sentinels. Anything else a backend returns is
// treated as an opaque failure and wrapped by the caller.
var (
	// ErrUnsupported means the backend lacks the capability for the
	// attempted operation.
	ErrUnsupported = errors.New("operation not supported by backend")
	// ErrPermissionDenied means the display server refused the request.
	ErrPermissionDenied = errors.New("permission denied by display server")
	// ErrTransient means the operation failed but may succeed if retried.
	ErrTransient = errors.New("transient backend failure")
)

// Capabilities describes what a backend instance can do. It is static
// once the instance is connected and consulted when devices and sources
// are selected.
type Capabilities struct {
	BackendName   string
	DisplayServer DisplayServer

	CanInjectKeyboard bool
	CanInjectPointer  bool
	CanInjectTouch    bool
	CanCaptureScreen  bool
	CanCaptureWindow  bool

	// CursorModes is the set of cursor modes capture supports.
	CursorModes core.CursorMode
}

// DeviceTypes folds the injection capabilities into a device flag set.
func (c Capabilities) DeviceTypes() core.DeviceType {
	var d core.DeviceType
	if c.CanInjectKeyboard {
		d |= core.DeviceKeyboard
	}
	if c.CanInjectPointer {
		d |= core.DevicePointer
	}
	if c.CanInjectTouch {
		d |= core.DeviceTouchscreen
	}
	return d
}

// SourceTypes folds the capture capabilities into a source flag set.
func (c Capabilities) SourceTypes() core.SourceType {
	var s core.SourceType
	if c.CanCaptureScreen {
		s |= core.SourceMonitor
	}
	if c.CanCaptureWindow {
		s |= core.SourceWindow
	}
	return s
}

// CompositorBackend is the capability surface a compositor driver
// implements. Implementations must be safe for concurrent calls across
// distinct sessions; per-session serialisation is the session manager's
// job, not the backend's.
//
// Connect and Disconnect are idempotent. Connect probes for optional
// protocols and must not fail just because some are missing; missing
// protocols are reflected in Capabilities instead.
type CompositorBackend interface {
	Capabilities() Capabilities
	Connect(ctx context.Context) error
	Disconnect() error

	InjectPointerMotion(ctx context.Context, session core.SessionID, dx, dy float64, timeMs uint32) error
	InjectPointerMotionAbsolute(ctx context.Context, session core.SessionID, x, y float64, timeMs uint32) error
	InjectPointerButton(ctx context.Context, session core.SessionID, button int32, state core.ButtonState, timeMs uint32) error
	InjectPointerAxis(ctx context.Context, session core.SessionID, axis core.Axis, delta float64, timeMs uint32) error
	InjectPointerAxisDiscrete(ctx context.Context, session core.SessionID, axis core.Axis, steps int32, timeMs uint32) error
	InjectKeyboardKeycode(ctx context.Context, session core.SessionID, keycode int32, state core.KeyState, timeMs uint32) error
	InjectKeyboardKeysym(ctx context.Context, session core.SessionID, keysym int32, state core.KeyState, timeMs uint32) error
	InjectTouchDown(ctx context.Context, session core.SessionID, slot uint32, x, y float64, timeMs uint32) error
	InjectTouchMotion(ctx context.Context, session core.SessionID, slot uint32, x, y float64, timeMs uint32) error
	InjectTouchUp(ctx context.Context, session core.SessionID, slot uint32, timeMs uint32) error

	StartCapture(ctx context.Context, session core.SessionID, sources core.SourceType, cursor core.CursorMode) (*core.CaptureStream, error)
	StopCapture(ctx context.Context, session core.SessionID) error
}

// Provider knows how to probe for and construct one backend kind.
// Providers are registered in a fixed priority list; discovery picks
// the first available one.
type Provider interface {
	// ID is the stable identifier used in config overrides and
	// discovery failure messages.
	ID() string
	// Name is the human-readable backend name.
	Name() string
	// IsAvailable probes the environment without side effects.
	IsAvailable() bool
	// Capabilities reports what a backend from this provider could do,
	// without connecting.
	Capabilities() Capabilities
	// CreateBackend constructs and connects a backend. Returns nil if
	// the environment turned out not to support it after all.
	CreateBackend(ctx context.Context) (CompositorBackend, error)
}
