// Package dispatch routes validated input events into the compositor
// backend. It owns the device-class authorization check and the
// numeric clamping at the backend boundary.
package dispatch

import (
	"context"
	"errors"
	"math"

	"github.com/bnema/wayportal/internal/backend"
	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/metrics"
)

// Dispatcher is stateless aside from the backend reference.
type Dispatcher struct {
	backend backend.CompositorBackend
}

// New wraps a backend.
func New(b backend.CompositorBackend) *Dispatcher {
	return &Dispatcher{backend: b}
}

// Backend exposes the wrapped backend for capture calls.
func (d *Dispatcher) Backend() backend.CompositorBackend {
	return d.backend
}

// Authorize checks that the event's device class is within the
// session's granted set.
func Authorize(granted core.DeviceType, ev core.InputEvent) error {
	if !granted.Has(ev.Class()) {
		return &core.Error{
			Kind:    core.KindDeviceNotAuthorized,
			Message: ev.Class().String() + " not granted",
		}
	}
	return nil
}

// Dispatch authorizes the event against the granted device classes and
// forwards it to the backend method matching its variant. Backend
// failures are wrapped, preserving the backend message; unsupported
// operations surface as KindUnsupported.
func (d *Dispatcher) Dispatch(ctx context.Context, session core.SessionID, granted core.DeviceType, ev core.InputEvent, timeMs uint32) error {
	if err := Authorize(granted, ev); err != nil {
		return err
	}

	var err error
	switch e := ev.(type) {
	case core.PointerMotion:
		err = d.backend.InjectPointerMotion(ctx, session, e.Dx, e.Dy, timeMs)
	case core.PointerMotionAbsolute:
		x := clamp(e.X, float64(e.Width))
		y := clamp(e.Y, float64(e.Height))
		err = d.backend.InjectPointerMotionAbsolute(ctx, session, x, y, timeMs)
	case core.PointerButton:
		err = d.backend.InjectPointerButton(ctx, session, e.Button, e.State, timeMs)
	case core.PointerAxis:
		err = d.backend.InjectPointerAxis(ctx, session, e.Axis, e.Delta, timeMs)
	case core.PointerAxisDiscrete:
		err = d.backend.InjectPointerAxisDiscrete(ctx, session, e.Axis, e.Steps, timeMs)
	case core.KeyboardKeycode:
		err = d.backend.InjectKeyboardKeycode(ctx, session, e.Keycode, e.State, timeMs)
	case core.KeyboardKeysym:
		err = d.backend.InjectKeyboardKeysym(ctx, session, e.Keysym, e.State, timeMs)
	case core.TouchDown:
		x := clamp(e.X, float64(e.Width))
		y := clamp(e.Y, float64(e.Height))
		err = d.backend.InjectTouchDown(ctx, session, e.Slot, x, y, timeMs)
	case core.TouchMotion:
		x := clamp(e.X, float64(e.Width))
		y := clamp(e.Y, float64(e.Height))
		err = d.backend.InjectTouchMotion(ctx, session, e.Slot, x, y, timeMs)
	case core.TouchUp:
		err = d.backend.InjectTouchUp(ctx, session, e.Slot, timeMs)
	default:
		return &core.Error{Kind: core.KindUnsupported, Message: "unknown event variant"}
	}

	if err != nil {
		if errors.Is(err, backend.ErrUnsupported) {
			return &core.Error{Kind: core.KindUnsupported, Message: ev.Name(), Inner: err}
		}
		return core.BackendFailed(ev.Name(), err)
	}

	metrics.EventsDispatched.WithLabelValues(ev.Name()).Inc()
	return nil
}

// clamp restricts v to [0, limit). Non-finite values collapse to 0.
func clamp(v, limit float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if limit > 0 && v >= limit {
		return math.Nextafter(limit, 0)
	}
	return v
}
