// Package portal implements the remote-desktop portal verbs: session
// sequencing, authorization, admission control and dispatch into the
// compositor backend.
package portal

import (
	"context"

	"github.com/google/uuid"

	"github.com/bnema/wayportal/internal/backend"
	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/dispatch"
	"github.com/bnema/wayportal/internal/logger"
	"github.com/bnema/wayportal/internal/metrics"
	"github.com/bnema/wayportal/internal/ratelimit"
	"github.com/bnema/wayportal/internal/session"
)

// Portal wires the session manager, the rate limiter and the dispatch
// layer to one compositor backend.
type Portal struct {
	manager    *session.Manager
	limiter    *ratelimit.Limiter
	dispatcher *dispatch.Dispatcher
}

// New builds a portal over a connected backend.
func New(manager *session.Manager, limiter *ratelimit.Limiter, b backend.CompositorBackend) *Portal {
	return &Portal{
		manager:    manager,
		limiter:    limiter,
		dispatcher: dispatch.New(b),
	}
}

// Manager exposes the session manager for event subscription and
// diagnostics.
func (p *Portal) Manager() *session.Manager {
	return p.manager
}

// Capabilities reports the bound backend's capability descriptor.
func (p *Portal) Capabilities() backend.Capabilities {
	return p.dispatcher.Backend().Capabilities()
}

// DeviceRequest carries the SelectDevices options.
type DeviceRequest struct {
	Types        core.DeviceType
	RestoreToken string
	PersistMode  core.PersistMode
}

// SourceRequest carries the SelectSources options.
type SourceRequest struct {
	Types        core.SourceType
	Multiple     bool
	CursorMode   core.CursorMode
	RestoreToken string
}

// StartResult is returned by Start.
type StartResult struct {
	Capabilities core.SessionCapabilities
	Stream       *core.CaptureStream
	RestoreToken string
}

// CreateSession registers a new session for a client.
func (p *Portal) CreateSession(_ context.Context, id core.SessionID, appID string) error {
	if err := p.manager.Create(id, appID); err != nil {
		return err
	}
	metrics.SessionsCreated.Inc()
	return nil
}

// SelectDevices records the device classes the session may control:
// the requested set intersected with what the backend can inject. An
// empty grant fails and leaves the session state unchanged.
func (p *Portal) SelectDevices(_ context.Context, id core.SessionID, req DeviceRequest) (core.DeviceType, error) {
	caps := p.Capabilities()
	var granted core.DeviceType

	err := p.manager.With(id, func(s *core.Session) error {
		if !s.State.CanSelectDevices() {
			return core.InvalidStatef("select_devices", s.State)
		}
		if req.Types.IsEmpty() {
			return &core.Error{Kind: core.KindNoDevicesGranted, Message: "empty device request"}
		}
		granted = req.Types.Intersect(caps.DeviceTypes())
		if granted.IsEmpty() {
			return &core.Error{
				Kind:    core.KindNoDevicesGranted,
				Message: "requested " + req.Types.String() + ", backend supports " + caps.DeviceTypes().String(),
			}
		}

		s.DevicesRequested = req.Types
		s.DevicesGranted = granted
		s.PersistMode = req.PersistMode
		if req.RestoreToken != "" {
			s.RestoreToken = req.RestoreToken
		}
		if s.State == core.StateSourcesSelected {
			s.State = core.StateDevicesAndSourcesSelected
		} else {
			s.State = core.StateDevicesSelected
		}
		s.Touch()
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Debugf("session %s devices granted: %s", id, granted)
	p.manager.Emit(id, core.LifecycleEvent{Kind: core.LifecycleDevicesSelected})
	return granted, nil
}

// SelectSources records the capture sources. Permitted before start
// only; re-negotiation replaces the previous grant.
func (p *Portal) SelectSources(_ context.Context, id core.SessionID, req SourceRequest) (core.SourceType, error) {
	caps := p.Capabilities()
	var granted core.SourceType

	err := p.manager.With(id, func(s *core.Session) error {
		if !s.State.CanSelectSources() {
			return core.InvalidStatef("select_sources", s.State)
		}
		granted = req.Types.Intersect(caps.SourceTypes())
		if granted.IsEmpty() {
			return &core.Error{
				Kind:    core.KindNothingGranted,
				Message: "requested " + req.Types.String() + ", backend supports " + caps.SourceTypes().String(),
			}
		}
		if req.CursorMode != 0 && caps.CursorModes&req.CursorMode == 0 {
			return &core.Error{
				Kind:    core.KindUnsupported,
				Message: "cursor mode " + req.CursorMode.String(),
			}
		}

		s.SourcesRequested = req.Types
		s.SourcesGranted = granted
		if req.CursorMode != 0 {
			s.CursorMode = req.CursorMode
		}
		if req.RestoreToken != "" {
			s.RestoreToken = req.RestoreToken
		}
		if s.State == core.StateDevicesSelected {
			s.State = core.StateDevicesAndSourcesSelected
		} else if s.State == core.StateCreated {
			s.State = core.StateSourcesSelected
		}
		s.Touch()
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Debugf("session %s sources granted: %s", id, granted)
	p.manager.Emit(id, core.LifecycleEvent{Kind: core.LifecycleSourcesSelected})
	return granted, nil
}

// Start activates the session. A capture stream is requested from the
// backend only when sources were granted, and the state commits only
// after the backend call succeeds.
func (p *Portal) Start(ctx context.Context, id core.SessionID) (StartResult, error) {
	var result StartResult

	err := p.manager.With(id, func(s *core.Session) error {
		if !s.State.CanStart() {
			return core.InvalidStatef("start", s.State)
		}
		mode := core.ComputeMode(s.DevicesGranted, s.SourcesGranted)
		if mode == core.ModeInvalid {
			return &core.Error{Kind: core.KindNothingGranted, Message: "no devices or sources granted"}
		}

		if !s.SourcesGranted.IsEmpty() {
			stream, err := p.dispatcher.Backend().StartCapture(ctx, s.ID, s.SourcesGranted, s.CursorMode)
			if err != nil {
				return core.BackendFailed("start_capture", err)
			}
			s.CaptureStream = stream
			result.Stream = stream
		}

		if s.PersistMode != core.PersistNone && s.RestoreToken == "" {
			s.RestoreToken = uuid.NewString()
		}
		result.RestoreToken = s.RestoreToken
		result.Capabilities = core.SessionCapabilities{
			Mode:    mode,
			Devices: s.DevicesGranted,
			Sources: s.SourcesGranted,
		}

		s.State = core.StateStarted
		s.Touch()
		return nil
	})
	if err != nil {
		return StartResult{}, err
	}

	logger.Infof("session %s started (%s)", id, result.Capabilities.Mode)
	p.manager.Emit(id, core.LifecycleEvent{Kind: core.LifecycleStarted})
	return result, nil
}

// Close tears the session down: the capture stream is released, the
// session removed and the rate-limiter bucket dropped, strictly in
// that order. Idempotent.
func (p *Portal) Close(ctx context.Context, id core.SessionID) error {
	err := p.manager.Close(id, func(s *core.Session) {
		if s.CaptureStream != nil {
			if serr := p.dispatcher.Backend().StopCapture(ctx, s.ID); serr != nil {
				logger.Errorf("stop capture for session %s: %v", s.ID, serr)
			}
			s.CaptureStream = nil
		}
	})
	if err != nil {
		return err
	}
	p.limiter.Forget(id)
	metrics.SessionsClosed.Inc()
	return nil
}

// notify admits one input event and dispatches it. The whole path runs
// under the per-session lock, so the backend observes events in
// admission order.
func (p *Portal) notify(ctx context.Context, id core.SessionID, ev core.InputEvent, timeMs uint32) error {
	err := p.manager.With(id, func(s *core.Session) error {
		if s.State != core.StateStarted {
			return core.InvalidStatef(ev.Name(), s.State)
		}
		if err := dispatch.Authorize(s.DevicesGranted, ev); err != nil {
			return err
		}

		decision := p.limiter.Check(id)
		if !decision.Allowed {
			metrics.EventsRateLimited.Inc()
			return core.RateLimitedAfter(decision.RetryAfter)
		}
		metrics.EventsAdmitted.Inc()

		if err := p.dispatcher.Dispatch(ctx, id, s.DevicesGranted, ev, timeMs); err != nil {
			metrics.DispatchFailures.Inc()
			return err
		}
		s.Touch()
		return nil
	})
	if err != nil {
		return err
	}

	p.manager.Emit(id, core.LifecycleEvent{Kind: core.LifecycleInputDispatched, Input: ev.Name()})
	return nil
}

// NotifyPointerMotion injects a relative pointer move.
func (p *Portal) NotifyPointerMotion(ctx context.Context, id core.SessionID, dx, dy float64) error {
	return p.notify(ctx, id, core.PointerMotion{Dx: dx, Dy: dy}, 0)
}

// NotifyPointerMotionAbsolute positions the pointer within a virtual
// surface of the given size.
func (p *Portal) NotifyPointerMotionAbsolute(ctx context.Context, id core.SessionID, x, y float64, width, height uint32) error {
	return p.notify(ctx, id, core.PointerMotionAbsolute{X: x, Y: y, Width: width, Height: height}, 0)
}

// NotifyPointerButton presses or releases a pointer button.
func (p *Portal) NotifyPointerButton(ctx context.Context, id core.SessionID, button int32, state core.ButtonState) error {
	return p.notify(ctx, id, core.PointerButton{Button: button, State: state}, 0)
}

// NotifyPointerAxis injects continuous scroll.
func (p *Portal) NotifyPointerAxis(ctx context.Context, id core.SessionID, axis core.Axis, delta float64) error {
	return p.notify(ctx, id, core.PointerAxis{Axis: axis, Delta: delta}, 0)
}

// NotifyPointerAxisDiscrete injects discrete wheel clicks.
func (p *Portal) NotifyPointerAxisDiscrete(ctx context.Context, id core.SessionID, axis core.Axis, steps int32) error {
	return p.notify(ctx, id, core.PointerAxisDiscrete{Axis: axis, Steps: steps}, 0)
}

// NotifyKeyboardKeycode injects a hardware scancode.
func (p *Portal) NotifyKeyboardKeycode(ctx context.Context, id core.SessionID, keycode int32, state core.KeyState) error {
	return p.notify(ctx, id, core.KeyboardKeycode{Keycode: keycode, State: state}, 0)
}

// NotifyKeyboardKeysym injects a logical key symbol.
func (p *Portal) NotifyKeyboardKeysym(ctx context.Context, id core.SessionID, keysym int32, state core.KeyState) error {
	return p.notify(ctx, id, core.KeyboardKeysym{Keysym: keysym, State: state}, 0)
}

// NotifyTouchDown begins a touch contact.
func (p *Portal) NotifyTouchDown(ctx context.Context, id core.SessionID, slot uint32, x, y float64, width, height uint32) error {
	return p.notify(ctx, id, core.TouchDown{Slot: slot, X: x, Y: y, Width: width, Height: height}, 0)
}

// NotifyTouchMotion moves a touch contact.
func (p *Portal) NotifyTouchMotion(ctx context.Context, id core.SessionID, slot uint32, x, y float64, width, height uint32) error {
	return p.notify(ctx, id, core.TouchMotion{Slot: slot, X: x, Y: y, Width: width, Height: height}, 0)
}

// NotifyTouchUp ends a touch contact.
func (p *Portal) NotifyTouchUp(ctx context.Context, id core.SessionID, slot uint32) error {
	return p.notify(ctx, id, core.TouchUp{Slot: slot}, 0)
}

// Shutdown closes every session and disconnects the backend.
func (p *Portal) Shutdown(ctx context.Context) {
	p.manager.CloseAll(func(s *core.Session) {
		if s.CaptureStream != nil {
			if err := p.dispatcher.Backend().StopCapture(ctx, s.ID); err != nil {
				logger.Errorf("stop capture for session %s: %v", s.ID, err)
			}
			s.CaptureStream = nil
		}
	})
	if err := p.dispatcher.Backend().Disconnect(); err != nil {
		logger.Errorf("backend disconnect: %v", err)
	}
}
