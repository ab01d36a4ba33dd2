package backend

import (
	"context"

	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/logger"
)

// X11Backend is a placeholder driver for X11 sessions. It honours the
// contract and logs the injections it would perform via XTest; real
// injection lands when the XTest bindings are wired up.
//
// TODO: wire github.com/jezek/xgb and the XTest extension for real
// injection.
type X11Backend struct{}

func NewX11Backend() *X11Backend {
	return &X11Backend{}
}

func (b *X11Backend) Capabilities() Capabilities {
	return Capabilities{
		BackendName:       "x11",
		DisplayServer:     DisplayServerX11,
		CanInjectKeyboard: true,
		CanInjectPointer:  true,
		CanInjectTouch:    false,
		CanCaptureScreen:  false,
		CanCaptureWindow:  false,
	}
}

func (b *X11Backend) Connect(context.Context) error {
	logger.Info("x11 backend connected (placeholder injection)")
	return nil
}

func (b *X11Backend) Disconnect() error {
	return nil
}

func (b *X11Backend) InjectPointerMotion(_ context.Context, session core.SessionID, dx, dy float64, _ uint32) error {
	logger.Debugf("x11: would XTest-move pointer by (%f, %f) for %s", dx, dy, session)
	return nil
}

func (b *X11Backend) InjectPointerMotionAbsolute(_ context.Context, session core.SessionID, x, y float64, _ uint32) error {
	logger.Debugf("x11: would XTest-warp pointer to (%f, %f) for %s", x, y, session)
	return nil
}

func (b *X11Backend) InjectPointerButton(_ context.Context, session core.SessionID, button int32, state core.ButtonState, _ uint32) error {
	logger.Debugf("x11: would XTest button 0x%x %s for %s", button, state, session)
	return nil
}

func (b *X11Backend) InjectPointerAxis(_ context.Context, session core.SessionID, axis core.Axis, delta float64, _ uint32) error {
	logger.Debugf("x11: would XTest scroll %s %f for %s", axis, delta, session)
	return nil
}

func (b *X11Backend) InjectPointerAxisDiscrete(_ context.Context, session core.SessionID, axis core.Axis, steps int32, _ uint32) error {
	logger.Debugf("x11: would XTest scroll %s %d clicks for %s", axis, steps, session)
	return nil
}

func (b *X11Backend) InjectKeyboardKeycode(_ context.Context, session core.SessionID, keycode int32, state core.KeyState, _ uint32) error {
	logger.Debugf("x11: would XTest key %d %s for %s", keycode, state, session)
	return nil
}

func (b *X11Backend) InjectKeyboardKeysym(_ context.Context, session core.SessionID, keysym int32, state core.KeyState, _ uint32) error {
	logger.Debugf("x11: would XTest keysym %d %s for %s", keysym, state, session)
	return nil
}

func (b *X11Backend) InjectTouchDown(context.Context, core.SessionID, uint32, float64, float64, uint32) error {
	return ErrUnsupported
}

func (b *X11Backend) InjectTouchMotion(context.Context, core.SessionID, uint32, float64, float64, uint32) error {
	return ErrUnsupported
}

func (b *X11Backend) InjectTouchUp(context.Context, core.SessionID, uint32, uint32) error {
	return ErrUnsupported
}

func (b *X11Backend) StartCapture(context.Context, core.SessionID, core.SourceType, core.CursorMode) (*core.CaptureStream, error) {
	return nil, ErrUnsupported
}

func (b *X11Backend) StopCapture(context.Context, core.SessionID) error {
	return nil
}
