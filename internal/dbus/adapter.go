// Package dbusadapter exposes the portal verbs on the session bus as
// org.freedesktop.impl.portal.RemoteDesktop. The adapter owns no
// session state: it translates method calls into portal verbs and
// portal errors into response codes and D-Bus errors.
package dbusadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/logger"
	"github.com/bnema/wayportal/internal/portal"
)

const (
	// PortalPath is the object path every portal implementation
	// exports at.
	PortalPath = "/org/freedesktop/portal/desktop"
	// RemoteDesktopInterface is the backend-side portal interface.
	RemoteDesktopInterface = "org.freedesktop.impl.portal.RemoteDesktop"

	errorPrefix = "org.freedesktop.portal.Error."
)

// Response codes of the portal request contract.
const (
	ResponseSuccess   uint32 = 0
	ResponseCancelled uint32 = 1
	ResponseOther     uint32 = 2
)

// Adapter bridges D-Bus method calls to the portal core.
type Adapter struct {
	portal  *portal.Portal
	conn    *dbus.Conn
	busName string
}

// New builds an adapter for the portal.
func New(p *portal.Portal, busName string) *Adapter {
	return &Adapter{portal: p, busName: busName}
}

// Connect claims the bus name and exports the interface. Separate from
// Run so startup failures surface synchronously.
func (a *Adapter) Connect() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	a.conn = conn

	if err := conn.Export(a, PortalPath, RemoteDesktopInterface); err != nil {
		return fmt.Errorf("export portal interface: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(a.introspection()), PortalPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}

	reply, err := conn.RequestName(a.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name %s: %w", a.busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already owned", a.busName)
	}

	logger.Infof("portal exported on %s at %s", a.busName, PortalPath)
	return nil
}

// Run blocks until the context ends, then releases the bus.
func (a *Adapter) Run(ctx context.Context) error {
	<-ctx.Done()
	if a.conn != nil {
		if _, err := a.conn.ReleaseName(a.busName); err != nil {
			logger.Errorf("release bus name: %v", err)
		}
		if err := a.conn.Close(); err != nil {
			logger.Errorf("close bus connection: %v", err)
		}
	}
	return ctx.Err()
}

// dbusError maps a portal error onto a named D-Bus error so clients
// can branch on the kind without parsing messages.
func dbusError(err error) *dbus.Error {
	var e *core.Error
	if !errors.As(err, &e) {
		return dbus.MakeFailedError(err)
	}
	body := []interface{}{e.Error()}
	if e.Kind == core.KindRateLimited {
		body = append(body, uint64(e.RetryAfter.Milliseconds()))
	}
	return dbus.NewError(errorPrefix+kindErrorName(e.Kind), body)
}

func kindErrorName(k core.ErrorKind) string {
	switch k {
	case core.KindNotFound:
		return "NotFound"
	case core.KindAlreadyExists:
		return "AlreadyExists"
	case core.KindMaxSessionsExceeded:
		return "MaxSessionsExceeded"
	case core.KindInvalidState:
		return "InvalidState"
	case core.KindNoDevicesGranted:
		return "NoDevicesGranted"
	case core.KindNothingGranted:
		return "NothingGranted"
	case core.KindDeviceNotAuthorized:
		return "DeviceNotAuthorized"
	case core.KindSessionNotActive:
		return "SessionNotActive"
	case core.KindRateLimited:
		return "RateLimited"
	case core.KindUnsupported:
		return "Unsupported"
	case core.KindNoBackendAvailable:
		return "NoBackendAvailable"
	case core.KindCancelled:
		return "Cancelled"
	default:
		return "Failed"
	}
}

// failureResults packs an error into the request results dictionary.
func failureResults(err error) (uint32, map[string]dbus.Variant) {
	results := map[string]dbus.Variant{
		"error": dbus.MakeVariant(core.KindOf(err).String()),
	}
	var e *core.Error
	if errors.As(err, &e) {
		results["message"] = dbus.MakeVariant(e.Error())
		if e.Kind == core.KindRateLimited {
			results["retry_after_ms"] = dbus.MakeVariant(uint64(e.RetryAfter.Milliseconds()))
		}
		if e.Kind == core.KindCancelled {
			return ResponseCancelled, results
		}
	}
	return ResponseOther, results
}

func optString(options map[string]dbus.Variant, key string) string {
	if v, ok := options[key]; ok {
		var s string
		if v.Store(&s) == nil {
			return s
		}
	}
	return ""
}

func optUint32(options map[string]dbus.Variant, key string) uint32 {
	if v, ok := options[key]; ok {
		var u uint32
		if v.Store(&u) == nil {
			return u
		}
	}
	return 0
}

// CreateSession registers a new session for the client named app_id.
func (a *Adapter) CreateSession(_ dbus.ObjectPath, sessionHandle dbus.ObjectPath, appID string, _ map[string]dbus.Variant) (uint32, map[string]dbus.Variant, *dbus.Error) {
	id := core.NewSessionID(string(sessionHandle))
	if err := a.portal.CreateSession(context.Background(), id, appID); err != nil {
		code, results := failureResults(err)
		return code, results, nil
	}
	return ResponseSuccess, map[string]dbus.Variant{
		"session_handle": dbus.MakeVariant(sessionHandle),
	}, nil
}

// SelectDevices records the device classes the session wants.
func (a *Adapter) SelectDevices(_ dbus.ObjectPath, sessionHandle dbus.ObjectPath, _ string, options map[string]dbus.Variant) (uint32, map[string]dbus.Variant, *dbus.Error) {
	id := core.NewSessionID(string(sessionHandle))
	req := portal.DeviceRequest{
		Types:        core.DeviceType(optUint32(options, "types")),
		RestoreToken: optString(options, "restore_token"),
		PersistMode:  core.PersistMode(optUint32(options, "persist_mode")),
	}
	granted, err := a.portal.SelectDevices(context.Background(), id, req)
	if err != nil {
		code, results := failureResults(err)
		return code, results, nil
	}
	return ResponseSuccess, map[string]dbus.Variant{
		"devices": dbus.MakeVariant(uint32(granted)),
	}, nil
}

// SelectSources records the capture sources the session wants.
func (a *Adapter) SelectSources(_ dbus.ObjectPath, sessionHandle dbus.ObjectPath, _ string, options map[string]dbus.Variant) (uint32, map[string]dbus.Variant, *dbus.Error) {
	id := core.NewSessionID(string(sessionHandle))
	req := portal.SourceRequest{
		Types:        core.SourceType(optUint32(options, "types")),
		Multiple:     optUint32(options, "multiple") != 0,
		CursorMode:   core.CursorMode(optUint32(options, "cursor_mode")),
		RestoreToken: optString(options, "restore_token"),
	}
	granted, err := a.portal.SelectSources(context.Background(), id, req)
	if err != nil {
		code, results := failureResults(err)
		return code, results, nil
	}
	return ResponseSuccess, map[string]dbus.Variant{
		"types": dbus.MakeVariant(uint32(granted)),
	}, nil
}

// Start activates the session and hands out the capture stream.
func (a *Adapter) Start(_ dbus.ObjectPath, sessionHandle dbus.ObjectPath, _ string, _ string, _ map[string]dbus.Variant) (uint32, map[string]dbus.Variant, *dbus.Error) {
	id := core.NewSessionID(string(sessionHandle))
	result, err := a.portal.Start(context.Background(), id)
	if err != nil {
		code, results := failureResults(err)
		return code, results, nil
	}

	results := map[string]dbus.Variant{
		"mode":    dbus.MakeVariant(result.Capabilities.Mode.String()),
		"devices": dbus.MakeVariant(uint32(result.Capabilities.Devices)),
		"types":   dbus.MakeVariant(uint32(result.Capabilities.Sources)),
	}
	if result.Stream != nil {
		results["streams"] = dbus.MakeVariant([]struct {
			Handle string
			NodeID uint32
		}{{Handle: result.Stream.Handle, NodeID: result.Stream.NodeID}})
		if result.Stream.EISFd >= 0 {
			results["eis_fd"] = dbus.MakeVariant(dbus.UnixFD(result.Stream.EISFd))
		}
	}
	if result.RestoreToken != "" {
		results["restore_token"] = dbus.MakeVariant(result.RestoreToken)
	}
	return ResponseSuccess, results, nil
}

// Close tears the session down. Idempotent.
func (a *Adapter) Close(sessionHandle dbus.ObjectPath) *dbus.Error {
	id := core.NewSessionID(string(sessionHandle))
	if err := a.portal.Close(context.Background(), id); err != nil {
		return dbusError(err)
	}
	return nil
}

func (a *Adapter) notify(sessionHandle dbus.ObjectPath, member string, args ...interface{}) *dbus.Error {
	ev, err := DecodeEvent(member, args)
	if err != nil {
		return dbus.MakeFailedError(err)
	}
	id := core.NewSessionID(string(sessionHandle))
	if err := a.dispatchEvent(id, ev); err != nil {
		return dbusError(err)
	}
	return nil
}

func (a *Adapter) dispatchEvent(id core.SessionID, ev core.InputEvent) error {
	ctx := context.Background()
	switch e := ev.(type) {
	case core.PointerMotion:
		return a.portal.NotifyPointerMotion(ctx, id, e.Dx, e.Dy)
	case core.PointerMotionAbsolute:
		return a.portal.NotifyPointerMotionAbsolute(ctx, id, e.X, e.Y, e.Width, e.Height)
	case core.PointerButton:
		return a.portal.NotifyPointerButton(ctx, id, e.Button, e.State)
	case core.PointerAxis:
		return a.portal.NotifyPointerAxis(ctx, id, e.Axis, e.Delta)
	case core.PointerAxisDiscrete:
		return a.portal.NotifyPointerAxisDiscrete(ctx, id, e.Axis, e.Steps)
	case core.KeyboardKeycode:
		return a.portal.NotifyKeyboardKeycode(ctx, id, e.Keycode, e.State)
	case core.KeyboardKeysym:
		return a.portal.NotifyKeyboardKeysym(ctx, id, e.Keysym, e.State)
	case core.TouchDown:
		return a.portal.NotifyTouchDown(ctx, id, e.Slot, e.X, e.Y, e.Width, e.Height)
	case core.TouchMotion:
		return a.portal.NotifyTouchMotion(ctx, id, e.Slot, e.X, e.Y, e.Width, e.Height)
	case core.TouchUp:
		return a.portal.NotifyTouchUp(ctx, id, e.Slot)
	default:
		return &core.Error{Kind: core.KindUnsupported, Message: "unknown event variant"}
	}
}

// NotifyPointerMotion injects a relative pointer move.
func (a *Adapter) NotifyPointerMotion(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, dx, dy float64) *dbus.Error {
	return a.notify(sessionHandle, MemberPointerMotion, dx, dy)
}

// NotifyPointerMotionAbsolute positions the pointer within a width x
// height surface.
func (a *Adapter) NotifyPointerMotionAbsolute(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, x, y float64, width, height uint32) *dbus.Error {
	return a.notify(sessionHandle, MemberPointerMotionAbsolute, x, y, width, height)
}

// NotifyPointerButton presses or releases a pointer button.
func (a *Adapter) NotifyPointerButton(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, button int32, state uint32) *dbus.Error {
	return a.notify(sessionHandle, MemberPointerButton, button, state)
}

// NotifyPointerAxis injects continuous scroll.
func (a *Adapter) NotifyPointerAxis(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, axis uint32, delta float64) *dbus.Error {
	return a.notify(sessionHandle, MemberPointerAxis, axis, delta)
}

// NotifyPointerAxisDiscrete injects discrete wheel clicks.
func (a *Adapter) NotifyPointerAxisDiscrete(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, axis uint32, steps int32) *dbus.Error {
	return a.notify(sessionHandle, MemberPointerAxisDiscrete, axis, steps)
}

// NotifyKeyboardKeycode injects a hardware scancode.
func (a *Adapter) NotifyKeyboardKeycode(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, keycode int32, state uint32) *dbus.Error {
	return a.notify(sessionHandle, MemberKeyboardKeycode, keycode, state)
}

// NotifyKeyboardKeysym injects a logical key symbol.
func (a *Adapter) NotifyKeyboardKeysym(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, keysym int32, state uint32) *dbus.Error {
	return a.notify(sessionHandle, MemberKeyboardKeysym, keysym, state)
}

// NotifyTouchDown begins a touch contact.
func (a *Adapter) NotifyTouchDown(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, slot uint32, x, y float64, width, height uint32) *dbus.Error {
	return a.notify(sessionHandle, MemberTouchDown, slot, x, y, width, height)
}

// NotifyTouchMotion moves a touch contact.
func (a *Adapter) NotifyTouchMotion(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, slot uint32, x, y float64, width, height uint32) *dbus.Error {
	return a.notify(sessionHandle, MemberTouchMotion, slot, x, y, width, height)
}

// NotifyTouchUp ends a touch contact.
func (a *Adapter) NotifyTouchUp(sessionHandle dbus.ObjectPath, _ map[string]dbus.Variant, slot uint32) *dbus.Error {
	return a.notify(sessionHandle, MemberTouchUp, slot)
}

// AvailableDeviceTypes reports the backend's injectable device classes.
func (a *Adapter) AvailableDeviceTypes() (uint32, *dbus.Error) {
	return uint32(a.portal.Capabilities().DeviceTypes()), nil
}

func (a *Adapter) introspection() string {
	return `<node>
  <interface name="` + RemoteDesktopInterface + `">
    <method name="CreateSession">
      <arg type="o" name="handle" direction="in"/>
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="s" name="app_id" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="response" direction="out"/>
      <arg type="a{sv}" name="results" direction="out"/>
    </method>
    <method name="SelectDevices">
      <arg type="o" name="handle" direction="in"/>
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="s" name="app_id" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="response" direction="out"/>
      <arg type="a{sv}" name="results" direction="out"/>
    </method>
    <method name="SelectSources">
      <arg type="o" name="handle" direction="in"/>
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="s" name="app_id" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="response" direction="out"/>
      <arg type="a{sv}" name="results" direction="out"/>
    </method>
    <method name="Start">
      <arg type="o" name="handle" direction="in"/>
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="s" name="app_id" direction="in"/>
      <arg type="s" name="parent_window" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="response" direction="out"/>
      <arg type="a{sv}" name="results" direction="out"/>
    </method>
    <method name="Close">
      <arg type="o" name="session_handle" direction="in"/>
    </method>
    <method name="NotifyPointerMotion">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="d" name="dx" direction="in"/>
      <arg type="d" name="dy" direction="in"/>
    </method>
    <method name="NotifyPointerMotionAbsolute">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="d" name="x" direction="in"/>
      <arg type="d" name="y" direction="in"/>
      <arg type="u" name="width" direction="in"/>
      <arg type="u" name="height" direction="in"/>
    </method>
    <method name="NotifyPointerButton">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="i" name="button" direction="in"/>
      <arg type="u" name="state" direction="in"/>
    </method>
    <method name="NotifyPointerAxis">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="axis" direction="in"/>
      <arg type="d" name="delta" direction="in"/>
    </method>
    <method name="NotifyPointerAxisDiscrete">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="axis" direction="in"/>
      <arg type="i" name="steps" direction="in"/>
    </method>
    <method name="NotifyKeyboardKeycode">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="i" name="keycode" direction="in"/>
      <arg type="u" name="state" direction="in"/>
    </method>
    <method name="NotifyKeyboardKeysym">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="i" name="keysym" direction="in"/>
      <arg type="u" name="state" direction="in"/>
    </method>
    <method name="NotifyTouchDown">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="slot" direction="in"/>
      <arg type="d" name="x" direction="in"/>
      <arg type="d" name="y" direction="in"/>
      <arg type="u" name="width" direction="in"/>
      <arg type="u" name="height" direction="in"/>
    </method>
    <method name="NotifyTouchMotion">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="slot" direction="in"/>
      <arg type="d" name="x" direction="in"/>
      <arg type="d" name="y" direction="in"/>
      <arg type="u" name="width" direction="in"/>
      <arg type="u" name="height" direction="in"/>
    </method>
    <method name="NotifyTouchUp">
      <arg type="o" name="session_handle" direction="in"/>
      <arg type="a{sv}" name="options" direction="in"/>
      <arg type="u" name="slot" direction="in"/>
    </method>
    <method name="AvailableDeviceTypes">
      <arg type="u" name="types" direction="out"/>
    </method>
  </interface>
</node>`
}
