package dbusadapter

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bnema/wayportal/internal/backend"
	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/portal"
	"github.com/bnema/wayportal/internal/ratelimit"
	"github.com/bnema/wayportal/internal/session"
)

// The adapter methods are exercised directly, without a bus: they are
// plain Go methods and the bus only does argument marshalling.

func newTestAdapter(t *testing.T) (*Adapter, *backend.Recorder) {
	t.Helper()
	rec := backend.NewRecorder()
	manager := session.NewManager(session.DefaultConfig())
	limiter := ratelimit.New(ratelimit.Config{
		MaxEventsPerSec: 1000,
		BurstLimit:      100,
		Window:          time.Second,
	})
	p := portal.New(manager, limiter, rec)
	return New(p, "org.freedesktop.impl.portal.desktop.test"), rec
}

const handle = dbus.ObjectPath("/org/freedesktop/portal/desktop/request/1/r1")

func noOptions() map[string]dbus.Variant {
	return map[string]dbus.Variant{}
}

func TestAdapterFullFlow(t *testing.T) {
	a, rec := newTestAdapter(t)
	sess := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/1/s1")

	code, results, derr := a.CreateSession(handle, sess, "app.a", noOptions())
	if derr != nil || code != ResponseSuccess {
		t.Fatalf("CreateSession = %d, %v", code, derr)
	}
	if _, ok := results["session_handle"]; !ok {
		t.Error("results missing session_handle")
	}

	code, results, derr = a.SelectDevices(handle, sess, "app.a", map[string]dbus.Variant{
		"types": dbus.MakeVariant(uint32(core.DevicePointer | core.DeviceKeyboard)),
	})
	if derr != nil || code != ResponseSuccess {
		t.Fatalf("SelectDevices = %d, %v (%v)", code, derr, results)
	}
	var granted uint32
	if err := results["devices"].Store(&granted); err != nil {
		t.Fatal(err)
	}
	if core.DeviceType(granted) != core.DevicePointer|core.DeviceKeyboard {
		t.Errorf("granted = %s", core.DeviceType(granted))
	}

	code, _, derr = a.SelectSources(handle, sess, "app.a", map[string]dbus.Variant{
		"types":       dbus.MakeVariant(uint32(core.SourceMonitor)),
		"cursor_mode": dbus.MakeVariant(uint32(core.CursorEmbedded)),
	})
	if derr != nil || code != ResponseSuccess {
		t.Fatalf("SelectSources = %d, %v", code, derr)
	}

	code, results, derr = a.Start(handle, sess, "app.a", "", noOptions())
	if derr != nil || code != ResponseSuccess {
		t.Fatalf("Start = %d, %v", code, derr)
	}
	if _, ok := results["streams"]; !ok {
		t.Error("Start results missing streams")
	}
	var mode string
	if err := results["mode"].Store(&mode); err != nil || mode != "full" {
		t.Errorf("mode = %q, %v", mode, err)
	}

	if derr := a.NotifyPointerMotion(sess, noOptions(), 10.0, 5.0); derr != nil {
		t.Fatalf("NotifyPointerMotion: %v", derr)
	}
	if derr := a.NotifyKeyboardKeycode(sess, noOptions(), 30, uint32(core.KeyPressed)); derr != nil {
		t.Fatalf("NotifyKeyboardKeycode: %v", derr)
	}

	got := rec.EventsFor(core.NewSessionID(string(sess)))
	if len(got) != 2 {
		t.Fatalf("backend saw %d events, want 2", len(got))
	}
	if got[0].Name != "pointer-motion" || got[1].Name != "keyboard-keycode" {
		t.Errorf("backend events = %v, %v", got[0].Name, got[1].Name)
	}

	if derr := a.Close(sess); derr != nil {
		t.Fatalf("Close: %v", derr)
	}
	if derr := a.Close(sess); derr != nil {
		t.Fatalf("second Close: %v", derr)
	}
}

func TestAdapterFailureResponses(t *testing.T) {
	a, _ := newTestAdapter(t)
	sess := dbus.ObjectPath("/org/freedesktop/portal/desktop/session/1/s1")

	t.Run("select devices without session", func(t *testing.T) {
		code, results, derr := a.SelectDevices(handle, sess, "app", noOptions())
		if derr != nil {
			t.Fatalf("request verbs report failure in results, got D-Bus error %v", derr)
		}
		if code != ResponseOther {
			t.Errorf("code = %d, want %d", code, ResponseOther)
		}
		var kind string
		if err := results["error"].Store(&kind); err != nil || kind != "not-found" {
			t.Errorf("error kind = %q, %v", kind, err)
		}
	})

	t.Run("duplicate create", func(t *testing.T) {
		if code, _, _ := a.CreateSession(handle, sess, "app", noOptions()); code != ResponseSuccess {
			t.Fatal("first create failed")
		}
		code, results, _ := a.CreateSession(handle, sess, "app", noOptions())
		if code != ResponseOther {
			t.Errorf("code = %d", code)
		}
		var kind string
		_ = results["error"].Store(&kind)
		if kind != "already-exists" {
			t.Errorf("error kind = %q", kind)
		}
	})

	t.Run("notify on unknown session is a named error", func(t *testing.T) {
		derr := a.NotifyPointerMotion("/s/none", noOptions(), 1, 1)
		if derr == nil {
			t.Fatal("expected error")
		}
		if derr.Name != errorPrefix+"NotFound" {
			t.Errorf("error name = %q", derr.Name)
		}
	})
}

func TestAdapterRateLimitedCarriesRetryHint(t *testing.T) {
	a, _ := newTestAdapter(t)
	sess := dbus.ObjectPath("/s/1")

	if code, _, _ := a.CreateSession(handle, sess, "app", noOptions()); code != ResponseSuccess {
		t.Fatal("create failed")
	}
	if code, _, _ := a.SelectDevices(handle, sess, "app", map[string]dbus.Variant{
		"types": dbus.MakeVariant(uint32(core.DevicePointer)),
	}); code != ResponseSuccess {
		t.Fatal("select failed")
	}
	if code, _, _ := a.Start(handle, sess, "app", "", noOptions()); code != ResponseSuccess {
		t.Fatal("start failed")
	}

	var limited *dbus.Error
	for i := 0; i < 2000 && limited == nil; i++ {
		limited = a.NotifyPointerMotion(sess, noOptions(), 1, 1)
	}
	if limited == nil {
		t.Fatal("rate limiter never tripped")
	}
	if limited.Name != errorPrefix+"RateLimited" {
		t.Fatalf("error name = %q", limited.Name)
	}
	if len(limited.Body) < 2 {
		t.Fatal("RateLimited error should carry retry_after_ms in the body")
	}
	if _, ok := limited.Body[1].(uint64); !ok {
		t.Errorf("retry hint type = %T, want uint64 ms", limited.Body[1])
	}
}

func TestAvailableDeviceTypes(t *testing.T) {
	a, rec := newTestAdapter(t)
	types, derr := a.AvailableDeviceTypes()
	if derr != nil {
		t.Fatal(derr)
	}
	if core.DeviceType(types) != rec.Caps.DeviceTypes() {
		t.Errorf("types = %s, want %s", core.DeviceType(types), rec.Caps.DeviceTypes())
	}
}
