package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnema/wayportal/internal/core"
)

func TestDetectDisplayServer(t *testing.T) {
	tests := []struct {
		name    string
		wayland string
		x11     string
		want    DisplayServer
	}{
		{"wayland", "wayland-1", "", DisplayServerWayland},
		{"wayland wins over x11", "wayland-1", ":0", DisplayServerWayland},
		{"x11 only", "", ":0", DisplayServerX11},
		{"headless", "", "", DisplayServerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WAYLAND_DISPLAY", tt.wayland)
			t.Setenv("DISPLAY", tt.x11)
			if got := DetectDisplayServer(); got != tt.want {
				t.Errorf("DetectDisplayServer() = %s, want %s", got, tt.want)
			}
		})
	}
}

type fakeProvider struct {
	id        string
	available bool
	backend   CompositorBackend
	err       error
}

func (p *fakeProvider) ID() string                 { return p.id }
func (p *fakeProvider) Name() string               { return p.id }
func (p *fakeProvider) IsAvailable() bool          { return p.available }
func (p *fakeProvider) Capabilities() Capabilities { return Capabilities{BackendName: p.id} }
func (p *fakeProvider) CreateBackend(context.Context) (CompositorBackend, error) {
	return p.backend, p.err
}

func TestDiscoverPicksFirstAvailable(t *testing.T) {
	want := NewRecorder()
	providers := []Provider{
		&fakeProvider{id: "first", available: false},
		&fakeProvider{id: "second", available: true, backend: want},
		&fakeProvider{id: "third", available: true, backend: NewRecorder()},
	}

	got, err := Discover(context.Background(), providers)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got != CompositorBackend(want) {
		t.Error("Discover should return the first available backend")
	}
}

func TestDiscoverSkipsFailingProvider(t *testing.T) {
	want := NewRecorder()
	providers := []Provider{
		&fakeProvider{id: "broken", available: true, err: errors.New("connect failed")},
		&fakeProvider{id: "working", available: true, backend: want},
	}

	got, err := Discover(context.Background(), providers)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got != CompositorBackend(want) {
		t.Error("Discover should fall through a failing provider")
	}
}

func TestDiscoverListsEverythingTried(t *testing.T) {
	providers := []Provider{
		&fakeProvider{id: "alpha"},
		&fakeProvider{id: "beta"},
		&fakeProvider{id: "gamma"},
	}

	_, err := Discover(context.Background(), providers)
	if !errors.Is(err, core.ErrNoBackendAvailable) {
		t.Fatalf("err = %v, want NoBackendAvailable", err)
	}
	for _, id := range []string{"alpha", "beta", "gamma"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error %q should name provider %s", err.Error(), id)
		}
	}
}

func TestSelectProvider(t *testing.T) {
	providers := []Provider{
		&fakeProvider{id: "alpha"},
		&fakeProvider{id: "beta"},
	}

	t.Run("auto keeps the whole list", func(t *testing.T) {
		got, err := SelectProvider(providers, "auto")
		if err != nil || len(got) != 2 {
			t.Errorf("got %d providers, %v", len(got), err)
		}
	})

	t.Run("by id", func(t *testing.T) {
		got, err := SelectProvider(providers, "beta")
		if err != nil || len(got) != 1 || got[0].ID() != "beta" {
			t.Errorf("got %v, %v", got, err)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := SelectProvider(providers, "cosmic")
		if err == nil || !strings.Contains(err.Error(), "alpha") {
			t.Errorf("err = %v, should list known ids", err)
		}
	})
}

func TestDefaultProviderPriority(t *testing.T) {
	providers := DefaultProviders()
	want := []string{"wlroots", "uinput", "x11"}
	if len(providers) != len(want) {
		t.Fatalf("provider count = %d", len(providers))
	}
	for i, id := range want {
		if providers[i].ID() != id {
			t.Errorf("priority %d = %s, want %s", i, providers[i].ID(), id)
		}
	}
}

func TestWlrootsProviderAvailability(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "wayland-1")
	t.Setenv("XDG_CURRENT_DESKTOP", "sway")
	if !(&WlrootsProvider{}).IsAvailable() {
		t.Error("should be available on a sway session")
	}

	t.Setenv("XDG_CURRENT_DESKTOP", "GNOME")
	if (&WlrootsProvider{}).IsAvailable() {
		t.Error("should not claim availability on GNOME")
	}

	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("XDG_CURRENT_DESKTOP", "sway")
	if (&WlrootsProvider{}).IsAvailable() {
		t.Error("should not be available without a Wayland display")
	}
}

func TestX11ProviderAvailability(t *testing.T) {
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("DISPLAY", ":0")
	if !(&X11Provider{}).IsAvailable() {
		t.Error("should be available on a bare X11 session")
	}

	t.Setenv("WAYLAND_DISPLAY", "wayland-1")
	if (&X11Provider{}).IsAvailable() {
		t.Error("should yield to Wayland when both are present")
	}
}

func TestFindEISSocket(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	if _, ok := FindEISSocket(); ok {
		t.Fatal("no socket expected in empty runtime dir")
	}

	path := filepath.Join(dir, "eis-0")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	got, ok := FindEISSocket()
	if !ok || got != path {
		t.Errorf("FindEISSocket = %q, %v", got, ok)
	}
}

func TestCapabilitiesFolding(t *testing.T) {
	caps := Capabilities{
		CanInjectKeyboard: true,
		CanInjectPointer:  true,
		CanCaptureScreen:  true,
	}
	if got := caps.DeviceTypes(); got != core.DeviceKeyboard|core.DevicePointer {
		t.Errorf("DeviceTypes = %s", got)
	}
	if got := caps.SourceTypes(); got != core.SourceMonitor {
		t.Errorf("SourceTypes = %s", got)
	}
}

func TestX11BackendHonoursContract(t *testing.T) {
	b := NewX11Backend()
	ctx := context.Background()
	if err := b.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.InjectPointerMotion(ctx, "/s/1", 1, 1, 0); err != nil {
		t.Errorf("placeholder injection should succeed: %v", err)
	}
	if err := b.InjectTouchDown(ctx, "/s/1", 0, 1, 1, 0); err == nil {
		t.Error("touch should be unsupported")
	}
	if _, err := b.StartCapture(ctx, "/s/1", core.SourceMonitor, core.CursorHidden); !errors.Is(err, ErrUnsupported) {
		t.Errorf("capture = %v, want ErrUnsupported", err)
	}
	if err := b.Disconnect(); err != nil {
		t.Fatal(err)
	}
}
