package backend

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/wayportal/internal/core"
	"github.com/bnema/wayportal/internal/logger"
)

// DisplayServer identifies the display server type discovery runs under.
type DisplayServer int

const (
	DisplayServerUnknown DisplayServer = iota
	DisplayServerWayland
	DisplayServerX11
)

func (d DisplayServer) String() string {
	switch d {
	case DisplayServerWayland:
		return "wayland"
	case DisplayServerX11:
		return "x11"
	default:
		return "unknown"
	}
}

// DetectDisplayServer inspects the environment. Only WAYLAND_DISPLAY and
// DISPLAY are consulted; the compositor session marker is read by
// CompositorName and the wlroots probe.
func DetectDisplayServer() DisplayServer {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return DisplayServerWayland
	}
	if os.Getenv("DISPLAY") != "" {
		return DisplayServerX11
	}
	return DisplayServerUnknown
}

// CompositorName guesses the running compositor from the session marker
// variable, for diagnostics only.
func CompositorName() string {
	if desktop := os.Getenv("XDG_CURRENT_DESKTOP"); desktop != "" {
		return desktop
	}
	if DetectDisplayServer() == DisplayServerWayland {
		return "wayland"
	}
	return "unknown"
}

// isWlroots reports whether the session marker points at a
// wlroots-based compositor, where the virtual input protocols are
// normally available.
func isWlroots() bool {
	desktop := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))
	for _, name := range []string{"sway", "river", "hyprland", "wayfire", "labwc"} {
		if strings.Contains(desktop, name) {
			return true
		}
	}
	return false
}

// DefaultProviders returns the fixed priority list: wlroots virtual
// input first (best integration), uinput as the kernel-level fallback,
// X11 last.
func DefaultProviders() []Provider {
	return []Provider{
		&WlrootsProvider{},
		&UinputProvider{},
		&X11Provider{},
	}
}

// Discover walks providers in priority order and returns the first
// backend that probes available and connects. The returned error on
// total failure lists every provider id tried so the operator can see
// what was considered.
func Discover(ctx context.Context, providers []Provider) (CompositorBackend, error) {
	var tried []string
	for _, p := range providers {
		tried = append(tried, p.ID())
		if !p.IsAvailable() {
			logger.Debugf("backend %s not available, skipping", p.ID())
			continue
		}
		b, err := p.CreateBackend(ctx)
		if err != nil {
			logger.Warnf("backend %s available but failed to connect: %v", p.ID(), err)
			continue
		}
		if b == nil {
			continue
		}
		logger.Infof("using backend %s (%s)", p.ID(), p.Name())
		return b, nil
	}
	return nil, &core.Error{
		Kind:    core.KindNoBackendAvailable,
		Message: fmt.Sprintf("tried: %s", strings.Join(tried, ", ")),
	}
}

// SelectProvider narrows the provider list to a configured id, or
// returns the full list for "auto".
func SelectProvider(providers []Provider, id string) ([]Provider, error) {
	if id == "" || id == "auto" {
		return providers, nil
	}
	for _, p := range providers {
		if p.ID() == id {
			return []Provider{p}, nil
		}
	}
	var known []string
	for _, p := range providers {
		known = append(known, p.ID())
	}
	return nil, fmt.Errorf("unknown backend %q (known: %s)", id, strings.Join(known, ", "))
}
