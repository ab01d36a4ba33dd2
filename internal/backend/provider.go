package backend

import (
	"context"
	"os"
)

// WlrootsProvider probes for a Wayland session on a wlroots-family
// compositor.
type WlrootsProvider struct{}

func (*WlrootsProvider) ID() string   { return "wlroots" }
func (*WlrootsProvider) Name() string { return "wlroots virtual input (Wayland)" }

func (*WlrootsProvider) IsAvailable() bool {
	return os.Getenv("WAYLAND_DISPLAY") != "" && isWlroots()
}

func (*WlrootsProvider) Capabilities() Capabilities {
	return NewWlrootsBackend().Capabilities()
}

func (p *WlrootsProvider) CreateBackend(ctx context.Context) (CompositorBackend, error) {
	if !p.IsAvailable() {
		return nil, nil
	}
	b := NewWlrootsBackend()
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// UinputProvider probes for a writable /dev/uinput.
type UinputProvider struct{}

func (*UinputProvider) ID() string   { return "uinput" }
func (*UinputProvider) Name() string { return "kernel uinput" }

func (*UinputProvider) IsAvailable() bool {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY, 0)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

func (*UinputProvider) Capabilities() Capabilities {
	return Capabilities{
		BackendName:       "uinput",
		DisplayServer:     DetectDisplayServer(),
		CanInjectKeyboard: true,
		CanInjectPointer:  true,
	}
}

func (p *UinputProvider) CreateBackend(ctx context.Context) (CompositorBackend, error) {
	if !p.IsAvailable() {
		return nil, nil
	}
	b, err := NewUinputBackend()
	if err != nil {
		return nil, err
	}
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// X11Provider probes for an X11 session without a Wayland one.
type X11Provider struct{}

func (*X11Provider) ID() string   { return "x11" }
func (*X11Provider) Name() string { return "X11 (placeholder)" }

func (*X11Provider) IsAvailable() bool {
	return os.Getenv("WAYLAND_DISPLAY") == "" && os.Getenv("DISPLAY") != ""
}

func (*X11Provider) Capabilities() Capabilities {
	return NewX11Backend().Capabilities()
}

func (p *X11Provider) CreateBackend(ctx context.Context) (CompositorBackend, error) {
	if !p.IsAvailable() {
		return nil, nil
	}
	b := NewX11Backend()
	if err := b.Connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}
