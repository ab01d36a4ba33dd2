package core

import "strings"

// DeviceType is a flag set describing which input device classes a
// session wants to (or is allowed to) control. The bit values follow the
// org.freedesktop.portal.RemoteDesktop AvailableDeviceTypes encoding.
type DeviceType uint32

const (
	DeviceKeyboard DeviceType = 1 << iota
	DevicePointer
	DeviceTouchscreen

	DeviceAll = DeviceKeyboard | DevicePointer | DeviceTouchscreen
)

// Has reports whether every class in other is present in d.
func (d DeviceType) Has(other DeviceType) bool {
	return d&other == other
}

// Intersect returns the classes present in both sets.
func (d DeviceType) Intersect(other DeviceType) DeviceType {
	return d & other
}

// IsEmpty reports whether no device class is set.
func (d DeviceType) IsEmpty() bool {
	return d == 0
}

func (d DeviceType) String() string {
	if d == 0 {
		return "none"
	}
	var parts []string
	if d.Has(DeviceKeyboard) {
		parts = append(parts, "keyboard")
	}
	if d.Has(DevicePointer) {
		parts = append(parts, "pointer")
	}
	if d.Has(DeviceTouchscreen) {
		parts = append(parts, "touchscreen")
	}
	return strings.Join(parts, "+")
}

// SourceType is a flag set describing capture sources, following the
// org.freedesktop.portal.ScreenCast AvailableSourceTypes encoding.
type SourceType uint32

const (
	SourceMonitor SourceType = 1 << iota
	SourceWindow
	SourceVirtual
)

// Has reports whether every source in other is present in s.
func (s SourceType) Has(other SourceType) bool {
	return s&other == other
}

// Intersect returns the sources present in both sets.
func (s SourceType) Intersect(other SourceType) SourceType {
	return s & other
}

// IsEmpty reports whether no source is set.
func (s SourceType) IsEmpty() bool {
	return s == 0
}

func (s SourceType) String() string {
	if s == 0 {
		return "none"
	}
	var parts []string
	if s.Has(SourceMonitor) {
		parts = append(parts, "monitor")
	}
	if s.Has(SourceWindow) {
		parts = append(parts, "window")
	}
	if s.Has(SourceVirtual) {
		parts = append(parts, "virtual")
	}
	return strings.Join(parts, "+")
}

// CursorMode selects how the cursor appears in captured frames,
// following the ScreenCast AvailableCursorModes encoding.
type CursorMode uint32

const (
	CursorHidden CursorMode = 1 << iota
	CursorEmbedded
	CursorMetadata
)

func (c CursorMode) String() string {
	switch c {
	case CursorHidden:
		return "hidden"
	case CursorEmbedded:
		return "embedded"
	case CursorMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// PersistMode controls how long granted consent may be restored via a
// restore token. The values follow the xdg portal contract.
type PersistMode uint32

const (
	// PersistNone grants for this session only.
	PersistNone PersistMode = iota
	// PersistSession grants until the user session ends.
	PersistSession
	// PersistUntilRevoked grants until explicitly revoked.
	PersistUntilRevoked
)
