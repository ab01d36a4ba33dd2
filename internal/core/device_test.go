package core

import "testing"

func TestDeviceTypeFlags(t *testing.T) {
	tests := []struct {
		name  string
		set   DeviceType
		other DeviceType
		has   bool
	}{
		{"pointer in pointer", DevicePointer, DevicePointer, true},
		{"pointer in all", DeviceAll, DevicePointer, true},
		{"keyboard not in pointer", DevicePointer, DeviceKeyboard, false},
		{"pair in all", DeviceAll, DeviceKeyboard | DevicePointer, true},
		{"pair not in single", DevicePointer, DeviceKeyboard | DevicePointer, false},
		{"empty in anything", DevicePointer, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Has(tt.other); got != tt.has {
				t.Errorf("(%s).Has(%s) = %v, want %v", tt.set, tt.other, got, tt.has)
			}
		})
	}
}

func TestDeviceTypeIntersect(t *testing.T) {
	got := (DeviceKeyboard | DevicePointer).Intersect(DevicePointer | DeviceTouchscreen)
	if got != DevicePointer {
		t.Errorf("Intersect = %s, want %s", got, DevicePointer)
	}
	if !DeviceType(0).IsEmpty() {
		t.Error("zero set should be empty")
	}
	if DeviceAll.IsEmpty() {
		t.Error("full set should not be empty")
	}
}

func TestDeviceTypeString(t *testing.T) {
	if got := DeviceType(0).String(); got != "none" {
		t.Errorf("empty set = %q, want none", got)
	}
	if got := (DeviceKeyboard | DeviceTouchscreen).String(); got != "keyboard+touchscreen" {
		t.Errorf("String() = %q", got)
	}
}

func TestComputeMode(t *testing.T) {
	tests := []struct {
		name    string
		devices DeviceType
		sources SourceType
		want    RemoteDesktopMode
	}{
		{"both", DevicePointer, SourceMonitor, ModeFull},
		{"devices only", DeviceKeyboard, 0, ModeInputOnly},
		{"sources only", 0, SourceMonitor | SourceWindow, ModeViewOnly},
		{"neither", 0, 0, ModeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeMode(tt.devices, tt.sources); got != tt.want {
				t.Errorf("ComputeMode(%s, %s) = %s, want %s", tt.devices, tt.sources, got, tt.want)
			}
		})
	}
}

func TestStateTransitionGuards(t *testing.T) {
	tests := []struct {
		state         SessionState
		selectDevices bool
		selectSources bool
		start         bool
	}{
		{StateCreated, true, true, false},
		{StateDevicesSelected, false, true, true},
		{StateSourcesSelected, true, true, true},
		{StateDevicesAndSourcesSelected, false, false, true},
		{StateStarted, false, false, false},
		{StateClosed, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.CanSelectDevices(); got != tt.selectDevices {
				t.Errorf("CanSelectDevices = %v, want %v", got, tt.selectDevices)
			}
			if got := tt.state.CanSelectSources(); got != tt.selectSources {
				t.Errorf("CanSelectSources = %v, want %v", got, tt.selectSources)
			}
			if got := tt.state.CanStart(); got != tt.start {
				t.Errorf("CanStart = %v, want %v", got, tt.start)
			}
		})
	}
}

func TestEventClasses(t *testing.T) {
	tests := []struct {
		ev    InputEvent
		class DeviceType
	}{
		{PointerMotion{Dx: 1, Dy: 2}, DevicePointer},
		{PointerMotionAbsolute{X: 1, Y: 2, Width: 100, Height: 100}, DevicePointer},
		{PointerButton{Button: 0x110, State: ButtonPressed}, DevicePointer},
		{PointerAxis{Axis: AxisVertical, Delta: 1.5}, DevicePointer},
		{PointerAxisDiscrete{Axis: AxisHorizontal, Steps: -2}, DevicePointer},
		{KeyboardKeycode{Keycode: 30, State: KeyPressed}, DeviceKeyboard},
		{KeyboardKeysym{Keysym: 97, State: KeyReleased}, DeviceKeyboard},
		{TouchDown{Slot: 0, X: 1, Y: 1, Width: 10, Height: 10}, DeviceTouchscreen},
		{TouchMotion{Slot: 0, X: 2, Y: 2, Width: 10, Height: 10}, DeviceTouchscreen},
		{TouchUp{Slot: 0}, DeviceTouchscreen},
	}

	for _, tt := range tests {
		t.Run(tt.ev.Name(), func(t *testing.T) {
			if got := tt.ev.Class(); got != tt.class {
				t.Errorf("Class() = %s, want %s", got, tt.class)
			}
			if tt.ev.Name() == "" {
				t.Error("Name() should not be empty")
			}
		})
	}
}
