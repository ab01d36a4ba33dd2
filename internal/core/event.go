package core

// ButtonState is the press state of a pointer button.
type ButtonState uint32

const (
	ButtonReleased ButtonState = iota
	ButtonPressed
)

func (s ButtonState) String() string {
	if s == ButtonPressed {
		return "pressed"
	}
	return "released"
}

// KeyState is the press state of a key.
type KeyState uint32

const (
	KeyReleased KeyState = iota
	KeyPressed
)

func (s KeyState) String() string {
	if s == KeyPressed {
		return "pressed"
	}
	return "released"
}

// Axis selects a scroll direction. The values follow the portal
// contract: 0 vertical, 1 horizontal. Positive deltas scroll
// right/down.
type Axis uint32

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

func (a Axis) String() string {
	if a == AxisHorizontal {
		return "horizontal"
	}
	return "vertical"
}

// InputEvent is a synthetic input event submitted by a client. Each
// variant maps to exactly one backend injection method and belongs to
// one device class, which authorization is checked against.
type InputEvent interface {
	// Class returns the device class the event belongs to.
	Class() DeviceType
	// Name returns the event name used in diagnostics and metrics.
	Name() string
}

// PointerMotion is a relative pointer move.
type PointerMotion struct {
	Dx, Dy float64
}

func (PointerMotion) Class() DeviceType { return DevicePointer }
func (PointerMotion) Name() string      { return "pointer-motion" }

// PointerMotionAbsolute positions the pointer within a virtual surface
// of Width x Height. Coordinates are clamped at the dispatch boundary.
type PointerMotionAbsolute struct {
	X, Y          float64
	Width, Height uint32
}

func (PointerMotionAbsolute) Class() DeviceType { return DevicePointer }
func (PointerMotionAbsolute) Name() string      { return "pointer-motion-absolute" }

// PointerButton presses or releases a button. Button codes are
// platform-defined and forwarded verbatim.
type PointerButton struct {
	Button int32
	State  ButtonState
}

func (PointerButton) Class() DeviceType { return DevicePointer }
func (PointerButton) Name() string      { return "pointer-button" }

// PointerAxis is continuous scroll.
type PointerAxis struct {
	Axis  Axis
	Delta float64
}

func (PointerAxis) Class() DeviceType { return DevicePointer }
func (PointerAxis) Name() string      { return "pointer-axis" }

// PointerAxisDiscrete is discrete wheel clicks, signed.
type PointerAxisDiscrete struct {
	Axis  Axis
	Steps int32
}

func (PointerAxisDiscrete) Class() DeviceType { return DevicePointer }
func (PointerAxisDiscrete) Name() string      { return "pointer-axis-discrete" }

// KeyboardKeycode is a hardware-level scancode event.
type KeyboardKeycode struct {
	Keycode int32
	State   KeyState
}

func (KeyboardKeycode) Class() DeviceType { return DeviceKeyboard }
func (KeyboardKeycode) Name() string      { return "keyboard-keycode" }

// KeyboardKeysym is a logical symbol event, usable when the backend
// knows the keymap.
type KeyboardKeysym struct {
	Keysym int32
	State  KeyState
}

func (KeyboardKeysym) Class() DeviceType { return DeviceKeyboard }
func (KeyboardKeysym) Name() string      { return "keyboard-keysym" }

// TouchDown begins a touch contact. Slot identifies the contact among
// concurrent touches.
type TouchDown struct {
	Slot          uint32
	X, Y          float64
	Width, Height uint32
}

func (TouchDown) Class() DeviceType { return DeviceTouchscreen }
func (TouchDown) Name() string      { return "touch-down" }

// TouchMotion moves an active touch contact.
type TouchMotion struct {
	Slot          uint32
	X, Y          float64
	Width, Height uint32
}

func (TouchMotion) Class() DeviceType { return DeviceTouchscreen }
func (TouchMotion) Name() string      { return "touch-motion" }

// TouchUp ends a touch contact.
type TouchUp struct {
	Slot uint32
}

func (TouchUp) Class() DeviceType { return DeviceTouchscreen }
func (TouchUp) Name() string      { return "touch-up" }
