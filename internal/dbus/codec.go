package dbusadapter

import (
	"fmt"

	"github.com/bnema/wayportal/internal/core"
)

// Method member names of the notify family, as exported on the
// RemoteDesktop interface.
const (
	MemberPointerMotion         = "NotifyPointerMotion"
	MemberPointerMotionAbsolute = "NotifyPointerMotionAbsolute"
	MemberPointerButton         = "NotifyPointerButton"
	MemberPointerAxis           = "NotifyPointerAxis"
	MemberPointerAxisDiscrete   = "NotifyPointerAxisDiscrete"
	MemberKeyboardKeycode       = "NotifyKeyboardKeycode"
	MemberKeyboardKeysym        = "NotifyKeyboardKeysym"
	MemberTouchDown             = "NotifyTouchDown"
	MemberTouchMotion           = "NotifyTouchMotion"
	MemberTouchUp               = "NotifyTouchUp"
)

// EncodeEvent maps an input event to its method member and wire
// arguments, in declaration order.
func EncodeEvent(ev core.InputEvent) (string, []interface{}, error) {
	switch e := ev.(type) {
	case core.PointerMotion:
		return MemberPointerMotion, []interface{}{e.Dx, e.Dy}, nil
	case core.PointerMotionAbsolute:
		return MemberPointerMotionAbsolute, []interface{}{e.X, e.Y, e.Width, e.Height}, nil
	case core.PointerButton:
		return MemberPointerButton, []interface{}{e.Button, uint32(e.State)}, nil
	case core.PointerAxis:
		return MemberPointerAxis, []interface{}{uint32(e.Axis), e.Delta}, nil
	case core.PointerAxisDiscrete:
		return MemberPointerAxisDiscrete, []interface{}{uint32(e.Axis), e.Steps}, nil
	case core.KeyboardKeycode:
		return MemberKeyboardKeycode, []interface{}{e.Keycode, uint32(e.State)}, nil
	case core.KeyboardKeysym:
		return MemberKeyboardKeysym, []interface{}{e.Keysym, uint32(e.State)}, nil
	case core.TouchDown:
		return MemberTouchDown, []interface{}{e.Slot, e.X, e.Y, e.Width, e.Height}, nil
	case core.TouchMotion:
		return MemberTouchMotion, []interface{}{e.Slot, e.X, e.Y, e.Width, e.Height}, nil
	case core.TouchUp:
		return MemberTouchUp, []interface{}{e.Slot}, nil
	default:
		return "", nil, fmt.Errorf("unknown event variant %T", ev)
	}
}

// DecodeEvent is the inverse of EncodeEvent: it rebuilds the event
// variant from a member name and its wire arguments.
func DecodeEvent(member string, args []interface{}) (core.InputEvent, error) {
	fail := func() (core.InputEvent, error) {
		return nil, fmt.Errorf("malformed %s arguments", member)
	}
	switch member {
	case MemberPointerMotion:
		if len(args) != 2 {
			return fail()
		}
		dx, ok1 := args[0].(float64)
		dy, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return fail()
		}
		return core.PointerMotion{Dx: dx, Dy: dy}, nil
	case MemberPointerMotionAbsolute:
		if len(args) != 4 {
			return fail()
		}
		x, ok1 := args[0].(float64)
		y, ok2 := args[1].(float64)
		w, ok3 := args[2].(uint32)
		h, ok4 := args[3].(uint32)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return fail()
		}
		return core.PointerMotionAbsolute{X: x, Y: y, Width: w, Height: h}, nil
	case MemberPointerButton:
		if len(args) != 2 {
			return fail()
		}
		button, ok1 := args[0].(int32)
		state, ok2 := args[1].(uint32)
		if !ok1 || !ok2 {
			return fail()
		}
		return core.PointerButton{Button: button, State: core.ButtonState(state)}, nil
	case MemberPointerAxis:
		if len(args) != 2 {
			return fail()
		}
		axis, ok1 := args[0].(uint32)
		delta, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return fail()
		}
		return core.PointerAxis{Axis: core.Axis(axis), Delta: delta}, nil
	case MemberPointerAxisDiscrete:
		if len(args) != 2 {
			return fail()
		}
		axis, ok1 := args[0].(uint32)
		steps, ok2 := args[1].(int32)
		if !ok1 || !ok2 {
			return fail()
		}
		return core.PointerAxisDiscrete{Axis: core.Axis(axis), Steps: steps}, nil
	case MemberKeyboardKeycode:
		if len(args) != 2 {
			return fail()
		}
		keycode, ok1 := args[0].(int32)
		state, ok2 := args[1].(uint32)
		if !ok1 || !ok2 {
			return fail()
		}
		return core.KeyboardKeycode{Keycode: keycode, State: core.KeyState(state)}, nil
	case MemberKeyboardKeysym:
		if len(args) != 2 {
			return fail()
		}
		keysym, ok1 := args[0].(int32)
		state, ok2 := args[1].(uint32)
		if !ok1 || !ok2 {
			return fail()
		}
		return core.KeyboardKeysym{Keysym: keysym, State: core.KeyState(state)}, nil
	case MemberTouchDown, MemberTouchMotion:
		if len(args) != 5 {
			return fail()
		}
		slot, ok1 := args[0].(uint32)
		x, ok2 := args[1].(float64)
		y, ok3 := args[2].(float64)
		w, ok4 := args[3].(uint32)
		h, ok5 := args[4].(uint32)
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			return fail()
		}
		if member == MemberTouchDown {
			return core.TouchDown{Slot: slot, X: x, Y: y, Width: w, Height: h}, nil
		}
		return core.TouchMotion{Slot: slot, X: x, Y: y, Width: w, Height: h}, nil
	case MemberTouchUp:
		if len(args) != 1 {
			return fail()
		}
		slot, ok := args[0].(uint32)
		if !ok {
			return fail()
		}
		return core.TouchUp{Slot: slot}, nil
	default:
		return nil, fmt.Errorf("unknown member %s", member)
	}
}
