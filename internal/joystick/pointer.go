// Package joystick implements the on-screen joystick: pointer tracking, clamping, and normalization.
package joystick

// PointerEvent is a mouse or touch event reduced to a single client position.
type PointerEvent interface {
	// ClientPoint returns the pointer position, or false when the event carries none.
	ClientPoint() (Point, bool)
}

// MouseEvent adapts a mouse event.
type MouseEvent struct {
	ClientX float64
	ClientY float64
}

// ClientPoint returns the mouse position.
func (e MouseEvent) ClientPoint() (Point, bool) {
	return Point{X: e.ClientX, Y: e.ClientY}, true
}

// TouchEvent adapts a touch event; only the first touch point is tracked.
type TouchEvent struct {
	Touches []Point
}

// ClientPoint returns the first touch point, or false when no touch is present.
func (e TouchEvent) ClientPoint() (Point, bool) {
	if len(e.Touches) == 0 {
		return Point{}, false
	}
	return e.Touches[0], true
}
