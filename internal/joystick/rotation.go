// Package joystick implements the on-screen joystick: pointer tracking, clamping, and normalization.
package joystick

// Rotation intents reported through OnRotate.
const (
	RotateCCW  = -0.5
	RotateNone = 0.0
	RotateCW   = 0.5
)

// RotationButton is a press-and-hold rotation control. It is independent of the drag state.
type RotationButton struct {
	Direction float64
	onRotate  func(z float64)
	pressed   bool
}

// NewRotationButton returns a button that reports direction while held.
func NewRotationButton(direction float64, onRotate func(z float64)) *RotationButton {
	return &RotationButton{Direction: direction, onRotate: onRotate}
}

// Press reports the button's direction.
func (b *RotationButton) Press() {
	b.pressed = true
	b.emit(b.Direction)
}

// Release reports no rotation.
func (b *RotationButton) Release() {
	b.pressed = false
	b.emit(RotateNone)
}

// Leave reports no rotation when the pointer leaves a pressed button.
func (b *RotationButton) Leave() {
	if !b.pressed {
		return
	}
	b.pressed = false
	b.emit(RotateNone)
}

// Pressed reports whether the button is held.
func (b *RotationButton) Pressed() bool {
	return b.pressed
}

func (b *RotationButton) emit(z float64) {
	if b.onRotate != nil {
		b.onRotate(z)
	}
}
