// Package control turns browser pointer events into joystick updates and robot commands.
package control

import (
	"fmt"

	"github.com/frudas24/go2pad/internal/joystick"
)

// Pad is the server-side joystick for one control connection.
type Pad struct {
	window *joystick.Window
	stick  *joystick.Joystick
	box    *joystick.Rect
}

// NewPad returns an idle pad of the given diameter wired to h.
func NewPad(size float64, h joystick.Handlers) *Pad {
	p := &Pad{window: joystick.NewWindow()}
	p.stick = joystick.New(joystick.Config{Size: size}, p.bounds, p.window, h)
	return p
}

// Handle applies one pointer, rotation, or size message.
func (p *Pad) Handle(msg Message) error {
	switch msg.T {
	case "down":
		ev, err := pointerEvent(msg)
		if err != nil {
			return err
		}
		p.box = toRect(msg.Box)
		p.stick.Start(ev)
	case "move":
		if err := checkSource(msg.Src); err != nil {
			return err
		}
		if msg.Box != nil {
			p.box = toRect(msg.Box)
		}
		if msg.Src == SrcTouch {
			p.window.DispatchTouchMove(touchPoints(msg.Touches))
		} else {
			p.window.DispatchMouseMove(msg.X, msg.Y)
		}
	case "up":
		if msg.Src == SrcTouch {
			p.window.DispatchTouchEnd()
		} else {
			p.window.DispatchMouseUp()
		}
	case "rotate":
		return p.rotate(msg.Dir, msg.Phase)
	case "size":
		p.stick.SetSize(msg.Size)
	}
	return nil
}

// Release ends any drag and lets go of held rotation buttons.
func (p *Pad) Release() {
	p.stick.End()
	ccw, cw := p.stick.RotateButtons()
	ccw.Leave()
	cw.Leave()
}

// Stick returns the current visual state for the client.
func (p *Pad) Stick() StickMessage {
	off := p.stick.Offset()
	return StickMessage{T: "stick", X: off.X, Y: off.Y, Dragging: p.stick.Dragging(), Size: p.stick.Size()}
}

// rotate drives the rotation buttons.
func (p *Pad) rotate(dir, phase string) error {
	ccw, cw := p.stick.RotateButtons()
	var b *joystick.RotationButton
	switch dir {
	case DirCCW:
		b = ccw
	case DirCW:
		b = cw
	default:
		return fmt.Errorf("unknown rotation direction %q", dir)
	}
	switch phase {
	case PhasePress:
		b.Press()
	case PhaseRelease:
		b.Release()
	case PhaseLeave:
		b.Leave()
	default:
		return fmt.Errorf("unknown rotation phase %q", phase)
	}
	return nil
}

// bounds reports the last bounding box the client sent.
func (p *Pad) bounds() (joystick.Rect, bool) {
	if p.box == nil {
		return joystick.Rect{}, false
	}
	return *p.box, true
}

// checkSource rejects pointer sources other than mouse and touch; empty means mouse.
func checkSource(src string) error {
	switch src {
	case SrcTouch, SrcMouse, "":
		return nil
	default:
		return fmt.Errorf("unknown pointer source %q", src)
	}
}

// pointerEvent adapts a down message to the joystick pointer abstraction.
func pointerEvent(msg Message) (joystick.PointerEvent, error) {
	if err := checkSource(msg.Src); err != nil {
		return nil, err
	}
	if msg.Src == SrcTouch {
		return joystick.TouchEvent{Touches: touchPoints(msg.Touches)}, nil
	}
	return joystick.MouseEvent{ClientX: msg.X, ClientY: msg.Y}, nil
}

// touchPoints converts wire touches to joystick points.
func touchPoints(in []Touch) []joystick.Point {
	out := make([]joystick.Point, len(in))
	for i, t := range in {
		out[i] = joystick.Point{X: t.X, Y: t.Y}
	}
	return out
}

// toRect converts a wire box, keeping nil as "unavailable".
func toRect(b *Box) *joystick.Rect {
	if b == nil {
		return nil
	}
	return &joystick.Rect{X: b.X, Y: b.Y, W: b.W, H: b.H}
}
