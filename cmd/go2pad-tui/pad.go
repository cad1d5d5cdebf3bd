// Package main runs a terminal joystick that drives a go2pad server.
package main

import (
	"math"

	"github.com/frudas24/go2pad/internal/joystick"
)

// Terminal cells are mapped to pixels with a fixed aspect so the joystick math
// matches the browser.
const (
	cellWidthPx  = 8.0
	cellHeightPx = 16.0
)

// vector is the combined joystick and rotation input.
type vector struct {
	X, Y, Z float64
}

// terminalPad hosts a joystick on a grid of terminal cells.
type terminalPad struct {
	window  *joystick.Window
	stick   *joystick.Joystick
	base    joystick.Rect
	pressed bool
	input   vector
	out     func(vector)
}

// newTerminalPad returns a pad of the given pixel diameter; out receives every input change.
func newTerminalPad(size float64, out func(vector)) *terminalPad {
	p := &terminalPad{window: joystick.NewWindow(), out: out}
	p.stick = joystick.New(joystick.Config{Size: size}, p.bounds, p.window, joystick.Handlers{
		OnMove: func(x, y float64) {
			p.input.X, p.input.Y = x, y
			p.emit()
		},
		OnRotate: func(z float64) {
			p.input.Z = z
			p.emit()
		},
		OnRelease: func() {
			p.input.X, p.input.Y = 0, 0
			p.emit()
		},
	})
	return p
}

// place centers the base on the given cell.
func (p *terminalPad) place(col, row int) {
	size := p.stick.Size()
	cx, cy := cellCenter(col, row)
	p.base = joystick.Rect{X: cx - size/2, Y: cy - size/2, W: size, H: size}
}

// mouse feeds one mouse sample. Pressing inside the base starts a drag;
// motion and release anywhere follow window semantics.
func (p *terminalPad) mouse(col, row int, down bool) {
	x, y := cellCenter(col, row)
	switch {
	case down && !p.pressed:
		p.pressed = true
		if p.inside(x, y) {
			p.stick.Start(joystick.MouseEvent{ClientX: x, ClientY: y})
		}
	case down && p.pressed:
		p.window.DispatchMouseMove(x, y)
	case !down && p.pressed:
		p.pressed = false
		p.window.DispatchMouseUp()
	}
}

// inside reports whether a pixel lies within the circular base.
func (p *terminalPad) inside(x, y float64) bool {
	c := p.base.Center()
	return math.Hypot(x-c.X, y-c.Y) <= p.base.W/2
}

// bounds returns the base rectangle once placed.
func (p *terminalPad) bounds() (joystick.Rect, bool) {
	return p.base, p.base.W > 0
}

// knobCell returns the cell under the visual stick position.
func (p *terminalPad) knobCell() (int, int) {
	c := p.base.Center()
	off := p.stick.Offset()
	return pixelCell(c.X+off.X, c.Y+off.Y)
}

// emit forwards the current input.
func (p *terminalPad) emit() {
	if p.out != nil {
		p.out(p.input)
	}
}

// cellCenter returns the pixel center of a cell.
func cellCenter(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * cellWidthPx, (float64(row) + 0.5) * cellHeightPx
}

// pixelCell returns the cell containing a pixel.
func pixelCell(x, y float64) (int, int) {
	return int(math.Floor(x / cellWidthPx)), int(math.Floor(y / cellHeightPx))
}
