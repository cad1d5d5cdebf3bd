// Package main runs a terminal joystick that drives a go2pad server.
package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/frudas24/go2pad/internal/joystick"
	"github.com/gdamore/tcell/v2"
)

const (
	sendInterval = 50 * time.Millisecond
	pollInterval = time.Second
	stopTimeout  = 2 * time.Second
	// keyHold outlasts the terminal's initial key-repeat delay.
	keyHold = 550 * time.Millisecond
)

// rotateReleaseEvent releases a rotation key once its repeats stop.
type rotateReleaseEvent struct {
	tcell.EventTime
	button *joystick.RotationButton
	seq    int
}

// statusEvent carries a status line update into the event loop.
type statusEvent struct {
	tcell.EventTime
	text string
}

// ui owns the screen and the terminal pad.
type ui struct {
	screen tcell.Screen
	pad    *terminalPad
	holds  map[*joystick.RotationButton]int
	status string
	last   vector
}

// run logs in, then drives the terminal joystick until the user quits.
func run(server, password string, size float64) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := newAPIClient(server)
	if err := api.login(ctx, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if size <= 0 {
		if st, err := api.state(ctx); err == nil {
			size = st.JoystickSize
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()
	screen.EnableMouse()

	u := &ui{screen: screen, holds: map[*joystick.RotationButton]int{}}
	postStatus := func(text string) {
		ev := &statusEvent{text: text}
		ev.SetEventNow()
		_ = screen.PostEvent(ev)
	}
	out := newSender(func(ctx context.Context, v vector) error {
		return api.move(ctx, v.X, v.Y, v.Z)
	}, sendInterval, func(err error) { postStatus(err.Error()) })
	go out.run(ctx)
	go pollStatus(ctx, api, postStatus)

	u.pad = newTerminalPad(size, func(v vector) {
		u.last = v
		out.push(v)
	})
	u.layout()

	for {
		u.draw()
		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			u.layout()
			screen.Sync()
		case *tcell.EventMouse:
			col, row := ev.Position()
			u.pad.mouse(col, row, ev.Buttons()&tcell.Button1 != 0)
		case *tcell.EventKey:
			if u.key(ev) {
				u.pad.stick.End()
				if err := out.halt(stopTimeout); err != nil {
					return fmt.Errorf("stop robot: %w", err)
				}
				return nil
			}
		case *rotateReleaseEvent:
			if u.holds[ev.button] == ev.seq {
				ev.button.Release()
			}
		case *statusEvent:
			u.status = ev.text
		}
	}
}

// key handles a key press and reports whether to quit.
func (u *ui) key(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}
	ccw, cw := u.pad.stick.RotateButtons()
	switch ev.Rune() {
	case 'q':
		return true
	case '[':
		u.hold(ccw)
	case ']':
		u.hold(cw)
	case ' ':
		u.pad.stick.End()
		ccw.Release()
		cw.Release()
	}
	return false
}

// hold presses b and schedules its release unless the key repeats.
func (u *ui) hold(b *joystick.RotationButton) {
	if !b.Pressed() {
		b.Press()
	}
	u.holds[b]++
	seq := u.holds[b]
	time.AfterFunc(keyHold, func() {
		ev := &rotateReleaseEvent{button: b, seq: seq}
		ev.SetEventNow()
		_ = u.screen.PostEvent(ev)
	})
}

// layout centers the joystick base on the screen.
func (u *ui) layout() {
	w, h := u.screen.Size()
	u.pad.place(w/2, h/2)
}

// draw renders the base, the knob, and the status lines.
func (u *ui) draw() {
	s := u.screen
	s.Clear()
	ring := tcell.StyleDefault.Foreground(tcell.ColorGray)
	knob := tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)

	base := u.pad.base
	c := base.Center()
	r := base.W / 2
	minCol, minRow := pixelCell(base.X, base.Y)
	maxCol, maxRow := pixelCell(base.X+base.W, base.Y+base.H)
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			x, y := cellCenter(col, row)
			d := math.Hypot(x-c.X, y-c.Y)
			switch {
			case d <= r && d > r-cellWidthPx:
				s.SetContent(col, row, 'o', nil, ring)
			case d <= r:
				s.SetContent(col, row, '.', nil, ring)
			}
		}
	}
	kc, kr := u.pad.knobCell()
	s.SetContent(kc, kr, '@', nil, knob)

	drawText(s, 0, 0, "go2pad  drag: mouse  rotate: [ ]  stop: space  quit: q")
	drawText(s, 0, 1, fmt.Sprintf("x %+.2f  y %+.2f  z %+.2f  %s", u.last.X, u.last.Y, u.last.Z, u.pad.stick.State()))
	drawText(s, 0, 2, u.status)
	s.Show()
}

// drawText writes a single line of text.
func drawText(s tcell.Screen, col, row int, text string) {
	for i, r := range []rune(text) {
		s.SetContent(col+i, row, r, nil, tcell.StyleDefault)
	}
}

// pollStatus reports robot connection and telemetry once per interval.
func pollStatus(ctx context.Context, api *apiClient, post func(string)) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		post(statusLine(ctx, api))
	}
}

// statusLine summarizes server state and telemetry.
func statusLine(ctx context.Context, api *apiClient) string {
	st, err := api.state(ctx)
	if err != nil {
		return err.Error()
	}
	line := fmt.Sprintf("robot connected: %v  input: %v", st.RobotConnected, st.InputEnabled)
	tel, err := api.telemetry(ctx)
	if err != nil || !tel.Available || tel.State == nil {
		return line
	}
	line += fmt.Sprintf("  mode %d  height %.2f  yaw %.2f  (%dms)", tel.State.Mode, tel.State.BodyHeight, tel.State.YawSpeed, tel.AgeMs)
	return line
}
