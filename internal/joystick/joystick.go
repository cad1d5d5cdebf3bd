// Package joystick implements the on-screen joystick: pointer tracking, clamping, and normalization.
package joystick

// DefaultSize is the joystick diameter in pixels when none is configured.
const DefaultSize = 150

// Config holds the widget options.
type Config struct {
	Size float64
}

// EffectiveSize returns Size, falling back to DefaultSize when unset.
func (c Config) EffectiveSize() float64 {
	if c.Size <= 0 {
		return DefaultSize
	}
	return c.Size
}

// MaxDistance returns the clamp radius, one third of the diameter.
func (c Config) MaxDistance() float64 {
	return c.EffectiveSize() / 3
}

// Handlers are the host callbacks. Nil handlers are skipped.
type Handlers struct {
	OnMove    func(x, y float64)
	OnRotate  func(z float64)
	OnRelease func()
}

// BoundsFunc reads the current bounding box of the joystick base.
// It returns false when the element is not available.
type BoundsFunc func() (Rect, bool)

// State is the drag state of the joystick.
type State int

const (
	// Idle means no pointer interaction is in progress.
	Idle State = iota
	// Dragging means a press started on the base and has not been released.
	Dragging
)

// String returns the state name.
func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Joystick tracks a pointer relative to the base center and reports normalized movement.
// It is not safe for concurrent use; all events must come from one event loop.
type Joystick struct {
	cfg         Config
	bounds      BoundsFunc
	window      *Window
	handlers    Handlers
	state       State
	offset      Point
	unsubscribe func()
	ccw         *RotationButton
	cw          *RotationButton
}

// New returns an idle joystick. window may be nil when the host delivers
// move and end events directly.
func New(cfg Config, bounds BoundsFunc, window *Window, h Handlers) *Joystick {
	j := &Joystick{
		cfg:      cfg,
		bounds:   bounds,
		window:   window,
		handlers: h,
	}
	j.ccw = NewRotationButton(RotateCCW, j.rotate)
	j.cw = NewRotationButton(RotateCW, j.rotate)
	return j
}

// Start handles press-start on the base and begins a drag session.
func (j *Joystick) Start(ev PointerEvent) {
	if j.state == Idle {
		j.state = Dragging
		if j.window != nil {
			j.unsubscribe = j.window.Subscribe(dragListener{j: j})
		}
	}
	j.update(ev)
}

// Move handles a pointer move. It is ignored unless a drag is active.
func (j *Joystick) Move(ev PointerEvent) {
	if j.state != Dragging {
		return
	}
	j.update(ev)
}

// End finishes the drag session, recenters the stick, and fires OnRelease once.
func (j *Joystick) End() {
	if j.state != Dragging {
		return
	}
	j.state = Idle
	if j.unsubscribe != nil {
		j.unsubscribe()
		j.unsubscribe = nil
	}
	j.offset = Point{}
	if j.handlers.OnRelease != nil {
		j.handlers.OnRelease()
	}
}

// State returns the current drag state.
func (j *Joystick) State() State {
	return j.state
}

// Dragging reports whether a drag session is active.
func (j *Joystick) Dragging() bool {
	return j.state == Dragging
}

// Offset returns the visual stick offset from the center in pixels.
func (j *Joystick) Offset() Point {
	return j.offset
}

// Size returns the effective diameter in pixels.
func (j *Joystick) Size() float64 {
	return j.cfg.EffectiveSize()
}

// SetSize changes the diameter. The new clamp radius applies from the next update.
func (j *Joystick) SetSize(size float64) {
	j.cfg.Size = size
}

// RotateButtons returns the counter-clockwise and clockwise rotation buttons.
func (j *Joystick) RotateButtons() (ccw, cw *RotationButton) {
	return j.ccw, j.cw
}

// update recomputes the stick offset from a pointer event and reports it.
func (j *Joystick) update(ev PointerEvent) {
	if ev == nil || j.bounds == nil {
		return
	}
	p, ok := ev.ClientPoint()
	if !ok {
		return
	}
	box, ok := j.bounds()
	if !ok {
		return
	}

	center := box.Center()
	maxDistance := j.cfg.MaxDistance()
	j.offset = Clamp(Point{X: p.X - center.X, Y: p.Y - center.Y}, maxDistance)
	v := Normalize(j.offset, maxDistance)
	if j.handlers.OnMove != nil {
		j.handlers.OnMove(v.X, v.Y)
	}
}

// rotate forwards a rotation intent to the host.
func (j *Joystick) rotate(z float64) {
	if j.handlers.OnRotate != nil {
		j.handlers.OnRotate(z)
	}
}

// dragListener routes window events into the joystick while a drag is active.
type dragListener struct {
	j *Joystick
}

// WindowMove forwards a window-level move.
func (l dragListener) WindowMove(ev PointerEvent) {
	l.j.Move(ev)
}

// WindowEnd forwards a window-level release.
func (l dragListener) WindowEnd() {
	l.j.End()
}
