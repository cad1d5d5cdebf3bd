// Package joystick implements the on-screen joystick: pointer tracking, clamping, and normalization.
package joystick

// WindowListener receives window-level pointer events.
type WindowListener interface {
	WindowMove(ev PointerEvent)
	WindowEnd()
}

type windowEntry struct {
	id       int
	listener WindowListener
}

// Window is the document-level event source. Listeners only receive events
// while subscribed, so a drag that ends outside the widget still resolves.
type Window struct {
	nextID  int
	entries []windowEntry
}

// NewWindow returns an empty window event source.
func NewWindow() *Window {
	return &Window{}
}

// Subscribe registers l and returns an idempotent unsubscribe function.
func (w *Window) Subscribe(l WindowListener) func() {
	w.nextID++
	id := w.nextID
	w.entries = append(w.entries, windowEntry{id: id, listener: l})
	return func() {
		w.remove(id)
	}
}

// Listeners returns the number of active subscriptions.
func (w *Window) Listeners() int {
	return len(w.entries)
}

// DispatchMouseMove delivers a window mousemove.
func (w *Window) DispatchMouseMove(x, y float64) {
	w.dispatchMove(MouseEvent{ClientX: x, ClientY: y})
}

// DispatchTouchMove delivers a window touchmove.
func (w *Window) DispatchTouchMove(touches []Point) {
	w.dispatchMove(TouchEvent{Touches: touches})
}

// DispatchMouseUp delivers a window mouseup.
func (w *Window) DispatchMouseUp() {
	w.dispatchEnd()
}

// DispatchTouchEnd delivers a window touchend.
func (w *Window) DispatchTouchEnd() {
	w.dispatchEnd()
}

// dispatchMove fans a move out to a snapshot of the subscribers.
func (w *Window) dispatchMove(ev PointerEvent) {
	for _, e := range w.snapshot() {
		e.listener.WindowMove(ev)
	}
}

// dispatchEnd fans an end out to a snapshot of the subscribers.
func (w *Window) dispatchEnd() {
	for _, e := range w.snapshot() {
		e.listener.WindowEnd()
	}
}

// snapshot copies the entries so listeners may unsubscribe during dispatch.
func (w *Window) snapshot() []windowEntry {
	out := make([]windowEntry, len(w.entries))
	copy(out, w.entries)
	return out
}

// remove drops the entry with the given id, if still present.
func (w *Window) remove(id int) {
	for i, e := range w.entries {
		if e.id == id {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return
		}
	}
}
