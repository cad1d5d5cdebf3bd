package control

import (
	"math"
	"testing"
)

var testLimits = Limits{Forward: 1.0, Lateral: 0.6, Yaw: 1.2}

// queued returns a copy of the dispatcher queue.
func queued(d *Dispatcher) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.queue...)
}

// near reports whether a and b agree within a small tolerance.
func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestMixer_MapsStickAndRotation verifies axis mapping into robot velocities.
func TestMixer_MapsStickAndRotation(t *testing.T) {
	d := NewDispatcher(nil, 0)
	m := NewMixer(testLimits, nil, d)

	m.OnMove(0.5, 1)
	m.OnRotate(0.5)

	q := queued(d)
	if len(q) != 1 {
		t.Fatalf("expected coalesced single move, got %+v", q)
	}
	cmd := q[0]
	if cmd.Kind != CmdMove || !near(cmd.VX, 1) || !near(cmd.VY, -0.3) || !near(cmd.VYaw, -0.6) {
		t.Fatalf("unexpected command %+v", cmd)
	}
}

// TestMixer_ReleaseStops verifies a released stick with no rotation stops the robot.
func TestMixer_ReleaseStops(t *testing.T) {
	d := NewDispatcher(nil, 0)
	m := NewMixer(testLimits, nil, d)

	m.OnMove(0, 0.6)
	m.OnRelease()

	q := queued(d)
	if len(q) != 2 || q[0].Kind != CmdMove || q[1].Kind != CmdStop {
		t.Fatalf("expected move then stop, got %+v", q)
	}
}

// TestMixer_ReleaseKeepsRotation verifies a held rotation survives the stick release.
func TestMixer_ReleaseKeepsRotation(t *testing.T) {
	d := NewDispatcher(nil, 0)
	m := NewMixer(testLimits, nil, d)

	m.OnRotate(-0.5)
	m.OnMove(1, 0)
	m.OnRelease()

	q := queued(d)
	last := q[len(q)-1]
	if last.Kind != CmdMove || last.VX != 0 || last.VY != 0 || !near(last.VYaw, 0.6) {
		t.Fatalf("expected yaw-only move, got %+v", last)
	}
}

// TestMixer_DisabledInput verifies the kill switch suppresses commands but not Halt.
func TestMixer_DisabledInput(t *testing.T) {
	d := NewDispatcher(nil, 0)
	m := NewMixer(testLimits, func() bool { return false }, d)

	m.OnMove(1, 1)
	m.OnRotate(0.5)
	if q := queued(d); len(q) != 0 {
		t.Fatalf("expected no commands while disabled, got %+v", q)
	}

	m.Halt()
	if q := queued(d); len(q) != 1 || q[0].Kind != CmdStop {
		t.Fatalf("expected stop from Halt, got %+v", q)
	}
}

// TestMixer_SetClampsAndRespectsKillSwitch verifies direct moves.
func TestMixer_SetClampsAndRespectsKillSwitch(t *testing.T) {
	enabled := true
	d := NewDispatcher(nil, 0)
	m := NewMixer(testLimits, func() bool { return enabled }, d)

	if !m.Set(0, 3, 0) {
		t.Fatalf("expected move accepted")
	}
	if q := queued(d); len(q) != 1 || !near(q[0].VX, 1) {
		t.Fatalf("expected clamped forward move, got %+v", q)
	}

	enabled = false
	if m.Set(1, 0, 0) {
		t.Fatalf("expected move rejected while disabled")
	}
}
