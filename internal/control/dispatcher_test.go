package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frudas24/go2pad/internal/testutil"
)

// waitCalls blocks until the fake has recorded n calls.
func waitCalls(t *testing.T, f *testutil.FakeRobot, n int) []testutil.Call {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if calls := f.Snapshot(); len(calls) >= n {
			return calls
		}
		select {
		case <-f.Notify():
		case <-deadline:
			t.Fatalf("timed out waiting for %d calls, have %+v", n, f.Snapshot())
		}
	}
}

// TestDispatcher_StopSequence verifies a stop zeroes velocity and then halts the gait.
func TestDispatcher_StopSequence(t *testing.T) {
	fake := &testutil.FakeRobot{}
	d := NewDispatcher(fake, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Command{Kind: CmdMove, VX: 0.4})
	d.Enqueue(Command{Kind: CmdStop})

	calls := waitCalls(t, fake, 3)
	if calls[0].Name != "Move" || calls[0].VX != 0.4 {
		t.Fatalf("unexpected first call %+v", calls[0])
	}
	if calls[1].Name != "Move" || calls[1].VX != 0 || calls[2].Name != "StopMove" {
		t.Fatalf("unexpected stop sequence %+v", calls[1:])
	}
}

// TestDispatcher_CoalescesMoves verifies queued moves collapse into the latest.
func TestDispatcher_CoalescesMoves(t *testing.T) {
	fake := &testutil.FakeRobot{}
	d := NewDispatcher(fake, 0)

	for i := 1; i <= 5; i++ {
		d.Enqueue(Command{Kind: CmdMove, VX: float64(i) / 10})
	}
	d.Enqueue(Command{Kind: CmdStop})
	d.Enqueue(Command{Kind: CmdStop})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	calls := waitCalls(t, fake, 3)
	if calls[0].VX != 0.5 {
		t.Fatalf("expected latest move, got %+v", calls[0])
	}
	time.Sleep(20 * time.Millisecond)
	if n := len(fake.Snapshot()); n != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", n)
	}
	if d.Sent() != 2 {
		t.Fatalf("expected 2 commands sent, got %d", d.Sent())
	}
}

// TestDispatcher_ErrorsDoNotStall verifies failures are counted and delivery continues.
func TestDispatcher_ErrorsDoNotStall(t *testing.T) {
	fake := &testutil.FakeRobot{Err: errors.New("link down")}
	d := NewDispatcher(fake, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Command{Kind: CmdMove, VX: 1})
	deadline := time.Now().Add(2 * time.Second)
	for d.Sent() < 1 {
		if time.Now().After(deadline) {
			t.Fatalf("command was not attempted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(fake.Snapshot()) != 0 {
		t.Fatalf("expected no recorded calls on error")
	}
}

// TestDispatcher_StopSurvivesFailedMove verifies StopMove is sent when the zero move fails.
func TestDispatcher_StopSurvivesFailedMove(t *testing.T) {
	fake := &testutil.FakeRobot{MoveErr: errors.New("mode switch failed")}
	d := NewDispatcher(fake, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(Command{Kind: CmdStop})
	calls := waitCalls(t, fake, 1)
	if calls[0].Name != "StopMove" {
		t.Fatalf("expected StopMove, got %+v", calls)
	}
}

// TestDispatcher_DrainWaitsForQueuedStop verifies Drain returns after the stop reaches the driver.
func TestDispatcher_DrainWaitsForQueuedStop(t *testing.T) {
	fake := &testutil.FakeRobot{}
	d := NewDispatcher(fake, 30*time.Millisecond)
	if !d.Drain(time.Second) {
		t.Fatalf("expected empty dispatcher to be drained")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)
	d.Enqueue(Command{Kind: CmdMove, VX: 1})
	waitCalls(t, fake, 1)
	d.Enqueue(Command{Kind: CmdStop})

	if !d.Drain(time.Second) {
		t.Fatalf("expected drain to finish")
	}
	calls := fake.Snapshot()
	if len(calls) != 3 || calls[2].Name != "StopMove" {
		t.Fatalf("expected stop delivered before drain returned, got %+v", calls)
	}
}

// TestDispatcher_MixerEndToEnd verifies joystick callbacks reach the driver.
func TestDispatcher_MixerEndToEnd(t *testing.T) {
	fake := &testutil.FakeRobot{}
	d := NewDispatcher(fake, 0)
	m := NewMixer(testLimits, func() bool { return true }, d)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	pad := NewPad(150, m.Handlers())
	_ = pad.Handle(Message{T: "down", Src: SrcMouse, X: 175, Y: 125, Box: testBox})
	calls := waitCalls(t, fake, 1)
	if calls[0].Name != "Move" || !near(calls[0].VX, 1) {
		t.Fatalf("expected full forward, got %+v", calls[0])
	}

	_ = pad.Handle(Message{T: "up", Src: SrcMouse})
	calls = waitCalls(t, fake, 3)
	if calls[2].Name != "StopMove" {
		t.Fatalf("expected stop after release, got %+v", calls)
	}
}
