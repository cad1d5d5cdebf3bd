// Package testutil provides fakes shared by package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/frudas24/go2pad/internal/robot"
)

// Call records a single robot operation.
type Call struct {
	Name   string
	VX     float64
	VY     float64
	VYaw   float64
	Mode   string
	Video  bool
	Params map[string]any
}

// FakeRobot records calls and answers with canned values. It is safe for concurrent use.
type FakeRobot struct {
	mu        sync.Mutex
	Calls     []Call
	Mode      string
	Offline   bool
	Err       error
	MoveErr   error
	notify    chan struct{}
	notifyMux sync.Once
}

// Notify returns a channel that receives after every recorded call.
func (f *FakeRobot) Notify() <-chan struct{} {
	f.notifyMux.Do(func() { f.notify = make(chan struct{}, 64) })
	return f.notify
}

// Move records a move, failing with MoveErr when set.
func (f *FakeRobot) Move(_ context.Context, vx, vy, vyaw float64) error {
	f.mu.Lock()
	moveErr := f.MoveErr
	f.mu.Unlock()
	if moveErr != nil {
		return moveErr
	}
	return f.record(Call{Name: "Move", VX: vx, VY: vy, VYaw: vyaw})
}

// StopMove records a stop.
func (f *FakeRobot) StopMove(context.Context) error {
	return f.record(Call{Name: "StopMove"})
}

// Connected reports whether the fake is online.
func (f *FakeRobot) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Offline
}

// MotionMode returns the canned mode.
func (f *FakeRobot) MotionMode(context.Context) (string, error) {
	if err := f.record(Call{Name: "MotionMode"}); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Mode, nil
}

// SetMotionMode records a mode switch.
func (f *FakeRobot) SetMotionMode(_ context.Context, mode string) error {
	if err := f.record(Call{Name: "SetMotionMode", Mode: mode}); err != nil {
		return err
	}
	f.mu.Lock()
	f.Mode = mode
	f.mu.Unlock()
	return nil
}

// Action records a sport command, rejecting unknown names like the real client.
func (f *FakeRobot) Action(_ context.Context, name string, params map[string]any) (robot.Response, error) {
	if _, ok := robot.SportCmd[name]; !ok {
		return robot.Response{}, robot.ErrUnknownCommand
	}
	if err := f.record(Call{Name: name, Params: params}); err != nil {
		return robot.Response{}, err
	}
	return robot.Response{Topic: robot.TopicSport, APIID: robot.SportCmd[name]}, nil
}

// SetVideo records a camera toggle.
func (f *FakeRobot) SetVideo(on bool) error {
	return f.record(Call{Name: "SetVideo", Video: on})
}

// Snapshot returns a copy of the recorded calls.
func (f *FakeRobot) Snapshot() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.Calls...)
}

// record appends a call unless the fake is offline or failing.
func (f *FakeRobot) record(c Call) error {
	f.mu.Lock()
	if f.Offline {
		f.mu.Unlock()
		return robot.ErrNotConnected
	}
	if f.Err != nil {
		err := f.Err
		f.mu.Unlock()
		return err
	}
	f.Calls = append(f.Calls, c)
	f.mu.Unlock()

	f.Notify()
	select {
	case f.notify <- struct{}{}:
	default:
	}
	return nil
}
