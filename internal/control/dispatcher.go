// Package control turns browser pointer events into joystick updates and robot commands.
package control

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

const defaultCommandTimeout = 2 * time.Second

// Driver executes motion commands on the robot.
type Driver interface {
	Move(ctx context.Context, vx, vy, vyaw float64) error
	StopMove(ctx context.Context) error
}

// CommandKind identifies a motion command.
type CommandKind string

const (
	// CmdMove sets forward, lateral, and yaw velocities.
	CmdMove CommandKind = "move"
	// CmdStop zeroes velocity and halts the gait.
	CmdStop CommandKind = "stop"
)

// Command is a motion command for the robot.
type Command struct {
	Kind CommandKind
	VX   float64
	VY   float64
	VYaw float64
}

// Dispatcher sends commands to the driver in order from a single goroutine, so
// joystick callbacks never block on the robot. Queued moves coalesce into the
// latest one, and moves are spaced at least interval apart.
type Dispatcher struct {
	driver   Driver
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	queue   []Command
	wake    chan struct{}
	lastErr string
	sent    int
	running bool
	busy    bool
}

// NewDispatcher returns a dispatcher; call Run to start delivering.
func NewDispatcher(driver Driver, interval time.Duration) *Dispatcher {
	return &Dispatcher{
		driver:   driver,
		interval: interval,
		timeout:  defaultCommandTimeout,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue adds cmd, replacing a trailing queued move when cmd is also a move.
// A stop after a queued stop is dropped.
func (d *Dispatcher) Enqueue(cmd Command) {
	d.mu.Lock()
	if n := len(d.queue); n > 0 && d.queue[n-1].Kind == cmd.Kind {
		d.queue[n-1] = cmd
	} else {
		d.queue = append(d.queue, cmd)
	}
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Sent returns the number of commands delivered to the driver.
func (d *Dispatcher) Sent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent
}

// Drain waits until every queued command has been delivered, or timeout
// passes. It reports false on timeout or when Run is not active.
func (d *Dispatcher) Drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		d.mu.Lock()
		running, idle := d.running, len(d.queue) == 0 && !d.busy
		d.mu.Unlock()
		if idle {
			return true
		}
		if !running || time.Now().After(deadline) {
			return false
		}
		time.Sleep(drainPoll)
	}
}

const drainPoll = 5 * time.Millisecond

// Run delivers commands until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.busy = false
		d.mu.Unlock()
	}()

	for {
		cmd, ok := d.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
			}
			continue
		}

		d.exec(ctx, cmd)
		if cmd.Kind == CmdMove && d.interval > 0 {
			timer := time.NewTimer(d.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}
}

// next pops the oldest queued command.
func (d *Dispatcher) next() (Command, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Command{}, false
	}
	cmd := d.queue[0]
	d.queue = d.queue[1:]
	d.busy = true
	return cmd, true
}

// exec runs one command against the driver and logs failures once per distinct error.
func (d *Dispatcher) exec(ctx context.Context, cmd Command) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var err error
	switch cmd.Kind {
	case CmdMove:
		err = d.driver.Move(ctx, cmd.VX, cmd.VY, cmd.VYaw)
	case CmdStop:
		// StopMove goes out even when the zero move fails.
		moveErr := d.driver.Move(ctx, 0, 0, 0)
		err = errors.Join(moveErr, d.driver.StopMove(ctx))
	}

	d.mu.Lock()
	d.sent++
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	changed := msg != d.lastErr
	d.lastErr = msg
	d.mu.Unlock()

	if err != nil && changed {
		log.Printf("control: %s command failed: %v", cmd.Kind, err)
	}
}
