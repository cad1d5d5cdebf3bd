// Package control turns browser pointer events into joystick updates and robot commands.
package control

import (
	"math"
	"sync"

	"github.com/frudas24/go2pad/internal/joystick"
)

// Limits are the robot velocities reached at full stick deflection or rotation.
type Limits struct {
	Forward float64
	Lateral float64
	Yaw     float64
}

// Mixer combines joystick movement and rotation into robot commands.
type Mixer struct {
	mu      sync.Mutex
	limits  Limits
	enabled func() bool
	out     *Dispatcher
	x, y, z float64
}

// NewMixer returns a mixer that enqueues commands on out while enabled reports true.
func NewMixer(limits Limits, enabled func() bool, out *Dispatcher) *Mixer {
	return &Mixer{limits: limits, enabled: enabled, out: out}
}

// Handlers returns joystick callbacks bound to the mixer.
func (m *Mixer) Handlers() joystick.Handlers {
	return joystick.Handlers{
		OnMove:    m.OnMove,
		OnRotate:  m.OnRotate,
		OnRelease: m.OnRelease,
	}
}

// OnMove records the stick vector and sends the combined command.
func (m *Mixer) OnMove(x, y float64) {
	m.mu.Lock()
	m.x, m.y = x, y
	cmd := m.commandLocked()
	m.mu.Unlock()
	m.send(cmd)
}

// OnRotate records the rotation intent and sends the combined command.
func (m *Mixer) OnRotate(z float64) {
	m.mu.Lock()
	m.z = z
	cmd := m.commandLocked()
	m.mu.Unlock()
	m.send(cmd)
}

// OnRelease zeroes the stick. The robot stops unless a rotation is still held.
func (m *Mixer) OnRelease() {
	m.mu.Lock()
	m.x, m.y = 0, 0
	cmd := m.commandLocked()
	m.mu.Unlock()
	m.send(cmd)
}

// Set replaces all inputs at once, as a direct move request does.
// Values are clamped to [-1, 1].
func (m *Mixer) Set(x, y, z float64) bool {
	if m.enabled != nil && !m.enabled() {
		return false
	}
	m.mu.Lock()
	m.x, m.y, m.z = clampUnit(x), clampUnit(y), clampUnit(z)
	cmd := m.commandLocked()
	m.mu.Unlock()
	m.out.Enqueue(cmd)
	return true
}

// Halt clears all inputs and stops the robot regardless of the kill switch.
func (m *Mixer) Halt() {
	m.mu.Lock()
	m.x, m.y, m.z = 0, 0, 0
	m.mu.Unlock()
	m.out.Enqueue(Command{Kind: CmdStop})
}

// commandLocked maps the current inputs to a command; the caller holds m.mu.
func (m *Mixer) commandLocked() Command {
	cmd := Command{
		Kind: CmdMove,
		VX:   m.y * m.limits.Forward,
		VY:   -m.x * m.limits.Lateral,
		VYaw: -m.z * m.limits.Yaw,
	}
	if cmd.VX == 0 && cmd.VY == 0 && cmd.VYaw == 0 {
		return Command{Kind: CmdStop}
	}
	return cmd
}

// send enqueues cmd when input is enabled.
func (m *Mixer) send(cmd Command) {
	if m.enabled != nil && !m.enabled() {
		return
	}
	m.out.Enqueue(cmd)
}

// clampUnit limits v to [-1, 1].
func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
