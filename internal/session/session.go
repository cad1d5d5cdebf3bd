// Package session holds runtime state for the active operator.
package session

import (
	"sync"

	"github.com/frudas24/go2pad/internal/joystick"
)

// Snapshot represents a read-only view of the current session state.
type Snapshot struct {
	Authenticated bool
	InputEnabled  bool
	JoystickSize  float64
}

// Session holds runtime state for the active operator.
type Session struct {
	mu            sync.RWMutex
	password      string
	authenticated bool
	inputEnabled  bool
	joystickSize  float64
}

// New returns an initialized session with the given password.
func New(password string) *Session {
	return &Session{
		password:     password,
		inputEnabled: true,
		joystickSize: joystick.DefaultSize,
	}
}

// Authenticate validates the password and marks the session as authenticated.
func (s *Session) Authenticate(pass string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pass != "" && pass == s.password {
		s.authenticated = true
		return true
	}
	s.authenticated = false
	return false
}

// Logout clears authentication state.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
}

// IsAuthenticated reports whether the session is authenticated.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// SetInputEnabled toggles whether joystick input reaches the robot.
func (s *Session) SetInputEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputEnabled = enabled
}

// InputEnabled reports whether joystick input reaches the robot.
func (s *Session) InputEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputEnabled
}

// SetJoystickSize stores the joystick diameter; non-positive sizes reset to the default.
func (s *Session) SetJoystickSize(size float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size <= 0 {
		size = joystick.DefaultSize
	}
	s.joystickSize = size
}

// JoystickSize returns the joystick diameter in pixels.
func (s *Session) JoystickSize() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joystickSize
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Authenticated: s.authenticated,
		InputEnabled:  s.inputEnabled,
		JoystickSize:  s.joystickSize,
	}
}
