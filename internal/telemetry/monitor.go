// Package telemetry tracks the robot's sport mode state.
package telemetry

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/frudas24/go2pad/internal/robot"
)

// Subscriber registers topic handlers on the robot datachannel.
type Subscriber interface {
	Subscribe(topic string, fn robot.MessageHandler) error
}

// Monitor keeps the latest sport state.
type Monitor struct {
	mu      sync.RWMutex
	latest  SportState
	at      time.Time
	have    bool
	dropped int
	now     func() time.Time
}

// NewMonitor returns an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{now: time.Now}
}

// Attach subscribes the monitor to the low-frequency sport state topic.
func (m *Monitor) Attach(sub Subscriber) error {
	return sub.Subscribe(robot.TopicLFSportModeState, m.Handle)
}

// Handle decodes one sport state message.
func (m *Monitor) Handle(data []byte) {
	var state SportState
	if err := json.Unmarshal(data, &state); err != nil {
		m.mu.Lock()
		m.dropped++
		dropped := m.dropped
		m.mu.Unlock()
		if dropped == 1 || dropped%100 == 0 {
			log.Printf("telemetry: decode sport state (%d dropped): %v", dropped, err)
		}
		return
	}
	m.mu.Lock()
	m.latest = state
	m.at = m.now()
	m.have = true
	m.mu.Unlock()
}

// Latest returns the most recent state and when it arrived.
func (m *Monitor) Latest() (SportState, time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.at, m.have
}
