package telemetry

import (
	"testing"
	"time"

	"github.com/frudas24/go2pad/internal/robot"
)

type fakeSubscriber struct {
	topic string
	fn    robot.MessageHandler
}

// Subscribe records the registration.
func (f *fakeSubscriber) Subscribe(topic string, fn robot.MessageHandler) error {
	f.topic = topic
	f.fn = fn
	return nil
}

// TestAttach_SubscribesSportState verifies the monitor listens on the LF topic.
func TestAttach_SubscribesSportState(t *testing.T) {
	m := NewMonitor()
	sub := &fakeSubscriber{}
	if err := m.Attach(sub); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if sub.topic != robot.TopicLFSportModeState || sub.fn == nil {
		t.Fatalf("unexpected subscription %+v", sub)
	}
}

// TestHandle_DecodesState verifies state decoding and timestamping.
func TestHandle_DecodesState(t *testing.T) {
	m := NewMonitor()
	at := time.Unix(100, 0)
	m.now = func() time.Time { return at }

	m.Handle([]byte(`{"mode":1,"gait_type":2,"body_height":0.32,"velocity":[0.1,0,0],"imu_state":{"rpy":[0,0,1.5],"temperature":41}}`))
	state, got, ok := m.Latest()
	if !ok || !got.Equal(at) {
		t.Fatalf("expected state at %v, got ok=%v at=%v", at, ok, got)
	}
	if state.Mode != 1 || state.GaitType != 2 || state.BodyHeight != 0.32 || state.IMU.Temperature != 41 {
		t.Fatalf("unexpected state %+v", state)
	}
}

// TestHandle_KeepsLastGoodOnError verifies malformed frames do not clobber state.
func TestHandle_KeepsLastGoodOnError(t *testing.T) {
	m := NewMonitor()
	m.Handle([]byte(`{"mode":3}`))
	m.Handle([]byte(`not json`))
	state, _, ok := m.Latest()
	if !ok || state.Mode != 3 {
		t.Fatalf("expected last good state, got %+v ok=%v", state, ok)
	}
}
