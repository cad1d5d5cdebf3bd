package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frudas24/go2pad/internal/config"
	"github.com/frudas24/go2pad/internal/media"
	"github.com/frudas24/go2pad/internal/session"
	"github.com/frudas24/go2pad/internal/telemetry"
	"github.com/frudas24/go2pad/internal/testutil"
)

type testApp struct {
	app    *App
	mux    *http.ServeMux
	robot  *testutil.FakeRobot
	sess   *session.Session
	tel    *telemetry.Monitor
	cancel context.CancelFunc
}

// newTestApp builds an authenticated app around a fake robot.
func newTestApp(t *testing.T) testApp {
	t.Helper()
	sess := session.New("pw")
	if !sess.Authenticate("pw") {
		t.Fatalf("expected authenticate success")
	}
	fake := &testutil.FakeRobot{Mode: "normal"}
	pub, err := media.NewPublisher()
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	tel := telemetry.NewMonitor()
	cfg := config.Config{JoystickSize: 150, MaxForward: 1, MaxLateral: 0.6, MaxYaw: 1.2}
	a, err := New(cfg, sess, fake, pub, tel)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		a.Stop()
	})
	a.Start(ctx)

	mux := http.NewServeMux()
	a.RegisterRoutes(mux, t.TempDir())
	return testApp{app: a, mux: mux, robot: fake, sess: sess, tel: tel, cancel: cancel}
}

// do serves one request through the mux.
func (ta testApp) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	rec := httptest.NewRecorder()
	ta.mux.ServeHTTP(rec, req)
	return rec
}

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

// TestNew_RequiresDependencies verifies constructor validation.
func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(config.Config{}, nil, &testutil.FakeRobot{}, nil, nil); err == nil {
		t.Fatalf("expected error without session")
	}
	if _, err := New(config.Config{}, session.New("pw"), nil, nil, nil); err == nil {
		t.Fatalf("expected error without robot")
	}
}

// TestAPI_Unauthorized verifies API routes require authentication.
func TestAPI_Unauthorized(t *testing.T) {
	ta := newTestApp(t)
	ta.sess.Logout()

	for _, path := range []string{"/api/state", "/api/status", "/api/telemetry"} {
		if rec := ta.do(http.MethodGet, path, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
	if rec := ta.do(http.MethodPost, "/api/move", `{"y":1}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("move: expected 401, got %d", rec.Code)
	}
}

// TestLogin_RejectsWrongPassword verifies the login handler.
func TestLogin_RejectsWrongPassword(t *testing.T) {
	ta := newTestApp(t)
	ta.sess.Logout()

	if rec := ta.do(http.MethodPost, "/login", `{"password":"nope"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := ta.do(http.MethodPost, "/login", `{"password":"pw"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !ta.sess.IsAuthenticated() {
		t.Fatalf("expected authenticated session")
	}
}

// TestState_ReportsJoystickAndRobot verifies the state payload.
func TestState_ReportsJoystickAndRobot(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.RobotConnected || resp.JoystickSize != 150 || resp.Limits.Lateral != 0.6 {
		t.Fatalf("unexpected state %+v", resp)
	}
}

// TestStatus_OfflineRobot verifies 503 while the robot is disconnected.
func TestStatus_OfflineRobot(t *testing.T) {
	ta := newTestApp(t)
	ta.robot.Offline = true
	if rec := ta.do(http.MethodGet, "/api/status", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

// TestStatus_ReportsMode verifies the motion mode lookup.
func TestStatus_ReportsMode(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(http.MethodGet, "/api/status", "")
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Connected || resp.Mode != "normal" {
		t.Fatalf("unexpected status %+v", resp)
	}
}

// TestMotionMode_Switches verifies the path parameter reaches the robot.
func TestMotionMode_Switches(t *testing.T) {
	ta := newTestApp(t)
	if rec := ta.do(http.MethodGet, "/api/motion/mode/ai", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec := ta.do(http.MethodPost, "/api/motion/mode/ai", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	calls := ta.robot.Snapshot()
	if len(calls) != 1 || calls[0].Name != "SetMotionMode" || calls[0].Mode != "ai" {
		t.Fatalf("unexpected calls %+v", calls)
	}
}

// TestAction_KnownAndUnknown verifies sport command routing.
func TestAction_KnownAndUnknown(t *testing.T) {
	ta := newTestApp(t)
	if rec := ta.do(http.MethodPost, "/api/action/Backflip9000", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := ta.do(http.MethodPost, "/api/action/Hello", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := ta.do(http.MethodPost, "/api/action/Euler", `{"x":0.1,"y":0,"z":0}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := ta.do(http.MethodPost, "/api/action/Euler", `{"x":`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", rec.Code)
	}

	calls := ta.robot.Snapshot()
	if len(calls) != 2 || calls[0].Name != "Hello" || calls[1].Params["x"] != 0.1 {
		t.Fatalf("unexpected calls %+v", calls)
	}
}

// TestMove_DrivesRobotAndHonorsKillSwitch verifies direct moves.
func TestMove_DrivesRobotAndHonorsKillSwitch(t *testing.T) {
	ta := newTestApp(t)
	if rec := ta.do(http.MethodPost, "/api/move", `{"x":0,"y":0.5,"z":0}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	calls := waitCalls(t, ta.robot, 1)
	if calls[0].Name != "Move" || calls[0].VX != 0.5 {
		t.Fatalf("unexpected call %+v", calls[0])
	}

	ta.sess.SetInputEnabled(false)
	if rec := ta.do(http.MethodPost, "/api/move", `{"y":1}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

// TestLogout_HaltsRobot verifies logging out stops motion.
func TestLogout_HaltsRobot(t *testing.T) {
	ta := newTestApp(t)
	if rec := ta.do(http.MethodPost, "/logout", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	calls := waitCalls(t, ta.robot, 2)
	if calls[1].Name != "StopMove" {
		t.Fatalf("expected stop, got %+v", calls)
	}
}

// TestStop_DeliversFinalStopAfterCancel verifies shutdown stops the robot even
// after the start context is gone.
func TestStop_DeliversFinalStopAfterCancel(t *testing.T) {
	ta := newTestApp(t)
	ta.app.mixer.OnMove(0, 1)
	calls := waitCalls(t, ta.robot, 1)
	if calls[0].Name != "Move" || calls[0].VX != 1 {
		t.Fatalf("unexpected call %+v", calls[0])
	}

	ta.cancel()
	ta.app.Stop()
	calls = ta.robot.Snapshot()
	if len(calls) < 3 || calls[len(calls)-1].Name != "StopMove" {
		t.Fatalf("expected StopMove delivered by Stop, got %+v", calls)
	}
	if ta.sess.InputEnabled() {
		t.Fatalf("expected input disabled after Stop")
	}

	ta.app.mixer.OnMove(0, 1)
	time.Sleep(20 * time.Millisecond)
	if n := len(ta.robot.Snapshot()); n != len(calls) {
		t.Fatalf("expected no commands after Stop, got %+v", ta.robot.Snapshot())
	}
}

// TestTelemetry_LatestState verifies telemetry availability.
func TestTelemetry_LatestState(t *testing.T) {
	ta := newTestApp(t)
	var resp telemetryResponse
	rec := ta.do(http.MethodGet, "/api/telemetry", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Available {
		t.Fatalf("expected unavailable telemetry, got %+v (%v)", resp, err)
	}

	ta.tel.Handle([]byte(`{"mode":1,"body_height":0.32,"velocity":[0.1,0,0]}`))
	rec = ta.do(http.MethodGet, "/api/telemetry", "")
	resp = telemetryResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Available || resp.State == nil || resp.State.BodyHeight != 0.32 {
		t.Fatalf("unexpected telemetry %+v", resp)
	}
}

// TestVideo_FollowsViewers verifies the robot camera toggles with viewer presence.
func TestVideo_FollowsViewers(t *testing.T) {
	ta := newTestApp(t)
	ta.app.webrtcViewerChanged(true)
	ta.app.jpegViewersChanged(2)
	ta.app.webrtcViewerChanged(false)
	ta.app.jpegViewersChanged(0)

	calls := ta.robot.Snapshot()
	if len(calls) != 2 {
		t.Fatalf("expected on and off only, got %+v", calls)
	}
	if calls[0].Name != "SetVideo" || !calls[0].Video || calls[1].Video {
		t.Fatalf("unexpected video calls %+v", calls)
	}
}

// TestJoystickSize_PersistsAcrossRestarts verifies saved sizes override config.
func TestJoystickSize_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Config{DataDir: dir, JoystickSize: 150, MaxForward: 1, MaxLateral: 0.6, MaxYaw: 1.2}
	pub, err := media.NewPublisher()
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	first, err := New(cfg, session.New("pw"), &testutil.FakeRobot{}, pub, nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	first.saveJoystickSize(240)

	sess := session.New("pw")
	if _, err := New(cfg, sess, &testutil.FakeRobot{}, pub, nil); err != nil {
		t.Fatalf("new app: %v", err)
	}
	if sess.JoystickSize() != 240 {
		t.Fatalf("expected saved size 240, got %v", sess.JoystickSize())
	}
}

// TestPreview_RoutesRequireAuth verifies preview endpoints exist only when configured and are gated.
func TestPreview_RoutesRequireAuth(t *testing.T) {
	ta := newTestApp(t)
	if ta.app.Preview() != nil {
		t.Fatalf("expected preview disabled without ffmpeg")
	}

	cfg := config.Config{JoystickSize: 150, MaxForward: 1, MaxLateral: 0.6, MaxYaw: 1.2,
		FFmpegPath: "ffmpeg", PreviewWidth: 320, PreviewHeight: 180, PreviewFPS: 5, PreviewQuality: 60}
	pub, err := media.NewPublisher()
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	a, err := New(cfg, session.New("pw"), &testutil.FakeRobot{}, pub, nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if a.Preview() == nil {
		t.Fatalf("expected preview stream")
	}
	mux := http.NewServeMux()
	a.RegisterRoutes(mux, t.TempDir())
	for _, path := range []string{"/video.mjpeg", "/ws/video"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}
