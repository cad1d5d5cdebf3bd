package signaling

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
)

type plainPeers struct{}

// NewPeer returns a bare peer connection.
func (plainPeers) NewPeer() (*webrtc.PeerConnection, error) {
	return webrtc.NewPeerConnection(webrtc.Configuration{})
}

// TestServeHTTP_Unauthorized verifies the auth gate runs before upgrade.
func TestServeHTTP_Unauthorized(t *testing.T) {
	s := NewServer(plainPeers{}, ViewerReject, func() bool { return false }, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/signal", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// TestServeHTTP_SendsVideoStateAndReportsViewer verifies the greeting and viewer hooks.
func TestServeHTTP_SendsVideoStateAndReportsViewer(t *testing.T) {
	events := make(chan bool, 4)
	s := NewServer(plainPeers{}, ViewerReplace, func() bool { return true }, func(active bool) { events <- active })
	s.NotifyVideo(true)

	srv := httptest.NewServer(s)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if msg.T != "video" || msg.Video == nil || !*msg.Video {
		t.Fatalf("unexpected greeting %+v", msg)
	}
	_ = conn.Close()

	for _, want := range []bool{true, false} {
		select {
		case got := <-events:
			if got != want {
				t.Fatalf("expected viewer event %v, got %v", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for viewer event %v", want)
		}
	}
}
