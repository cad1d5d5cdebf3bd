// Package app wires HTTP, signaling, control, and robot state together.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frudas24/go2pad/internal/robot"
	"github.com/frudas24/go2pad/internal/telemetry"
	"github.com/frudas24/go2pad/internal/web"
)

const robotRequestTimeout = 5 * time.Second

// RegisterRoutes wires API and static handlers onto the mux.
func (a *App) RegisterRoutes(mux *http.ServeMux, staticDir string) {
	if staticDir == "" {
		staticDir = filepath.Join("internal", "web", "static")
	}

	mux.HandleFunc("/login", a.handleLogin)
	mux.HandleFunc("/logout", a.handleLogout)
	mux.HandleFunc("/api/state", a.handleState)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/motion/mode/{mode}", a.handleMotionMode)
	mux.HandleFunc("/api/action/{command}", a.handleAction)
	mux.HandleFunc("/api/move", a.handleMove)
	mux.HandleFunc("/api/telemetry", a.handleTelemetry)
	mux.Handle("/ws/signal", a.Signaling())
	mux.Handle("/ws/control", a.Control())
	mux.HandleFunc("/favicon.ico", handleFavicon)
	if stream := a.Preview(); stream != nil {
		mux.HandleFunc("/video.mjpeg", a.authenticated(stream.Handler))
		mux.HandleFunc("/ws/video", a.authenticated(stream.ServeWS))
	}

	mux.Handle("/", staticFileServer(staticDir))
}

type loginRequest struct {
	Password string `json:"password"`
}

type stateResponse struct {
	Authenticated  bool         `json:"authenticated"`
	Preview        bool         `json:"preview"`
	InputEnabled   bool         `json:"inputEnabled"`
	JoystickSize   float64      `json:"joystickSize"`
	RobotConnected bool         `json:"robotConnected"`
	Limits         limitsConfig `json:"limits"`
}

type limitsConfig struct {
	Forward float64 `json:"forward"`
	Lateral float64 `json:"lateral"`
	Yaw     float64 `json:"yaw"`
}

type statusResponse struct {
	Connected bool   `json:"connected"`
	Mode      string `json:"mode"`
}

type moveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type actionResponse struct {
	OK   bool            `json:"ok"`
	Code int             `json:"code"`
	Data json.RawMessage `json:"data,omitempty"`
}

type telemetryResponse struct {
	Available bool                  `json:"available"`
	AgeMs     int64                 `json:"ageMs,omitempty"`
	State     *telemetry.SportState `json:"state,omitempty"`
}

// handleLogin authenticates the session.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !a.session.Authenticate(req.Password) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// handleLogout clears authentication state and stops the robot.
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.session.Logout()
	a.mixer.Halt()
	writeJSON(w, map[string]bool{"ok": true})
}

// handleState returns session state, joystick config, and robot connection.
func (a *App) handleState(w http.ResponseWriter, _ *http.Request) {
	if !a.requireAuth(w) {
		return
	}
	snap := a.session.Snapshot()
	writeJSON(w, stateResponse{
		Authenticated:  snap.Authenticated,
		Preview:        a.stream != nil,
		InputEnabled:   snap.InputEnabled,
		JoystickSize:   snap.JoystickSize,
		RobotConnected: a.robot.Connected(),
		Limits: limitsConfig{
			Forward: a.cfg.MaxForward,
			Lateral: a.cfg.MaxLateral,
			Yaw:     a.cfg.MaxYaw,
		},
	})
}

// handleStatus reports the robot motion mode.
func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !a.requireAuth(w) {
		return
	}
	if !a.robot.Connected() {
		http.Error(w, robot.ErrNotConnected.Error(), http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), robotRequestTimeout)
	defer cancel()
	mode, err := a.robot.MotionMode(ctx)
	if err != nil {
		writeRobotError(w, err)
		return
	}
	writeJSON(w, statusResponse{Connected: true, Mode: mode})
}

// handleMotionMode switches the robot motion mode.
func (a *App) handleMotionMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.requireAuth(w) {
		return
	}
	mode := strings.TrimSpace(r.PathValue("mode"))
	if mode == "" {
		http.Error(w, "mode is required", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), robotRequestTimeout)
	defer cancel()
	if err := a.robot.SetMotionMode(ctx, mode); err != nil {
		writeRobotError(w, err)
		return
	}
	writeJSON(w, statusResponse{Connected: true, Mode: mode})
}

// handleAction runs a named sport command with optional JSON parameters.
func (a *App) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.requireAuth(w) {
		return
	}
	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), robotRequestTimeout)
	defer cancel()
	resp, err := a.robot.Action(ctx, r.PathValue("command"), params)
	if err != nil {
		writeRobotError(w, err)
		return
	}
	out := actionResponse{OK: true, Code: resp.Code}
	if json.Valid([]byte(resp.Data)) {
		out.Data = json.RawMessage(resp.Data)
	}
	writeJSON(w, out)
}

// handleMove applies a joystick vector directly, as the terminal client does.
func (a *App) handleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !a.requireAuth(w) {
		return
	}
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !a.mixer.Set(req.X, req.Y, req.Z) {
		http.Error(w, "input disabled", http.StatusConflict)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

// handleTelemetry returns the latest sport state.
func (a *App) handleTelemetry(w http.ResponseWriter, _ *http.Request) {
	if !a.requireAuth(w) {
		return
	}
	state, at, ok := a.telemetry.Latest()
	if !ok {
		writeJSON(w, telemetryResponse{})
		return
	}
	writeJSON(w, telemetryResponse{
		Available: true,
		AgeMs:     time.Since(at).Milliseconds(),
		State:     &state,
	})
}

// requireAuth returns false and writes an error if the session is not authenticated.
func (a *App) requireAuth(w http.ResponseWriter) bool {
	if !a.session.IsAuthenticated() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// authenticated wraps h with the session auth check.
func (a *App) authenticated(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.requireAuth(w) {
			return
		}
		h(w, r)
	}
}

// writeRobotError maps robot errors to HTTP status codes.
func writeRobotError(w http.ResponseWriter, err error) {
	var statusErr *robot.StatusError
	switch {
	case errors.Is(err, robot.ErrUnknownCommand):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, robot.ErrNotConnected), errors.Is(err, robot.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	case errors.As(err, &statusErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("app: encode response: %v", err)
	}
}

// staticFileServer returns a handler for static assets, preferring disk then embed.
func staticFileServer(staticDir string) http.Handler {
	if staticDir != "" {
		if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
			return http.FileServer(http.Dir(staticDir))
		}
	}

	embedded, err := web.StaticFS()
	if err != nil {
		log.Printf("static assets unavailable: %v", err)
		return http.NotFoundHandler()
	}
	return http.FileServer(http.FS(embedded))
}

// handleFavicon avoids noisy 404s for the default browser request.
func handleFavicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
