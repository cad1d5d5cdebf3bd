// Package main runs a terminal joystick that drives a go2pad server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiClient talks to the go2pad HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

type moveBody struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type serverState struct {
	InputEnabled   bool    `json:"inputEnabled"`
	JoystickSize   float64 `json:"joystickSize"`
	RobotConnected bool    `json:"robotConnected"`
}

type telemetryView struct {
	Available bool  `json:"available"`
	AgeMs     int64 `json:"ageMs"`
	State     *struct {
		Mode       int       `json:"mode"`
		BodyHeight float64   `json:"body_height"`
		Velocity   []float64 `json:"velocity"`
		YawSpeed   float64   `json:"yaw_speed"`
	} `json:"state"`
}

// newAPIClient returns a client for the server at base.
func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 5 * time.Second},
	}
}

// login authenticates the server session.
func (c *apiClient) login(ctx context.Context, password string) error {
	return c.do(ctx, http.MethodPost, "/login", map[string]string{"password": password}, nil)
}

// move posts a joystick vector.
func (c *apiClient) move(ctx context.Context, x, y, z float64) error {
	return c.do(ctx, http.MethodPost, "/api/move", moveBody{X: x, Y: y, Z: z}, nil)
}

// state fetches session and robot state.
func (c *apiClient) state(ctx context.Context) (serverState, error) {
	var out serverState
	err := c.do(ctx, http.MethodGet, "/api/state", nil, &out)
	return out, err
}

// telemetry fetches the latest sport state.
func (c *apiClient) telemetry(ctx context.Context) (telemetryView, error) {
	var out telemetryView
	err := c.do(ctx, http.MethodGet, "/api/telemetry", nil, &out)
	return out, err
}

// do sends a JSON request and decodes a JSON response into out when set.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
