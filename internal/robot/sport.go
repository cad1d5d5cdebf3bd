// Package robot talks to a Go2 robot over its WebRTC datachannel.
package robot

import (
	"context"
	"fmt"
	"log"

	"github.com/tidwall/gjson"
)

// Action sends a named sport command with optional parameters.
func (c *Client) Action(ctx context.Context, name string, params map[string]any) (Response, error) {
	apiID, ok := SportCmd[name]
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	var param any
	if len(params) > 0 {
		param = params
	}
	return c.Request(ctx, TopicSport, apiID, param)
}

// MotionMode returns the active motion switcher mode.
func (c *Client) MotionMode(ctx context.Context) (string, error) {
	resp, err := c.Request(ctx, TopicMotionSwitcher, APIMotionGetMode, nil)
	if err != nil {
		return "", err
	}
	name := gjson.Get(resp.Data, "name").String()
	c.mu.Lock()
	c.mode = name
	c.mu.Unlock()
	return name, nil
}

// SetMotionMode switches the motion mode and waits for it to settle.
func (c *Client) SetMotionMode(ctx context.Context, mode string) error {
	if _, err := c.Request(ctx, TopicMotionSwitcher, APIMotionSetMode, map[string]string{"name": mode}); err != nil {
		return err
	}
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return c.sleep(ctx, c.opts.ModeSettle)
}

// Move sends a sport Move with forward, lateral, and yaw velocities.
// The robot is switched to normal mode first if needed; a zero move never
// changes the mode.
func (c *Client) Move(ctx context.Context, vx, vy, vyaw float64) error {
	if vx != 0 || vy != 0 || vyaw != 0 {
		if err := c.ensureNormalMode(ctx); err != nil {
			return err
		}
	}
	_, err := c.Request(ctx, TopicSport, SportCmd["Move"], map[string]float64{"x": vx, "y": vy, "z": vyaw})
	return err
}

// StopMove halts any ongoing motion.
func (c *Client) StopMove(ctx context.Context) error {
	_, err := c.Request(ctx, TopicSport, SportCmd["StopMove"], nil)
	return err
}

// ensureNormalMode checks the cached mode and switches to normal when needed.
func (c *Client) ensureNormalMode(ctx context.Context) error {
	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()
	if mode == "" {
		current, err := c.MotionMode(ctx)
		if err != nil {
			return err
		}
		mode = current
	}
	if mode == ModeNormal {
		return nil
	}
	log.Printf("robot: motion mode %q, switching to %s", mode, ModeNormal)
	return c.SetMotionMode(ctx, ModeNormal)
}
