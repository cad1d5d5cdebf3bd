// Package robot talks to a Go2 robot over its WebRTC datachannel.
package robot

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v3"
	"github.com/tidwall/gjson"
)

const (
	defaultModeSettle   = 500 * time.Millisecond
	defaultRetryDelay   = 5 * time.Second
	defaultHeartbeat    = 2 * time.Second
	defaultConnectLimit = 20 * time.Second
)

// Channel is the datachannel transport used by the client.
type Channel interface {
	Send(data []byte) error
	Close() error
}

// MessageHandler receives the "data" section of a subscribed topic message.
type MessageHandler func(data []byte)

// TrackHandler receives remote media tracks from the robot.
type TrackHandler func(track *webrtc.TrackRemote)

// debugFrames controls whether every datachannel frame is logged.
var debugFrames atomic.Bool

// SetDebugLogging enables/disables verbose datachannel logs.
func SetDebugLogging(enabled bool) {
	debugFrames.Store(enabled)
}

// Client is a Go2 datachannel client. It is safe for concurrent use.
type Client struct {
	opts Options

	mu        sync.Mutex
	ch        Channel
	peer      *webrtc.PeerConnection
	validated bool
	readyCh   chan struct{}
	lostCh    chan struct{}
	pending   map[int64]chan Response
	subs      map[string]MessageHandler
	tracks    []TrackHandler
	mode      string
	closed    bool

	nextID atomic.Int64
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient returns an unconnected client. Call Run or Connect to dial.
func NewClient(opts Options) *Client {
	c := &Client{
		opts:    opts.withDefaults(),
		readyCh: make(chan struct{}),
		lostCh:  make(chan struct{}),
		pending: make(map[int64]chan Response),
		subs:    make(map[string]MessageHandler),
		sleep:   sleepCtx,
	}
	c.nextID.Store(time.Now().UnixMilli() % 2147483648)
	return c
}

// Connected reports whether the datachannel is validated and usable.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch != nil && c.validated
}

// Request sends a request and waits for the matching response.
func (c *Client) Request(ctx context.Context, topic string, apiID int, param any) (Response, error) {
	id := c.nextID.Add(1)
	payload, err := buildRequest(topic, id, apiID, param)
	if err != nil {
		return Response{}, err
	}

	respCh := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, ErrClosed
	}
	if c.ch == nil || !c.validated {
		c.mu.Unlock()
		return Response{}, ErrNotConnected
	}
	ch := c.ch
	lost := c.lostCh
	c.pending[id] = respCh
	c.mu.Unlock()
	defer c.forget(id)

	if debugFrames.Load() {
		log.Printf("debug: robot send %s", payload)
	}
	if err := ch.Send(payload); err != nil {
		return Response{}, fmt.Errorf("send %s api %d: %w", topic, apiID, err)
	}

	select {
	case resp := <-respCh:
		if resp.Code != 0 {
			return resp, &StatusError{Topic: topic, APIID: apiID, Code: resp.Code}
		}
		return resp, nil
	case <-lost:
		return Response{}, ErrNotConnected
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%s api %d: %w", topic, apiID, ctx.Err())
	}
}

// Subscribe registers fn for messages on topic. Subscriptions survive reconnects.
func (c *Client) Subscribe(topic string, fn MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = fn
	ch := c.ch
	validated := c.validated
	c.mu.Unlock()
	if ch == nil || !validated {
		return nil
	}
	return c.sendSimple(ch, msgSubscribe, topic, nil)
}

// Unsubscribe removes the handler for topic.
func (c *Client) Unsubscribe(topic string) error {
	c.mu.Lock()
	_, ok := c.subs[topic]
	delete(c.subs, topic)
	ch := c.ch
	validated := c.validated
	c.mu.Unlock()
	if !ok || ch == nil || !validated {
		return nil
	}
	return c.sendSimple(ch, msgUnsub, topic, nil)
}

// OnTrack registers fn for remote media tracks, including those of later reconnects.
func (c *Client) OnTrack(fn TrackHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = append(c.tracks, fn)
}

// SetVideo turns the robot's video channel on or off.
func (c *Client) SetVideo(on bool) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}
	state := "off"
	if on {
		state = "on"
	}
	return c.sendSimple(ch, msgVideo, "", state)
}

// Ready returns a channel closed once the current connection is validated.
func (c *Client) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyCh
}

// Close tears down the connection and fails pending requests.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	c.detach()
	return nil
}

// attach installs a fresh transport and resets per-connection state.
func (c *Client) attach(ch Channel, peer *webrtc.PeerConnection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ch = ch
	c.peer = peer
	c.validated = false
	c.mode = ""
	c.readyCh = make(chan struct{})
	c.lostCh = make(chan struct{})
}

// detach drops the transport and wakes pending requests.
func (c *Client) detach() {
	c.mu.Lock()
	ch := c.ch
	peer := c.peer
	c.ch = nil
	c.peer = nil
	c.validated = false
	c.mode = ""
	select {
	case <-c.lostCh:
	default:
		close(c.lostCh)
	}
	c.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	if peer != nil {
		_ = peer.Close()
	}
}

// lost returns a channel closed when the current transport goes away.
func (c *Client) lost() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lostCh
}

// forget removes a pending request.
func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// handleFrame routes one inbound datachannel message.
func (c *Client) handleFrame(raw []byte) {
	f, err := parseFrame(raw)
	if err != nil {
		log.Printf("robot: %v", err)
		return
	}
	if debugFrames.Load() && f.Type != msgMessage {
		log.Printf("debug: robot recv %s", truncate(raw, 512))
	}

	switch f.Type {
	case msgValidation:
		c.handleValidation(f.Data)
	case msgResponse:
		resp := parseResponse(f)
		c.mu.Lock()
		respCh, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if ok {
			select {
			case respCh <- resp:
			default:
			}
		}
	case msgMessage:
		c.mu.Lock()
		fn := c.subs[f.Topic]
		c.mu.Unlock()
		if fn != nil {
			fn([]byte(f.Data.Raw))
		}
	case msgErrors:
		log.Printf("robot: error report: %s", f.Data.Raw)
	}
}

// handleValidation answers the key challenge and marks the channel ready on success.
func (c *Client) handleValidation(data gjson.Result) {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return
	}

	if data.String() != validationOK {
		if err := c.sendSimple(ch, msgValidation, "", validationReply(data.String())); err != nil {
			log.Printf("robot: validation reply: %v", err)
		}
		return
	}

	c.mu.Lock()
	if c.ch != ch || c.validated {
		c.mu.Unlock()
		return
	}
	c.validated = true
	close(c.readyCh)
	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	log.Printf("robot: datachannel validated")
	for _, topic := range topics {
		if err := c.sendSimple(ch, msgSubscribe, topic, nil); err != nil {
			log.Printf("robot: subscribe %s: %v", topic, err)
		}
	}
}

// heartbeat keeps the datachannel alive until it is lost.
func (c *Client) heartbeat(ctx context.Context, ch Channel, lost <-chan struct{}) {
	ticker := time.NewTicker(c.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-lost:
			return
		case now := <-ticker.C:
			data := map[string]any{
				"timeInStr": now.Format("2006-01-02 15:04:05"),
				"timeInNum": now.Unix(),
			}
			if err := c.sendSimple(ch, msgHeartbeat, "", data); err != nil {
				return
			}
		}
	}
}

// sendSimple encodes and sends a type/topic/data message.
func (c *Client) sendSimple(ch Channel, msgType, topic string, data any) error {
	payload, err := buildSimple(msgType, topic, data)
	if err != nil {
		return err
	}
	return ch.Send(payload)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
