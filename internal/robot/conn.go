// Package robot talks to a Go2 robot over its WebRTC datachannel.
package robot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
)

// Connection methods supported by the local offer endpoint.
const (
	MethodLocalSTA = "LocalSTA"
	MethodLocalAP  = "LocalAP"
)

// localAPAddr is the robot address on its own access point.
const localAPAddr = "192.168.12.1"

const defaultOfferPort = 8081

// Options configures how the client reaches the robot.
type Options struct {
	IP            string
	Method        string
	OfferPort     int
	ModeSettle    time.Duration
	RetryDelay    time.Duration
	Heartbeat     time.Duration
	ConnectLimit  time.Duration
	HTTPClient    *http.Client
	ICEServerURLs []string
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Method == "" {
		o.Method = MethodLocalSTA
	}
	if o.Method == MethodLocalAP && o.IP == "" {
		o.IP = localAPAddr
	}
	if o.OfferPort <= 0 {
		o.OfferPort = defaultOfferPort
	}
	if o.ModeSettle <= 0 {
		o.ModeSettle = defaultModeSettle
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = defaultHeartbeat
	}
	if o.ConnectLimit <= 0 {
		o.ConnectLimit = defaultConnectLimit
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return o
}

// offerURL returns the robot's SDP offer endpoint.
func (o Options) offerURL() string {
	return "http://" + net.JoinHostPort(o.IP, strconv.Itoa(o.OfferPort)) + "/offer"
}

// offerID returns the peer id the firmware expects for the connection method.
func (o Options) offerID() string {
	if o.Method == MethodLocalSTA {
		return "STA_localNetwork"
	}
	return ""
}

type offerRequest struct {
	ID    string `json:"id"`
	SDP   string `json:"sdp"`
	Type  string `json:"type"`
	Token string `json:"token"`
}

type offerAnswer struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

// dataChannel adapts a pion datachannel to Channel.
type dataChannel struct {
	dc *webrtc.DataChannel
}

// Send writes a text frame.
func (d dataChannel) Send(data []byte) error {
	return d.dc.SendText(string(data))
}

// Close closes the datachannel.
func (d dataChannel) Close() error {
	return d.dc.Close()
}

// Run keeps the client connected until ctx is done, redialing after failures.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.Connect(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				return err
			}
			log.Printf("robot: connect %s: %v", c.opts.IP, err)
		} else {
			select {
			case <-ctx.Done():
				c.detach()
				return ctx.Err()
			case <-c.lost():
				log.Printf("robot: connection lost")
			}
		}
		if err := sleepCtx(ctx, c.opts.RetryDelay); err != nil {
			return err
		}
	}
}

// Connect dials the robot once and waits for datachannel validation.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if c.opts.IP == "" {
		return errors.New("robot ip not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ConnectLimit)
	defer cancel()

	peer, dc, err := c.newPeer()
	if err != nil {
		return err
	}
	c.attach(dataChannel{dc: dc}, peer)
	ch, lost, ready := c.transport()

	dc.OnOpen(func() {
		log.Printf("robot: datachannel open")
		go c.heartbeat(context.Background(), ch, lost)
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.handleFrame(msg.Data)
	})
	peer.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("robot: peer %s", state)
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			c.dropIfCurrent(ch)
		}
	})
	peer.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Printf("robot: remote %s track %s", track.Kind(), track.Codec().MimeType)
		c.mu.Lock()
		handlers := append([]TrackHandler(nil), c.tracks...)
		c.mu.Unlock()
		for _, fn := range handlers {
			fn(track)
		}
	})

	if err := c.negotiate(ctx, peer); err != nil {
		c.dropIfCurrent(ch)
		return err
	}

	select {
	case <-ready:
		return nil
	case <-lost:
		return ErrNotConnected
	case <-ctx.Done():
		c.dropIfCurrent(ch)
		return fmt.Errorf("waiting for validation: %w", ctx.Err())
	}
}

// newPeer builds the peer connection with a datachannel and receive-only media.
func (c *Client) newPeer() (*webrtc.PeerConnection, *webrtc.DataChannel, error) {
	media := &webrtc.MediaEngine{}
	if err := media.RegisterDefaultCodecs(); err != nil {
		return nil, nil, fmt.Errorf("register codecs: %w", err)
	}
	interceptors := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(media, interceptors); err != nil {
		return nil, nil, fmt.Errorf("register interceptors: %w", err)
	}
	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(media),
		webrtc.WithInterceptorRegistry(interceptors),
	)

	cfg := webrtc.Configuration{}
	if len(c.opts.ICEServerURLs) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: c.opts.ICEServerURLs}}
	}
	peer, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, nil, err
	}

	recvOnly := webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		if _, err := peer.AddTransceiverFromKind(kind, recvOnly); err != nil {
			_ = peer.Close()
			return nil, nil, err
		}
	}

	dc, err := peer.CreateDataChannel("data", nil)
	if err != nil {
		_ = peer.Close()
		return nil, nil, err
	}
	return peer, dc, nil
}

// negotiate posts the local offer to the robot and applies its answer.
func (c *Client) negotiate(ctx context.Context, peer *webrtc.PeerConnection) error {
	offer, err := peer.CreateOffer(nil)
	if err != nil {
		return err
	}
	gatherComplete := webrtc.GatheringCompletePromise(peer)
	if err := peer.SetLocalDescription(offer); err != nil {
		return err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return ctx.Err()
	}
	local := peer.LocalDescription()
	if local == nil {
		return fmt.Errorf("missing local description")
	}

	body, err := json.Marshal(offerRequest{ID: c.opts.offerID(), SDP: local.SDP, Type: "offer"})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.offerURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post offer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post offer: status %d", resp.StatusCode)
	}

	var answer offerAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	if strings.TrimSpace(answer.SDP) == "" {
		return fmt.Errorf("empty answer (peer may be busy with another client)")
	}
	return peer.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer.SDP})
}

// transport returns the current channel and its lifecycle signals.
func (c *Client) transport() (Channel, <-chan struct{}, <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch, c.lostCh, c.readyCh
}

// dropIfCurrent detaches only if ch is still the active transport.
func (c *Client) dropIfCurrent(ch Channel) {
	c.mu.Lock()
	current := c.ch == ch
	c.mu.Unlock()
	if current {
		c.detach()
	}
}
