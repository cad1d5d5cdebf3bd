// Package ffmpeg decodes the robot's H264 RTP stream into preview frames.
package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/frudas24/go2pad/internal/mjpeg"
	"github.com/pion/rtp"
)

const previewRestartBackoff = 2 * time.Second

// Preview pipes relayed RTP packets through ffmpeg and publishes JPEG frames.
type Preview struct {
	mu      sync.Mutex
	opts    Options
	stream  *mjpeg.Stream
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	udp     *net.UDPConn
	port    int
	closed  bool
	running bool
	frames  uint64
}

// NewPreview returns a preview pipeline bound to the given stream.
func NewPreview(stream *mjpeg.Stream, opts Options) *Preview {
	return &Preview{stream: stream, opts: opts.withDefaults()}
}

// Start launches ffmpeg and begins publishing frames.
func (p *Preview) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opts.FFmpegPath == "" {
		return errors.New("FFmpegPath is required")
	}
	p.closed = false
	p.stopLocked()

	port, err := allocatePort()
	if err != nil {
		return err
	}
	udp, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		return err
	}
	p.port = port
	p.udp = udp

	log.Printf("ffmpeg: preview %s %s (rtp port %d)", p.opts.FFmpegPath, strings.Join(BuildPreviewArgs(p.opts), " "), port)
	if err := p.startProcessLocked(); err != nil {
		_ = udp.Close()
		p.udp = nil
		return err
	}
	p.running = true
	go p.loop()
	return nil
}

// Stop terminates ffmpeg.
func (p *Preview) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.running = false
	p.stopLocked()
	if p.udp != nil {
		_ = p.udp.Close()
		p.udp = nil
	}
}

// WriteRTP forwards one packet to ffmpeg. Packets are dropped while stopped.
func (p *Preview) WriteRTP(pkt *rtp.Packet) error {
	p.mu.Lock()
	udp := p.udp
	running := p.running
	p.mu.Unlock()
	if !running || udp == nil {
		return nil
	}
	out := *pkt
	out.Header.PayloadType = previewPayloadType
	buf, err := out.Marshal()
	if err != nil {
		return err
	}
	_, err = udp.Write(buf)
	return err
}

// Frames returns the number of frames published.
func (p *Preview) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

// startProcessLocked launches ffmpeg and feeds it the SDP description.
func (p *Preview) startProcessLocked() error {
	cmd := exec.Command(p.opts.FFmpegPath, BuildPreviewArgs(p.opts)...)
	configureCmd(cmd)
	cmd.Stdin = strings.NewReader(BuildSDP(p.port))
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	p.cmd = cmd
	p.stdout = stdout
	return nil
}

// stopLocked kills any running ffmpeg process.
func (p *Preview) stopLocked() {
	if p.stdout != nil {
		_ = p.stdout.Close()
		p.stdout = nil
	}
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	}
	p.cmd = nil
}

// loop reads raw frames and publishes them as JPEG.
func (p *Preview) loop() {
	w, h := p.opts.Width, p.opts.Height
	raw := make([]byte, w*h*3)
	for {
		p.mu.Lock()
		stdout := p.stdout
		closed := p.closed
		p.mu.Unlock()
		if closed || stdout == nil {
			return
		}
		if _, err := io.ReadFull(stdout, raw); err != nil {
			if !p.handleReadError(err) {
				return
			}
			continue
		}
		p.stream.Publish(mjpeg.EncodeRGBToJPEG(raw, w, h, p.opts.Quality))
		p.mu.Lock()
		p.frames++
		p.mu.Unlock()
	}
}

// handleReadError restarts ffmpeg after a read failure.
func (p *Preview) handleReadError(err error) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	log.Printf("ffmpeg: preview read error: %v (restart in %s)", err, previewRestartBackoff)
	time.Sleep(previewRestartBackoff)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.stopLocked()
	if err := p.startProcessLocked(); err != nil {
		log.Printf("ffmpeg: preview restart error: %v", err)
		p.running = false
		return false
	}
	return true
}

// allocatePort reserves a local UDP port and returns it.
func allocatePort() (int, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		return 0, err
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	if err := conn.Close(); err != nil {
		return 0, err
	}
	return port, nil
}
