// Package mjpeg fans robot camera JPEG frames out to HTTP and websocket viewers.
package mjpeg

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const boundary = "frame"

// Stream broadcasts JPEG frames to connected viewers.
type Stream struct {
	mu          sync.RWMutex
	subs        map[chan []byte]struct{}
	last        []byte
	minInterval time.Duration
	lastPush    time.Time
	onViewers   func(n int)
	upgrader    websocket.Upgrader
}

// NewStream creates a stream that publishes at most one frame per minInterval.
// onViewers, if set, is called with the viewer count whenever it changes.
func NewStream(minInterval time.Duration, onViewers func(n int)) *Stream {
	return &Stream{
		subs:        make(map[chan []byte]struct{}),
		minInterval: minInterval,
		onViewers:   onViewers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Viewers returns the number of connected viewers.
func (s *Stream) Viewers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Publish sends a JPEG frame to all viewers. Frames inside minInterval only
// replace the last frame.
func (s *Stream) Publish(jpg []byte) {
	now := time.Now()
	frame := append([]byte(nil), jpg...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = frame
	if s.minInterval > 0 && now.Sub(s.lastPush) < s.minInterval {
		return
	}
	s.lastPush = now
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- frame:
		default:
		}
	}
}

// Handler serves frames as a multipart MJPEG stream.
func (s *Stream) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Pragma", "no-cache")

	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case jpg := <-ch:
			if err := writePart(w, jpg); err != nil {
				return
			}
			fl.Flush()
		}
	}
}

// ServeWS streams frames over a websocket as base64 text messages.
func (s *Stream) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := s.subscribe()
	defer s.unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case jpg := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(base64.StdEncoding.EncodeToString(jpg))); err != nil {
				log.Printf("mjpeg: websocket viewer dropped: %v", err)
				return
			}
		}
	}
}

// EncodeRGBToJPEG encodes RGB24 bytes into a JPEG buffer.
func EncodeRGBToJPEG(rgb []byte, w, h int, quality int) []byte {
	if quality <= 0 || quality > 100 {
		quality = 60
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	si := 0
	for y := 0; y < h; y++ {
		di := y * img.Stride
		for x := 0; x < w && si+2 < len(rgb); x++ {
			copy(img.Pix[di:di+3], rgb[si:si+3])
			img.Pix[di+3] = 255
			si += 3
			di += 4
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	return buf.Bytes()
}

// subscribe registers a viewer, priming it with the last frame.
func (s *Stream) subscribe() chan []byte {
	ch := make(chan []byte, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	if len(s.last) > 0 {
		ch <- s.last
	}
	n := len(s.subs)
	s.mu.Unlock()
	s.notify(n)
	return ch
}

// unsubscribe removes a viewer.
func (s *Stream) unsubscribe(ch chan []byte) {
	s.mu.Lock()
	delete(s.subs, ch)
	n := len(s.subs)
	s.mu.Unlock()
	s.notify(n)
}

// notify reports the viewer count.
func (s *Stream) notify(n int) {
	if s.onViewers != nil {
		s.onViewers(n)
	}
}

// writePart writes a single JPEG frame to the multipart response.
func writePart(w http.ResponseWriter, jpg []byte) error {
	header := "\r\n--" + boundary + "\r\nContent-Type: image/jpeg\r\nContent-Length: " + strconv.Itoa(len(jpg)) + "\r\n\r\n"
	if _, err := w.Write([]byte(header)); err != nil {
		return err
	}
	_, err := w.Write(jpg)
	return err
}
