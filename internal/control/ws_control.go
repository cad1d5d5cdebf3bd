// Package control turns browser pointer events into joystick updates and robot commands.
package control

import (
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/frudas24/go2pad/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server handles websocket control input.
type Server struct {
	mu       sync.Mutex
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	session  *session.Session
	mixer    *Mixer
	conn     *websocket.Conn
	onSize   func(size float64)
}

// NewServer creates a control websocket server. onSize, if set, is called
// after the operator resizes the joystick.
func NewServer(sess *session.Session, mixer *Mixer, onSize func(size float64)) *Server {
	return &Server{
		session: sess,
		mixer:   mixer,
		onSize:  onSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and processes control messages.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.session.IsAuthenticated() {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if err := s.acceptConn(conn); err != nil {
		_ = conn.Close()
		return
	}
	id := uuid.New().String()
	log.Printf("control: operator %s connected", id)

	pad := NewPad(s.session.JoystickSize(), s.mixer.Handlers())
	defer func() {
		pad.Release()
		s.cleanupConn(conn)
		log.Printf("control: operator %s disconnected", id)
	}()

	last := pad.Stick()
	if err := s.write(conn, last); err != nil {
		return
	}
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if err := s.handleMessage(pad, msg); err != nil {
			log.Printf("control: operator %s: %v", id, err)
			continue
		}
		if !affectsStick(msg.T) {
			continue
		}
		// Only report changes; idle moves produce no reply.
		if st := pad.Stick(); st != last {
			last = st
			if err := s.write(conn, st); err != nil {
				return
			}
		}
	}
}

// acceptConn ensures only one active control connection exists.
func (s *Server) acceptConn(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return fmt.Errorf("control connection already active")
	}
	s.conn = conn
	return nil
}

// cleanupConn clears the active connection when closed.
func (s *Server) cleanupConn(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

// handleMessage dispatches a single control message.
func (s *Server) handleMessage(pad *Pad, msg Message) error {
	switch msg.T {
	case "down", "move", "up", "rotate":
		return pad.Handle(msg)
	case "size":
		s.session.SetJoystickSize(msg.Size)
		size := s.session.JoystickSize()
		if s.onSize != nil {
			s.onSize(size)
		}
		return pad.Handle(Message{T: "size", Size: size})
	case "inputEnabled":
		if msg.Enabled != nil {
			s.session.SetInputEnabled(*msg.Enabled)
			if !*msg.Enabled {
				s.mixer.Halt()
			}
		}
		return nil
	case "stop":
		s.mixer.Halt()
		return nil
	default:
		return nil
	}
}

// write sends a JSON message on conn.
func (s *Server) write(conn *websocket.Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// affectsStick reports whether a message type can change the visual stick.
func affectsStick(t string) bool {
	switch t {
	case "down", "move", "up", "size":
		return true
	default:
		return false
	}
}
