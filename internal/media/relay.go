// Package media relays the robot camera to the browser viewer over WebRTC.
package media

import (
	"errors"
	"io"
	"log"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
)

// PacketReader yields RTP packets; *webrtc.TrackRemote satisfies it.
type PacketReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// PacketWriter accepts RTP packets; *webrtc.TrackLocalStaticRTP satisfies it.
type PacketWriter interface {
	WriteRTP(p *rtp.Packet) error
}

// MultiWriter writes each packet to every writer, returning the first error.
type MultiWriter []PacketWriter

// WriteRTP implements PacketWriter.
func (m MultiWriter) WriteRTP(p *rtp.Packet) error {
	var first error
	for _, w := range m {
		if err := w.WriteRTP(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Relay forwards robot video packets into the viewer track.
// Sequence numbers and timestamps are rewritten so a robot reconnect does not
// look like a stream reset to the browser.
type Relay struct {
	mu      sync.Mutex
	out     PacketWriter
	rw      rtpRewriter
	packets uint64
}

// NewRelay returns a relay writing into out.
func NewRelay(out PacketWriter) *Relay {
	return &Relay{out: out}
}

// HandleTrack forwards a remote track until it ends. Non-video tracks are ignored.
func (r *Relay) HandleTrack(track *webrtc.TrackRemote) {
	if track.Kind() != webrtc.RTPCodecTypeVideo {
		return
	}
	go r.Forward(track)
}

// Forward copies packets from in until it returns an error.
func (r *Relay) Forward(in PacketReader) {
	for {
		pkt, _, err := in.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("media: relay stopped: %v", err)
			}
			return
		}
		r.write(pkt)
	}
}

// Packets returns the number of forwarded packets.
func (r *Relay) Packets() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.packets
}

// write rewrites and forwards one packet.
func (r *Relay) write(pkt *rtp.Packet) {
	r.mu.Lock()
	r.rw.Apply(pkt)
	r.packets++
	n := r.packets
	r.mu.Unlock()

	if debugRTPEnabled() && n%300 == 1 {
		log.Printf("debug: relay packet %d seq=%d ts=%d", n, pkt.SequenceNumber, pkt.Timestamp)
	}
	if err := r.out.WriteRTP(pkt); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		log.Printf("media: write rtp: %v", err)
	}
}

// rtpRewriter shifts sequence numbers and timestamps by a per-source offset.
// Gaps and reordering inside one source pass through unchanged; a new source
// continues right after the newest packet of the previous one.
type rtpRewriter struct {
	started   bool
	ssrc      uint32
	seqOffset uint16
	tsOffset  uint32
	lastSeq   uint16
	lastTS    uint32
}

// sourceGapTicks is the timestamp step used when the source restarts (one 90kHz frame at 30fps).
const sourceGapTicks = 3000

// Apply rewrites p in place.
func (w *rtpRewriter) Apply(p *rtp.Packet) {
	if !w.started {
		w.started = true
		w.ssrc = p.SSRC
		w.lastSeq = p.SequenceNumber
		w.lastTS = p.Timestamp
		return
	}

	if p.SSRC != w.ssrc {
		// New source: continue from the newest output packet.
		w.ssrc = p.SSRC
		w.seqOffset = w.lastSeq + 1 - p.SequenceNumber
		w.tsOffset = w.lastTS + sourceGapTicks - p.Timestamp
	}

	p.SequenceNumber += w.seqOffset
	p.Timestamp += w.tsOffset
	if seqNewer(p.SequenceNumber, w.lastSeq) {
		w.lastSeq = p.SequenceNumber
		w.lastTS = p.Timestamp
	}
}

// seqNewer reports whether a follows b in RTP sequence space.
func seqNewer(a, b uint16) bool {
	return a != b && int16(a-b) > 0
}
