// Package ffmpeg decodes the robot's H264 RTP stream into preview frames.
package ffmpeg

import (
	"fmt"
	"strings"
)

// previewPayloadType is the RTP payload type announced to ffmpeg.
const previewPayloadType = 96

// Options describes the preview decoder.
type Options struct {
	FFmpegPath string
	Width      int
	Height     int
	FPS        int
	Quality    int
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 640
	}
	if o.Height <= 0 {
		o.Height = 360
	}
	if o.FPS <= 0 {
		o.FPS = 10
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 60
	}
	return o
}

// BuildPreviewArgs returns ffmpeg args that read an SDP description from stdin
// and write scaled RGB24 frames to stdout.
func BuildPreviewArgs(opts Options) []string {
	opts = opts.withDefaults()
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-protocol_whitelist", "pipe,udp,rtp",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-f", "sdp",
		"-i", "pipe:0",
		"-an",
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", opts.FPS, opts.Width, opts.Height),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"pipe:1",
	}
}

// BuildSDP describes an H264 RTP stream arriving on the local UDP port.
func BuildSDP(port int) string {
	lines := []string{
		"v=0",
		"o=- 0 0 IN IP4 127.0.0.1",
		"s=go2pad",
		"c=IN IP4 127.0.0.1",
		"t=0 0",
		fmt.Sprintf("m=video %d RTP/AVP %d", port, previewPayloadType),
		fmt.Sprintf("a=rtpmap:%d H264/90000", previewPayloadType),
		fmt.Sprintf("a=fmtp:%d packetization-mode=1", previewPayloadType),
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}
