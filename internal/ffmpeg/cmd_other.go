//go:build !windows

// Package ffmpeg decodes the robot's H264 RTP stream into preview frames.
package ffmpeg

import "os/exec"

// configureCmd is a no-op outside Windows.
func configureCmd(cmd *exec.Cmd) {
	_ = cmd
}
