// Package media relays the robot camera to the browser viewer over WebRTC.
package media

import "sync/atomic"

// debugRTP controls whether verbose RTP relay logs are emitted.
var debugRTP atomic.Bool

// SetDebugLogging enables/disables verbose relay debug logs.
func SetDebugLogging(enabled bool) {
	debugRTP.Store(enabled)
}

// debugRTPEnabled reports whether RTP debug logs are enabled.
func debugRTPEnabled() bool {
	return debugRTP.Load()
}
