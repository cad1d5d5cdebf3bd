// Package robot talks to a Go2 robot over its WebRTC datachannel.
package robot

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when the datachannel is not validated yet.
	ErrNotConnected = errors.New("robot not connected")
	// ErrUnknownCommand is returned for sport command names not in SportCmd.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("robot client closed")
)

// StatusError reports a non-zero status code in a robot response.
type StatusError struct {
	Topic string
	APIID int
	Code  int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("robot %s api %d: status %d", e.Topic, e.APIID, e.Code)
}
