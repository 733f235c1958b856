package session

import (
	"errors"
	"fmt"
)

// ErrSessionNotOpen is returned by Send when no connection is open.
// The message is dropped, not queued; callers decide whether to
// disable input or surface the drop.
var ErrSessionNotOpen = errors.New("session not open")

// ConnectionError reports a realtime channel that failed to open or
// dropped. It covers invalid/expired tokens and inaccessible rooms,
// which the transport only reveals as a failed handshake or close.
type ConnectionError struct {
	RoomID string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("room %s connection: %v", e.RoomID, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
