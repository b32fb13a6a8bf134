package protocol

import (
	"errors"
	"fmt"
)

// ErrCancelled is reported when a call can no longer receive frames before
// its terminal frame arrived: connection loss, transport shutdown or an
// explicit discard.
var ErrCancelled = errors.New("protocol: call cancelled")

// Cancelled returns an error matching both ErrCancelled and cause.
func Cancelled(cause error) error {
	switch {
	case cause == nil:
		return ErrCancelled
	case errors.Is(cause, ErrCancelled):
		return cause
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// DecodeError means a payload did not match the schema the call expected,
// typically a malformed frame or a server speaking another protocol version.
type DecodeError struct {
	Type uint64 // message type of the offending frame
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("protocol: failed to decode message type %d: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RemoteError is an error the remote node returned explicitly.
type RemoteError struct {
	Category string `msgpack:"category" json:"category"`
	Code     int64  `msgpack:"code,omitempty" json:"code,omitempty"`
	Message  string `msgpack:"message" json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("remote error [%s:%d]: %s", e.Category, e.Code, e.Message)
	}
	return fmt.Sprintf("remote error [%s]: %s", e.Category, e.Message)
}
