package protocol

import (
	"fmt"

	"mesh-rpc/message"
)

// Message types of the primitive (single-shot) protocol.
const (
	PrimitiveValue uint64 = 0
	PrimitiveError uint64 = 1
)

// Message types of the streaming protocol.
const (
	StreamingChunk uint64 = 0
	StreamingError uint64 = 1
	StreamingClose uint64 = 2
)

// DecodePrimitive interprets one frame of the primitive protocol.
//
// The value branch deserializes the payload as T. The error branch yields a
// *RemoteError. A payload that does not fit its branch, or an unknown message
// type, yields a *DecodeError. The result is always flat: callers never see a
// value wrapping another error.
func DecodePrimitive[T any](ty uint64, payload message.Payload) (T, error) {
	var value T
	switch ty {
	case PrimitiveValue:
		if err := payload.Decode(&value); err != nil {
			return value, &DecodeError{Type: ty, Err: err}
		}
		return value, nil
	case PrimitiveError:
		return value, decodeRemoteError(ty, payload)
	}
	return value, &DecodeError{Type: ty, Err: fmt.Errorf("unexpected message type")}
}

// EnvelopeKind tells which shape a streaming frame has.
type EnvelopeKind uint8

const (
	EnvelopeChunk EnvelopeKind = iota
	EnvelopeError
	EnvelopeClose
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeChunk:
		return "chunk"
	case EnvelopeError:
		return "error"
	case EnvelopeClose:
		return "close"
	}
	return "unknown"
}

// Envelope is one decoded frame of the streaming protocol.
//
// Only Value is set for a chunk, only Err for an error, nothing for close.
type Envelope[T any] struct {
	Kind  EnvelopeKind
	Value T
	Err   error
}

// Terminal reports whether no more frames follow this one.
func (e Envelope[T]) Terminal() bool {
	return e.Kind != EnvelopeChunk
}

// DecodeStreaming interprets one frame of the streaming protocol. The returned
// error is a *DecodeError; a remote error is carried inside the envelope.
func DecodeStreaming[T any](ty uint64, payload message.Payload) (Envelope[T], error) {
	switch ty {
	case StreamingChunk:
		var value T
		if err := payload.Decode(&value); err != nil {
			return Envelope[T]{}, &DecodeError{Type: ty, Err: err}
		}
		return Envelope[T]{Kind: EnvelopeChunk, Value: value}, nil
	case StreamingError:
		err := decodeRemoteError(ty, payload)
		if _, ok := err.(*DecodeError); ok {
			return Envelope[T]{}, err
		}
		return Envelope[T]{Kind: EnvelopeError, Err: err}, nil
	case StreamingClose:
		return Envelope[T]{Kind: EnvelopeClose}, nil
	}
	return Envelope[T]{}, &DecodeError{Type: ty, Err: fmt.Errorf("unexpected message type")}
}

// decodeRemoteError returns a *RemoteError, or a *DecodeError if the payload
// is not a valid error description.
func decodeRemoteError(ty uint64, payload message.Payload) error {
	remote := &RemoteError{}
	if err := payload.Decode(remote); err != nil {
		return &DecodeError{Type: ty, Err: err}
	}
	return remote
}
