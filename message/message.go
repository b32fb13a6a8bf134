// Package message defines the values exchanged between the call multiplexer
// and the code that issues or answers calls.
//
// A Request goes out as a request frame whose body is the codec-encoded
// argument array. Every inbound frame for a call is handed over as a Frame:
// the call id, the protocol message type and the still-encoded Payload.
package message

import (
	"fmt"

	"mesh-rpc/codec"
)

// Request carries one outgoing call.
//
//   - Service is informational (logging, metrics); the remote node is chosen
//     by the connection the request is sent on.
//   - Method is the numeric method id, e.g. 0 for locator resolve.
//   - CallID is assigned by the transport once the call is registered.
type Request struct {
	Service string
	Method  uint64
	Args    []any
	CallID  uint64
}

func (r *Request) String() string {
	return fmt.Sprintf("%s/%d#%d", r.Service, r.Method, r.CallID)
}

// Frame is one inbound unit (call id, message type, payload).
type Frame struct {
	CallID  uint64
	Type    uint64
	Payload Payload
}

// Payload is a self-describing value that has not been decoded yet. It keeps
// the codec it was encoded with so the receiver can deserialize it into
// whatever type the call's response grammar expects.
type Payload struct {
	Codec codec.Codec
	Data  []byte
}

// NewPayload encodes v with c.
func NewPayload(c codec.Codec, v any) (Payload, error) {
	data, err := c.Encode(v)
	if err != nil {
		return Payload{}, err
	}
	return Payload{Codec: c, Data: data}, nil
}

// Decode deserializes the payload into v.
func (p Payload) Decode(v any) error {
	if p.Codec == nil {
		return fmt.Errorf("message: payload has no codec")
	}
	return p.Codec.Decode(p.Data, v)
}

// Empty reports whether the payload carries no bytes at all.
func (p Payload) Empty() bool {
	return len(p.Data) == 0
}
