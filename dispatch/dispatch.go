// Package dispatch implements the per-call state machines that interpret
// inbound frames.
//
// The multiplexer owns one Dispatch per outstanding call and feeds it every
// frame bearing that call's id, in wire order:
//
//	recvLoop ── frame(id=7) ──► pending[7].Process(ty, payload)
//	                               │
//	                               ├─ returns next ──► pending[7] = next
//	                               └─ returns nil  ──► delete(pending, 7)
//
// When the connection dies, every pending Dispatch gets exactly one Discard
// call instead. Process and Discard run on the multiplexer's read goroutine
// and must never block; suspension only happens on the consumer side
// (Future.Wait, Stream.Recv).
package dispatch

import (
	"mesh-rpc/message"
)

// Dispatch consumes the frames of one call.
type Dispatch interface {
	// Process consumes one inbound frame. It returns the state that handles
	// the next frame of this call, or nil if this frame was terminal. Process
	// must not be called again after it returned nil.
	Process(ty uint64, payload message.Payload) Dispatch

	// Discard is called instead of Process when the call can no longer
	// receive frames. It delivers err to the consumer unless a terminal
	// outcome was already delivered.
	Discard(err error)
}
