package server

import (
	"errors"
	"net"
	"sync"

	"mesh-rpc/codec"
	"mesh-rpc/protocol"
)

var ErrResponseDone = errors.New("server: response already terminated")

// ResponseWriter writes the response frames of one call.
//
// Single-shot calls answer with Value or Error. Streaming calls send any
// number of Chunks followed by Close or Error. After a terminal write every
// further write fails with ErrResponseDone.
type ResponseWriter interface {
	Value(v any) error
	Chunk(v any) error
	Error(err error) error
	Close() error
	Done() bool
}

type responseWriter struct {
	conn   net.Conn
	mu     *sync.Mutex // per-connection write lock
	codec  codec.Codec
	callID uint64

	done   bool
	failed bool
}

func (w *responseWriter) Value(v any) error {
	return w.write(protocol.PrimitiveValue, v, true)
}

func (w *responseWriter) Chunk(v any) error {
	return w.write(protocol.StreamingChunk, v, false)
}

// Error sends err as an error frame. Errors that are not a
// *protocol.RemoteError are reported under the "server" category.
func (w *responseWriter) Error(err error) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	var remote *protocol.RemoteError
	if !errors.As(err, &remote) {
		remote = &protocol.RemoteError{Category: "server", Message: err.Error()}
	}
	w.failed = true
	// PrimitiveError and StreamingError share the same message type.
	return w.write(protocol.StreamingError, remote, true)
}

func (w *responseWriter) Close() error {
	return w.write(protocol.StreamingClose, nil, true)
}

func (w *responseWriter) Done() bool {
	return w.done
}

func (w *responseWriter) write(ty uint64, v any, terminal bool) error {
	if w.done {
		return ErrResponseDone
	}

	// An unencodable value leaves the call open for a later Error.
	var body []byte
	if v != nil {
		var err error
		if body, err = w.codec.Encode(v); err != nil {
			return err
		}
	}
	if terminal {
		w.done = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return protocol.Encode(w.conn, &protocol.Header{
		CodecType: byte(w.codec.Type()),
		Kind:      protocol.KindResponse,
		CallID:    w.callID,
		Type:      ty,
	}, body)
}
