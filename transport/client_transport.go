// Package transport implements the client-side call multiplexer.
//
// ClientTransport runs many concurrent calls over a single connection. Each
// call gets a unique call id and a dispatch.Dispatch; a background goroutine
// (recvLoop) reads frames and hands every frame to the dispatch registered
// under its call id.
//
//	goroutine-1 ──Call(id=1)──┐
//	goroutine-2 ──Call(id=2)──┼──→ single conn ──→ remote node
//	goroutine-3 ──Call(id=3)──┘
//
//	recvLoop:  ←── frame(id=2) → pending[2].Process → continuation or done
package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"mesh-rpc/codec"
	"mesh-rpc/dispatch"
	"mesh-rpc/message"
	"mesh-rpc/protocol"

	"go.uber.org/zap"
)

var (
	// ErrClosed is returned by Call once the transport has terminated.
	ErrClosed = errors.New("transport: closed")
)

// ClientTransport manages a single multiplexed connection.
type ClientTransport struct {
	conn    net.Conn
	codec   codec.Codec
	logger  *zap.Logger
	metrics *Metrics

	seq     uint64     // Last assigned call id (protected by sending)
	pending sync.Map   // map[uint64]dispatch.Dispatch
	sending sync.Mutex // Write lock: frames from concurrent calls must not interleave

	mu   sync.Mutex
	err  error // Terminal error, set once (protected by mu)
	done chan struct{}
}

// NewClientTransport wraps conn and starts two background goroutines:
//   - recvLoop: reads frames and advances the dispatch of the matching call
//   - heartbeatLoop: sends periodic heartbeat frames to detect dead connections
func NewClientTransport(conn net.Conn, opts ...Option) *ClientTransport {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	t := &ClientTransport{
		conn:    conn,
		codec:   cfg.codec,
		logger:  cfg.logger.With(zap.Stringer("remote", conn.RemoteAddr())),
		metrics: cfg.metrics,
		done:    make(chan struct{}),
	}
	go t.recvLoop()
	if cfg.heartbeat > 0 {
		go t.heartbeatLoop(cfg.heartbeat)
	}
	return t
}

// Call sends a request for method with args and registers d to receive the
// frames of the call. It returns the assigned call id.
//
// If the request cannot be sent, d is discarded with an error matching
// protocol.ErrCancelled and that error is returned as well, so the consumer
// observes the failure whichever side it is watching.
func (t *ClientTransport) Call(method uint64, args []any, d dispatch.Dispatch) (uint64, error) {
	if args == nil {
		args = []any{}
	}
	body, err := t.codec.Encode(args)
	if err != nil {
		err = fmt.Errorf("transport: failed to encode arguments: %w", err)
		d.Discard(err)
		return 0, err
	}

	t.sending.Lock()
	defer t.sending.Unlock()

	if cause := t.Err(); cause != nil {
		err := protocol.Cancelled(fmt.Errorf("%w: %w", ErrClosed, cause))
		d.Discard(err)
		return 0, err
	}

	t.seq++
	id := t.seq

	// Register before writing, the response may arrive before Write returns.
	t.pending.Store(id, d)
	t.metrics.pending.Inc()

	header := protocol.Header{
		CodecType: byte(t.codec.Type()),
		Kind:      protocol.KindRequest,
		CallID:    id,
		Type:      method,
	}
	if err := protocol.Encode(t.conn, &header, body); err != nil {
		// A partially written frame corrupts the stream for every call.
		t.shutdown(err)
		if _, ok := t.pending.LoadAndDelete(id); ok {
			t.metrics.pending.Dec()
			t.metrics.discarded.Inc()
			err = protocol.Cancelled(err)
			d.Discard(err)
		}
		return 0, err
	}

	t.metrics.calls.Inc()
	return id, nil
}

// recvLoop runs in a dedicated goroutine, reading frames sequentially and
// advancing the dispatch of each call. Dispatches never block, so a slow
// consumer of one call does not stall the others.
func (t *ClientTransport) recvLoop() {
	for {
		header, body, err := protocol.Decode(t.conn)
		if err != nil {
			t.fail(err)
			return
		}

		if header.Kind == protocol.KindHeartbeat {
			continue
		}
		if header.Kind != protocol.KindResponse {
			t.fail(fmt.Errorf("transport: unexpected frame kind %d from server", header.Kind))
			return
		}

		t.metrics.frames.Inc()
		c, err := codec.GetCodec(codec.CodecType(header.CodecType))
		if err != nil {
			t.fail(err)
			return
		}

		t.process(message.Frame{
			CallID:  header.CallID,
			Type:    header.Type,
			Payload: message.Payload{Codec: c, Data: body},
		})
	}
}

// process advances the dispatch of frame's call. Only recvLoop calls it, so
// frames of one call are processed in wire order.
func (t *ClientTransport) process(frame message.Frame) {
	value, ok := t.pending.Load(frame.CallID)
	if !ok {
		t.logger.Debug("dropping frame for unknown call",
			zap.Uint64("call", frame.CallID),
			zap.Uint64("type", frame.Type),
		)
		return
	}

	next := value.(dispatch.Dispatch).Process(frame.Type, frame.Payload)
	if next != nil {
		t.pending.Store(frame.CallID, next)
		return
	}

	t.pending.Delete(frame.CallID)
	t.metrics.pending.Dec()
}

// Close terminates the transport and waits until every outstanding call
// has been discarded.
func (t *ClientTransport) Close() error {
	t.shutdown(ErrClosed)
	<-t.done
	return nil
}

// shutdown records cause and closes the connection. recvLoop then fails its
// next read and discards the outstanding calls, so Process and Discard always
// run on the same goroutine.
func (t *ClientTransport) shutdown(cause error) {
	t.mu.Lock()
	if t.err == nil {
		t.err = cause
	}
	t.mu.Unlock()
	t.conn.Close()
}

// fail is called by recvLoop when the connection breaks. Every pending
// dispatch receives exactly one Discard so no caller waits forever.
func (t *ClientTransport) fail(readErr error) {
	t.mu.Lock()
	if t.err == nil {
		t.err = readErr
	}
	cause := t.err
	t.mu.Unlock()

	// Unblocks a writer stuck in Encode; any Call racing with us fails its
	// write and discards its own dispatch.
	t.conn.Close()

	if !errors.Is(cause, ErrClosed) {
		t.logger.Warn("connection terminated", zap.Error(cause))
	}

	discardErr := protocol.Cancelled(cause)
	t.pending.Range(func(key, value any) bool {
		if _, ok := t.pending.LoadAndDelete(key); ok {
			t.metrics.pending.Dec()
			t.metrics.discarded.Inc()
			value.(dispatch.Dispatch).Discard(discardErr)
		}
		return true
	})
	close(t.done)
}

// Done is closed once the transport has terminated.
func (t *ClientTransport) Done() <-chan struct{} {
	return t.done
}

// Err returns the reason the transport terminated, nil while it is running.
func (t *ClientTransport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Conn returns the underlying connection.
func (t *ClientTransport) Conn() net.Conn {
	return t.conn
}

// heartbeatLoop sends periodic heartbeat frames to keep the connection alive.
func (t *ClientTransport) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}

		header := &protocol.Header{
			CodecType: byte(t.codec.Type()),
			Kind:      protocol.KindHeartbeat,
		}
		// Heartbeat writes also need the sending lock to avoid frame interleaving
		t.sending.Lock()
		err := protocol.Encode(t.conn, header, nil)
		t.sending.Unlock()
		if err != nil {
			t.shutdown(err)
			return
		}
	}
}
