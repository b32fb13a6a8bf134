package dispatch

import (
	"context"
	"io"
	"iter"
	"sync"

	"mesh-rpc/message"
	"mesh-rpc/protocol"
)

// item is one entry of a stream queue: a value, a terminal error, or the
// close marker.
type item[T any] struct {
	value T
	err   error
	close bool
}

// queue is an unbounded single-producer/single-consumer queue. Push never
// blocks: there is no flow-control signal to send back to the remote peer,
// so a slow consumer accumulates items instead.
type queue[T any] struct {
	mu       sync.Mutex
	items    []item[T]
	txClosed bool // producer is gone, nothing will be pushed anymore
	rxClosed bool // consumer is gone, pushes are dropped
	notify   chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{notify: make(chan struct{}, 1)}
}

func (q *queue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// push appends it and reports whether the consumer may still see it.
func (q *queue[T]) push(it item[T]) bool {
	q.mu.Lock()
	if q.txClosed || q.rxClosed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, it)
	q.mu.Unlock()
	q.wake()
	return true
}

func (q *queue[T]) receiverAlive() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.rxClosed
}

func (q *queue[T]) closeSender() {
	q.mu.Lock()
	q.txClosed = true
	q.mu.Unlock()
	q.wake()
}

func (q *queue[T]) closeReceiver() {
	q.mu.Lock()
	q.rxClosed = true
	q.items = nil
	q.mu.Unlock()
}

// pop returns the next item; ok is false once the sender is closed and the
// queue is drained.
func (q *queue[T]) pop(ctx context.Context) (it item[T], ok bool, err error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			it = q.items[0]
			q.items[0] = item[T]{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return it, true, nil
		}
		if q.txClosed || q.rxClosed {
			q.mu.Unlock()
			return it, false, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return it, false, ctx.Err()
		}
	}
}

// Streaming is the producer side of a streamed call. Every chunk frame is
// forwarded to the consumer; an error or close frame ends the call.
type Streaming[T any] struct {
	q *queue[T]
}

// NewStreaming returns a streaming dispatch and the consumer end it feeds.
func NewStreaming[T any]() (*Streaming[T], *Stream[T]) {
	q := newQueue[T]()
	return &Streaming[T]{q: q}, &Stream[T]{q: q}
}

func (d *Streaming[T]) Process(ty uint64, payload message.Payload) Dispatch {
	env, err := protocol.DecodeStreaming[T](ty, payload)
	if err != nil {
		d.q.push(item[T]{err: err})
		d.q.closeSender()
		return nil
	}

	switch env.Kind {
	case protocol.EnvelopeChunk:
		d.q.push(item[T]{value: env.Value})
		return d
	case protocol.EnvelopeError:
		d.q.push(item[T]{err: env.Err})
	default:
		d.q.push(item[T]{close: true})
	}
	d.q.closeSender()
	return nil
}

// Discard ends the stream abnormally. The consumer sees err (matching
// protocol.ErrCancelled) if it is still listening.
func (d *Streaming[T]) Discard(err error) {
	if d.q.receiverAlive() {
		d.q.push(item[T]{err: protocol.Cancelled(err)})
	}
	d.q.closeSender()
}

// Stream is the consumer end of a streamed call. It must be read from a
// single goroutine.
type Stream[T any] struct {
	q    *queue[T]
	done bool
}

// Recv returns the next chunk.
//
// It returns io.EOF after a clean close, the remote or decode error after an
// error frame, and protocol.ErrCancelled if the producer went away without a
// terminal frame. Once a terminal result was returned, Recv keeps returning
// io.EOF.
func (s *Stream[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	if s.done {
		return zero, io.EOF
	}

	it, ok, err := s.q.pop(ctx)
	if err != nil {
		return zero, err
	}
	if !ok {
		s.done = true
		return zero, protocol.ErrCancelled
	}
	if it.close {
		s.done = true
		return zero, io.EOF
	}
	if it.err != nil {
		s.done = true
		return zero, it.err
	}
	return it.value, nil
}

// Close drops the consumer end. Chunks arriving afterwards are discarded;
// the remote call itself is not cancelled.
func (s *Stream[T]) Close() {
	s.done = true
	s.q.closeReceiver()
}

// All exposes the stream as a sequence. A clean close ends the sequence; any
// other terminal error is yielded once as the last element.
func (s *Stream[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := s.Recv(ctx)
			if err == io.EOF {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}
