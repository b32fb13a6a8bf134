package dispatch

import (
	"mesh-rpc/message"
	"mesh-rpc/protocol"
)

// Primitive is the single-shot dispatch: the first frame decodes into W,
// is converted to T and resolves the future. It is always terminal.
type Primitive[W, T any] struct {
	future  *Future[T]
	convert func(W) (T, error)
	used    bool
}

// NewPrimitive returns a single-shot dispatch delivering the decoded payload
// as is.
func NewPrimitive[T any]() (*Primitive[T, T], *Future[T]) {
	return NewMappedPrimitive(func(v T) (T, error) { return v, nil })
}

// NewMappedPrimitive returns a single-shot dispatch that decodes the wire
// form W and converts it to T before delivery. An error from convert is
// delivered as the call's outcome.
func NewMappedPrimitive[W, T any](convert func(W) (T, error)) (*Primitive[W, T], *Future[T]) {
	future := NewFuture[T]()
	return &Primitive[W, T]{future: future, convert: convert}, future
}

func (d *Primitive[W, T]) Process(ty uint64, payload message.Payload) Dispatch {
	if d.used {
		panic("dispatch: Process called on a terminated primitive dispatch")
	}
	d.used = true

	var value T
	wire, err := protocol.DecodePrimitive[W](ty, payload)
	if err == nil {
		value, err = d.convert(wire)
	}
	d.future.resolve(value, err)

	return nil
}

func (d *Primitive[W, T]) Discard(err error) {
	var zero T
	d.future.resolve(zero, err)
}
