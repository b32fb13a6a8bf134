// Package locator talks to the locator service: the well-known service that
// resolves names to endpoints and publishes routing tables.
//
// Resolve is a single-shot call; Routing is a subscription that streams a
// complete RoutingTable on every change until the locator closes it.
package locator

import (
	"context"
	"errors"
	"io"
	"iter"

	"mesh-rpc/dispatch"
	"mesh-rpc/protocol"
	"mesh-rpc/registry"

	"go.uber.org/zap"
)

// Method ids of the locator service.
const (
	MethodResolve uint64 = 0
	MethodRouting uint64 = 5
)

// ServiceName is the name the locator is reachable under.
const ServiceName = "locator"

// Caller issues one call and feeds its frames to d. On failure d must have
// been discarded. client.Service implements it.
type Caller interface {
	Call(ctx context.Context, method uint64, args []any, d dispatch.Dispatch) error
}

type Locator struct {
	caller Caller
	logger *zap.Logger
}

func New(caller Caller, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{caller: caller, logger: logger}
}

// Resolve looks up name. The future fails with a *protocol.RemoteError when
// the locator refuses, a *protocol.DecodeError on a malformed answer, and an
// error matching protocol.ErrCancelled if the call dies before answering.
//
// Abandoning the future does not cancel the remote call.
func (l *Locator) Resolve(ctx context.Context, name string) *dispatch.Future[Info] {
	d, future := dispatch.NewMappedPrimitive(toInfo)
	// A failed call discards d, which resolves the future.
	if err := l.caller.Call(ctx, MethodResolve, []any{name}, d); err != nil {
		l.logger.Debug("resolve not sent", zap.String("name", name), zap.Error(err))
	}
	return future
}

// Routing subscribes to routing table updates under the given key.
func (l *Locator) Routing(ctx context.Context, uuid string) *RoutingStream {
	d, stream := dispatch.NewStreaming[RoutingTable]()
	if err := l.caller.Call(ctx, MethodRouting, []any{uuid}, d); err != nil {
		l.logger.Debug("routing not sent", zap.String("uuid", uuid), zap.Error(err))
	}
	return &RoutingStream{stream: stream, logger: l.logger.With(zap.String("uuid", uuid))}
}

// Discover resolves serviceName into registry instances, one per endpoint, so
// the locator can act as a client.Resolver.
func (l *Locator) Discover(ctx context.Context, serviceName string) ([]registry.ServiceInstance, error) {
	info, err := l.Resolve(ctx, serviceName).Wait(ctx)
	if err != nil {
		return nil, err
	}
	instances := make([]registry.ServiceInstance, 0, len(info.Endpoints))
	for _, ap := range info.Endpoints {
		instances = append(instances, registry.ServiceInstance{
			Addr:    ap.String(),
			Weight:  1,
			Version: info.VersionString(),
		})
	}
	return instances, nil
}

// RoutingStream yields routing table snapshots.
//
// Failures are reported coarsely: any abnormal end, including an error frame
// from the locator, surfaces as protocol.ErrCancelled. The detail is logged at
// debug level.
type RoutingStream struct {
	stream *dispatch.Stream[RoutingTable]
	logger *zap.Logger
}

// Recv returns the next snapshot, io.EOF after a clean close, or
// protocol.ErrCancelled. Expiry of ctx is returned as is.
func (s *RoutingStream) Recv(ctx context.Context) (RoutingTable, error) {
	table, err := s.stream.Recv(ctx)
	switch {
	case err == nil:
		return table, nil
	case errors.Is(err, io.EOF):
		return nil, io.EOF
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return nil, err
	}
	s.logger.Debug("routing stream failed", zap.Error(err))
	return nil, protocol.ErrCancelled
}

// Close stops consuming; snapshots arriving later are dropped.
func (s *RoutingStream) Close() {
	s.stream.Close()
}

// All yields snapshots until the stream ends. An abnormal end is yielded
// once as protocol.ErrCancelled.
func (s *RoutingStream) All(ctx context.Context) iter.Seq2[RoutingTable, error] {
	return func(yield func(RoutingTable, error) bool) {
		for {
			table, err := s.Recv(ctx)
			if err == io.EOF {
				return
			}
			if !yield(table, err) || err != nil {
				return
			}
		}
	}
}
