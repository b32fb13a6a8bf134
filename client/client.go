// Package client issues calls to named services.
//
// A Service discovers the instances of its service through a Resolver, picks
// one with a load balancer and keeps a single multiplexed transport to it.
// Every call runs through the middleware chain before it reaches the wire.
package client

import (
	"context"
	"errors"
	"net"
	"sync"

	"mesh-rpc/dispatch"
	"mesh-rpc/message"
	"mesh-rpc/middleware"
	"mesh-rpc/protocol"
	"mesh-rpc/registry"
	"mesh-rpc/transport"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("client: service closed")

// Resolver finds the instances of a named service. Registry implementations
// and the locator client both satisfy it.
type Resolver interface {
	Discover(ctx context.Context, serviceName string) ([]registry.ServiceInstance, error)
}

type Service struct {
	name     string
	resolver Resolver
	cfg      config
	invoke   middleware.Invoker

	mu        sync.Mutex
	transport *transport.ClientTransport
	closed    bool
}

func NewService(name string, resolver Resolver, opts ...Option) *Service {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = cfg.logger.With(zap.String("service", name))

	s := &Service{name: name, resolver: resolver, cfg: cfg}
	s.invoke = middleware.Chain(cfg.middlewares...)(s.send)
	return s
}

func (s *Service) Name() string {
	return s.name
}

// Call issues method with args and hands every response frame to d.
//
// Call returns once the request is written. When it fails, d has been
// discarded with an error matching protocol.ErrCancelled, so a consumer
// waiting on d always observes exactly one terminal event.
func (s *Service) Call(ctx context.Context, method uint64, args []any, d dispatch.Dispatch) error {
	req := &message.Request{Service: s.name, Method: method, Args: args}
	if err := s.invoke(ctx, req, d); err != nil {
		// A second discard after the transport already discarded is a no-op.
		d.Discard(protocol.Cancelled(err))
		return err
	}
	return nil
}

// send is the innermost invoker: connect if needed, then write the request.
func (s *Service) send(ctx context.Context, req *message.Request, d dispatch.Dispatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t, err := s.connect(ctx)
	if err != nil {
		return err
	}
	id, err := t.Call(req.Method, req.Args, d)
	if err != nil {
		return err
	}
	req.CallID = id
	return nil
}

// connect returns the live transport, dialing a new one when there is none
// or the previous one terminated.
func (s *Service) connect(ctx context.Context) (*transport.ClientTransport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.transport != nil {
		select {
		case <-s.transport.Done():
			s.cfg.logger.Info("transport terminated, reconnecting", zap.Error(s.transport.Err()))
			s.transport = nil
		default:
			return s.transport, nil
		}
	}

	instances, err := s.resolver.Discover(ctx, s.name)
	if err != nil {
		return nil, err
	}
	instance, err := s.cfg.balancer.Pick(instances)
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: s.cfg.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", instance.Addr)
	if err != nil {
		return nil, err
	}
	s.cfg.logger.Debug("connected", zap.String("addr", instance.Addr), zap.String("balancer", s.cfg.balancer.Name()))

	s.transport = transport.NewClientTransport(conn,
		transport.WithCodec(s.cfg.codec),
		transport.WithLogger(s.cfg.logger),
		transport.WithHeartbeat(s.cfg.heartbeat),
		transport.WithMetrics(s.cfg.metrics),
	)
	return s.transport, nil
}

// Close terminates the transport; outstanding calls are discarded.
func (s *Service) Close() error {
	s.mu.Lock()
	t := s.transport
	s.transport = nil
	s.closed = true
	s.mu.Unlock()

	if t != nil {
		return t.Close()
	}
	return nil
}
