// Package server answers calls on the frame protocol. It hosts the locator
// daemon and stands in for remote nodes in tests.
//
// Request processing pipeline:
//
//	Accept conn → handleConn (single goroutine reads frames)
//	  → for each request: go handleRequest (parallel processing)
//	    → handlers[method](ctx, req, w) → w writes response frames under the
//	      per-connection write lock
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"mesh-rpc/codec"
	"mesh-rpc/message"
	"mesh-rpc/protocol"
	"mesh-rpc/registry"

	"go.uber.org/zap"
)

var (
	ErrServerClosed    = errors.New("server: closed")
	ErrShutdownTimeout = errors.New("server: timeout waiting for in-flight requests")
)

// Request is one inbound call.
type Request struct {
	Method uint64
	CallID uint64
	Args   message.Payload // codec-encoded argument array
	Remote net.Addr
}

// Handler answers one call. ctx is cancelled when the connection goes away or
// the server shuts down. A handler that returns without a terminal response
// makes the server answer with an error frame.
type Handler func(ctx context.Context, req *Request, w ResponseWriter)

// Server serves one named service over any number of connections.
type Server struct {
	name     string
	cfg      config
	handlers map[uint64]Handler

	mu         sync.Mutex
	listener   net.Listener
	conns      map[net.Conn]struct{}
	advertised string // address registered in the registry, empty if none

	wg       sync.WaitGroup // in-flight requests
	shutdown atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a server for the service called name.
func NewServer(name string, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		name:     name,
		cfg:      cfg,
		handlers: make(map[uint64]Handler),
		conns:    make(map[net.Conn]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Handle installs h for method. It must be called before serving.
func (s *Server) Handle(method uint64, h Handler) {
	s.handlers[method] = h
}

// Serve listens on the given address and serves until Shutdown.
func (s *Server) Serve(network, address string) error {
	ln, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	return s.ServeListener(ln)
}

// ServeListener serves connections accepted from ln until Shutdown. If a
// registry is configured the service is registered once the listener is
// installed.
func (s *Server) ServeListener(ln net.Listener) error {
	s.mu.Lock()
	if s.shutdown.Load() {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	s.cfg.logger.Info("serving", zap.String("service", s.name), zap.Stringer("addr", ln.Addr()))

	if s.cfg.registry != nil {
		addr := s.cfg.advertiseAddr
		if addr == "" {
			addr = ln.Addr().String()
		}
		// Recorded first so a concurrent Shutdown always deregisters.
		s.mu.Lock()
		s.advertised = addr
		s.mu.Unlock()

		instance := registry.ServiceInstance{Addr: addr, Weight: s.cfg.weight, Version: s.cfg.version}
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		err := s.cfg.registry.Register(ctx, s.name, instance, s.cfg.ttl)
		cancel()
		if err != nil {
			ln.Close()
			return fmt.Errorf("server: failed to register %s: %w", s.name, err)
		}
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Shutdown closes the listener; that Accept error is expected.
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		if !s.track(conn) {
			conn.Close()
			return nil
		}
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

// Addr returns the listener address, nil before serving.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handleConn reads frames sequentially and runs each request in its own
// goroutine so a slow or streaming handler does not block the connection.
func (s *Server) handleConn(conn net.Conn) {
	ctx, cancel := context.WithCancel(s.ctx)
	logger := s.cfg.logger.With(zap.Stringer("remote", conn.RemoteAddr()))
	defer func() {
		cancel()
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	writeMu := &sync.Mutex{} // shared by all requests on this conn
	for {
		header, body, err := protocol.Decode(conn)
		if err != nil {
			logger.Debug("connection closed", zap.Error(err))
			return
		}

		if header.Kind == protocol.KindHeartbeat {
			continue
		}
		if header.Kind != protocol.KindRequest {
			logger.Warn("unexpected frame kind", zap.Uint8("kind", uint8(header.Kind)))
			return
		}

		c, err := codec.GetCodec(codec.CodecType(header.CodecType))
		if err != nil {
			logger.Warn("unsupported codec", zap.Error(err))
			return
		}

		req := &Request{
			Method: header.Type,
			CallID: header.CallID,
			Args:   message.Payload{Codec: c, Data: body},
			Remote: conn.RemoteAddr(),
		}
		w := &responseWriter{conn: conn, mu: writeMu, codec: c, callID: header.CallID}
		s.mu.Lock()
		if s.shutdown.Load() {
			s.mu.Unlock()
			w.Error(&protocol.RemoteError{Category: s.name, Message: "server is shutting down"})
			continue
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleRequest(ctx, req, w, logger)
	}
}

func (s *Server) handleRequest(ctx context.Context, req *Request, w *responseWriter, logger *zap.Logger) {
	defer s.wg.Done()
	start := time.Now()
	s.cfg.metrics.inflight.Inc()
	defer s.cfg.metrics.inflight.Dec()

	h, ok := s.handlers[req.Method]
	if !ok {
		s.cfg.metrics.requests.WithLabelValues(methodLabel(req.Method), "unknown").Inc()
		w.Error(&protocol.RemoteError{
			Category: s.name,
			Message:  fmt.Sprintf("unknown method %d", req.Method),
		})
		return
	}

	h(ctx, req, w)
	if !w.Done() {
		w.Error(&protocol.RemoteError{Category: s.name, Message: "handler returned without a response"})
	}

	status := "ok"
	if w.failed {
		status = "error"
	}
	s.cfg.metrics.requests.WithLabelValues(methodLabel(req.Method), status).Inc()
	logger.Debug("request served",
		zap.Uint64("method", req.Method),
		zap.Uint64("call", req.CallID),
		zap.Duration("duration", time.Since(start)),
	)
}

// Shutdown performs graceful shutdown:
//  1. Deregister from the registry so clients stop picking this server
//  2. Close the listener
//  3. Cancel handler contexts; streaming handlers end their streams
//  4. Wait for in-flight requests (bounded by timeout), then close connections
func (s *Server) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	s.shutdown.Store(true)
	ln, advertised := s.listener, s.advertised
	s.mu.Unlock()

	if advertised != "" {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.cfg.registry.Deregister(ctx, s.name, advertised); err != nil {
			s.cfg.logger.Warn("failed to deregister", zap.Error(err))
		}
		cancel()
	}
	if ln != nil {
		ln.Close()
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = ErrShutdownTimeout
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	return err
}
