package client

import (
	"time"

	"mesh-rpc/codec"
	"mesh-rpc/loadbalance"
	"mesh-rpc/middleware"
	"mesh-rpc/transport"

	"go.uber.org/zap"
)

const DefaultDialTimeout = 5 * time.Second

type config struct {
	logger      *zap.Logger
	codec       codec.Codec
	balancer    loadbalance.Balancer
	dialTimeout time.Duration
	heartbeat   time.Duration
	middlewares []middleware.Middleware
	metrics     *transport.Metrics
}

func defaultConfig() config {
	return config{
		logger:      zap.NewNop(),
		codec:       &codec.MsgpackCodec{},
		balancer:    &loadbalance.RoundRobinBalancer{},
		dialTimeout: DefaultDialTimeout,
		heartbeat:   transport.DefaultHeartbeatInterval,
		metrics:     transport.NewMetrics(nil),
	}
}

type Option func(*config)

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func WithCodec(cd codec.Codec) Option {
	return func(c *config) {
		c.codec = cd
	}
}

func WithBalancer(b loadbalance.Balancer) Option {
	return func(c *config) {
		c.balancer = b
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(c *config) {
		c.dialTimeout = d
	}
}

// WithHeartbeat sets the transport heartbeat interval; 0 disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(c *config) {
		c.heartbeat = d
	}
}

// WithMiddlewares appends to the invoker chain. The first middleware is the
// outermost.
func WithMiddlewares(mws ...middleware.Middleware) Option {
	return func(c *config) {
		c.middlewares = append(c.middlewares, mws...)
	}
}

// WithMetrics shares m across every transport the service dials.
func WithMetrics(m *transport.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}
