package transport

import (
	"time"

	"mesh-rpc/codec"

	"go.uber.org/zap"
)

// DefaultHeartbeatInterval is how often an idle connection is probed.
const DefaultHeartbeatInterval = 30 * time.Second

type config struct {
	codec     codec.Codec
	logger    *zap.Logger
	heartbeat time.Duration
	metrics   *Metrics
}

func defaultConfig() config {
	return config{
		codec:     &codec.MsgpackCodec{},
		logger:    zap.NewNop(),
		heartbeat: DefaultHeartbeatInterval,
		metrics:   NewMetrics(nil),
	}
}

// Option configures a ClientTransport.
type Option func(*config)

// WithCodec selects the codec used for request arguments.
func WithCodec(c codec.Codec) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// WithLogger sets the logger used for connection diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithHeartbeat sets the heartbeat interval. Zero disables heartbeats.
func WithHeartbeat(interval time.Duration) Option {
	return func(cfg *config) {
		cfg.heartbeat = interval
	}
}

// WithMetrics shares a set of collectors between transports.
func WithMetrics(m *Metrics) Option {
	return func(cfg *config) {
		if m != nil {
			cfg.metrics = m
		}
	}
}
