package server

import (
	"mesh-rpc/registry"

	"go.uber.org/zap"
)

type config struct {
	logger  *zap.Logger
	metrics *Metrics

	registry      registry.Registry
	advertiseAddr string
	ttl           int64
	weight        int
	version       string
}

func defaultConfig() config {
	return config{
		logger:  zap.NewNop(),
		metrics: NewMetrics(nil),
		ttl:     10,
		weight:  1,
	}
}

type Option func(*config)

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithRegistry registers the served service into reg under advertiseAddr
// (the listener address when empty) with a lease of ttl seconds.
func WithRegistry(reg registry.Registry, advertiseAddr string, ttl int64) Option {
	return func(c *config) {
		c.registry = reg
		c.advertiseAddr = advertiseAddr
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithInstance sets the weight and version advertised in the registry.
func WithInstance(weight int, version string) Option {
	return func(c *config) {
		c.weight = weight
		c.version = version
	}
}
