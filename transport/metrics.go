package transport

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors updated by client transports. A single
// instance is usually shared by every transport of a process.
type Metrics struct {
	calls     prometheus.Counter
	frames    prometheus.Counter
	discarded prometheus.Counter
	pending   prometheus.Gauge
}

// NewMetrics creates the transport collectors and registers them with reg
// when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshrpc",
			Subsystem: "transport",
			Name:      "calls_total",
			Help:      "Calls written to the connection.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshrpc",
			Subsystem: "transport",
			Name:      "frames_received_total",
			Help:      "Response frames read from the connection.",
		}),
		discarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "meshrpc",
			Subsystem: "transport",
			Name:      "calls_discarded_total",
			Help:      "Calls terminated without a terminal frame.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meshrpc",
			Subsystem: "transport",
			Name:      "calls_pending",
			Help:      "Calls waiting for their terminal frame.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.frames, m.discarded, m.pending)
	}
	return m
}
