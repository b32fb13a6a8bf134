package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests *prometheus.CounterVec
	inflight prometheus.Gauge
}

// NewMetrics creates the server collectors and registers them with reg when
// reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meshrpc",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Requests served, by method id and outcome.",
		}, []string{"method", "status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meshrpc",
			Subsystem: "server",
			Name:      "inflight_requests",
			Help:      "Requests currently being handled, open streams included.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.inflight)
	}
	return m
}

func methodLabel(method uint64) string {
	return strconv.FormatUint(method, 10)
}
