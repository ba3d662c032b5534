// Package metrics collects and exposes Prometheus metrics for the billing flow.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the application layer.
type Recorder interface {
	RecordProviderCall(op string, err error)
	RecordProviderLatency(op string, d time.Duration)
	RecordCharge(status string)
}

// Collector implements Recorder on Prometheus counters.
type Collector struct {
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	charges         *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardvault_provider_calls_total",
			Help: "Payment provider API calls by operation and outcome",
		}, []string{"op", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardvault_provider_latency_seconds",
			Help:    "Payment provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		charges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardvault_charges_total",
			Help: "Off-session charge attempts by resulting intent status",
		}, []string{"status"}),
	}

	reg.MustRegister(c.providerCalls, c.providerLatency, c.charges)
	return c
}

func (c *Collector) RecordProviderCall(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.providerCalls.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) RecordProviderLatency(op string, d time.Duration) {
	c.providerLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (c *Collector) RecordCharge(status string) {
	c.charges.WithLabelValues(status).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
