package mqpayload

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures payload offload telemetry.
type Metrics interface {
	// ObserveOffload records one payload of size bytes moved to the store.
	ObserveOffload(size int)
	// AddRehydrated increments the count of payloads fetched back from the store.
	AddRehydrated(count int)
	// AddStoreDeletes increments the count of stored payloads deleted.
	AddStoreDeletes(count int)
	// AddHandlerFailures increments the count of failed consumer handlers.
	AddHandlerFailures(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveOffload implements Metrics.
func (NopMetrics) ObserveOffload(int) {}

// AddRehydrated implements Metrics.
func (NopMetrics) AddRehydrated(int) {}

// AddStoreDeletes implements Metrics.
func (NopMetrics) AddStoreDeletes(int) {}

// AddHandlerFailures implements Metrics.
func (NopMetrics) AddHandlerFailures(int) {}

// PrometheusMetrics records Metrics as Prometheus collectors.
type PrometheusMetrics struct {
	OffloadedBytes  prometheus.Histogram
	Rehydrated      prometheus.Counter
	StoreDeletes    prometheus.Counter
	HandlerFailures prometheus.Counter
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		OffloadedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqpayload_offloaded_payload_bytes",
			Help:    "Size of message bodies offloaded to the payload store",
			Buckets: prometheus.ExponentialBuckets(256*1000, 2, 8),
		}),
		Rehydrated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqpayload_rehydrated_total",
			Help: "Total number of message bodies fetched from the payload store",
		}),
		StoreDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqpayload_store_deletes_total",
			Help: "Total number of stored payloads deleted",
		}),
		HandlerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mqpayload_handler_failures_total",
			Help: "Total number of consumer handler invocations that failed",
		}),
	}

	for _, collector := range []prometheus.Collector{m.OffloadedBytes, m.Rehydrated, m.StoreDeletes, m.HandlerFailures} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ObserveOffload implements Metrics.
func (m *PrometheusMetrics) ObserveOffload(size int) {
	m.OffloadedBytes.Observe(float64(size))
}

// AddRehydrated implements Metrics.
func (m *PrometheusMetrics) AddRehydrated(count int) {
	m.Rehydrated.Add(float64(count))
}

// AddStoreDeletes implements Metrics.
func (m *PrometheusMetrics) AddStoreDeletes(count int) {
	m.StoreDeletes.Add(float64(count))
}

// AddHandlerFailures implements Metrics.
func (m *PrometheusMetrics) AddHandlerFailures(count int) {
	m.HandlerFailures.Add(float64(count))
}
