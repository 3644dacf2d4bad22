package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec
	RecordBytes     *prometheus.HistogramVec
	RecordsStored   *prometheus.GaugeVec
	IDsIssued       prometheus.Counter

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// Event publishing metrics
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them on reg.
// Passing a fresh prometheus.NewRegistry() keeps tests independent.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of keyed store operations",
		}, []string{"collection", "operation", "status"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of keyed store operations",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"collection", "operation"}),
		RecordBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "record_bytes",
			Help:      "Encoded size of written records",
			Buckets:   []float64{32, 64, 128, 256, 512, 768, 1024},
		}, []string{"collection"}),
		RecordsStored: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "records",
			Help:      "Current number of records per collection",
		}, []string{"collection"}),
		IDsIssued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "ids_issued_total",
			Help:      "Total number of record ids issued by the generator",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of record events handed to the broker",
		}, []string{"event_type", "status"}),
	}
}

// ObserveStore records one store operation. A nil receiver is a no-op.
func (m *Metrics) ObserveStore(collection, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreOperations.WithLabelValues(collection, operation, status).Inc()
	m.StoreLatency.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}
