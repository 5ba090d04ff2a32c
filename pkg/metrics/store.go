package metrics

import (
	"time"

	"github.com/marmos91/bucketfs/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storeMetrics is the Prometheus implementation of store.Metrics.
type storeMetrics struct {
	backend           string
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
}

// NewStoreMetrics returns Prometheus-backed object store metrics labelled
// with backend (memory, badger, s3, azure), or nil when metrics are
// disabled.
func NewStoreMetrics(backend string) store.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newStoreMetrics(GetRegistry(), backend)
}

func newStoreMetrics(reg prometheus.Registerer, backend string) *storeMetrics {
	return &storeMetrics{
		backend: backend,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bucketfs_store_operations_total",
				Help: "Total number of object store calls by backend, operation and status",
			},
			[]string{"backend", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bucketfs_store_operation_duration_seconds",
				Help:    "Duration of object store calls in seconds",
				Buckets: latencyBuckets,
			},
			[]string{"backend", "operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bucketfs_store_bytes_total",
				Help: "Bytes read from or written to the object store",
			},
			[]string{"backend", "operation"},
		),
	}
}

// ObserveOperation implements store.Metrics.
func (m *storeMetrics) ObserveOperation(op string, duration time.Duration, err error) {
	m.operationsTotal.WithLabelValues(m.backend, op, statusOf(err)).Inc()
	m.operationDuration.WithLabelValues(m.backend, op).Observe(duration.Seconds())
}

// RecordBytes implements store.Metrics.
func (m *storeMetrics) RecordBytes(op string, n int64) {
	if n > 0 {
		m.bytesTransferred.WithLabelValues(m.backend, op).Add(float64(n))
	}
}
