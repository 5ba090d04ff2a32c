package metrics

import (
	"time"

	"github.com/marmos91/bucketfs/pkg/namespace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespaceMetrics is the Prometheus implementation of namespace.Metrics.
type namespaceMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	objectsTouched    *prometheus.CounterVec
}

// NewNamespaceMetrics returns Prometheus-backed engine metrics, or nil when
// metrics are disabled.
func NewNamespaceMetrics() namespace.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newNamespaceMetrics(GetRegistry())
}

func newNamespaceMetrics(reg prometheus.Registerer) *namespaceMetrics {
	return &namespaceMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bucketfs_namespace_operations_total",
				Help: "Total number of namespace operations by operation and result code",
			},
			[]string{"operation", "code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bucketfs_namespace_operation_duration_seconds",
				Help:    "Duration of namespace operations in seconds",
				Buckets: latencyBuckets,
			},
			[]string{"operation"},
		),
		objectsTouched: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bucketfs_namespace_objects_total",
				Help: "Objects copied or deleted by recursive namespace operations",
			},
			[]string{"operation"},
		),
	}
}

// ObserveOperation implements namespace.Metrics. The code label is "OK"
// on success and the namespace error code otherwise.
func (m *namespaceMetrics) ObserveOperation(op string, duration time.Duration, err error) {
	code := "OK"
	if err != nil {
		code = "Unknown"
		if c, ok := namespace.CodeOf(err); ok {
			code = c.String()
		}
	}
	m.operationsTotal.WithLabelValues(op, code).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordObjects implements namespace.Metrics.
func (m *namespaceMetrics) RecordObjects(op string, n int) {
	if n > 0 {
		m.objectsTouched.WithLabelValues(op).Add(float64(n))
	}
}
