package metrics

import (
	"strconv"
	"time"

	"github.com/marmos91/bucketfs/pkg/adapter/rest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpMetrics is the Prometheus implementation of rest.Metrics.
type httpMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics returns Prometheus-backed REST request metrics, or nil
// when metrics are disabled.
func NewHTTPMetrics() rest.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newHTTPMetrics(GetRegistry())
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	return &httpMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "bucketfs_http_requests_total",
				Help: "Total number of REST requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bucketfs_http_request_duration_seconds",
				Help:    "Duration of REST requests in seconds",
				Buckets: latencyBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveRequest implements rest.Metrics.
func (m *httpMetrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
