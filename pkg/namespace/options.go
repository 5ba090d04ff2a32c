package namespace

import (
	"time"

	"github.com/marmos91/bucketfs/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/marmos91/bucketfs/pkg/namespace"

// Metrics receives per-operation observations from the Engine.
//
// Implementations must be safe for concurrent use. A nil Metrics is never
// stored on an Engine: the no-op implementation is used instead.
type Metrics interface {
	// ObserveOperation records one completed engine operation. err is nil
	// on success.
	ObserveOperation(op string, duration time.Duration, err error)

	// RecordObjects records how many objects a recursive operation touched.
	RecordObjects(op string, n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordObjects(string, int)                     {}

// NoopMetrics returns a Metrics that discards everything.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for call logging. Defaults to
// logger.Default().
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithTracer sets the tracer that opens one span per operation. Defaults
// to the global otel tracer provider, which is a no-op unless the process
// installed one.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
