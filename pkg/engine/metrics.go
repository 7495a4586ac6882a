package engine

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/tx/pkg/exchange"
	"github.com/vango-dev/tx/pkg/region"
)

// MetricsConfig configures engine metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "tx").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for exchange duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the metrics. A nil registry leaves them
	// unregistered.
	Registry prometheus.Registerer
}

// MetricsOption configures engine metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "tx",
		Buckets:   prometheus.DefBuckets,
	}
}

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	exchangesTotal   *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	exchangeErrors   *prometheus.CounterVec
	patchesApplied   *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	bindingsTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics(config MetricsConfig) *Metrics {
	factory := promauto.With(config.Registry)

	return &Metrics{
		exchangesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "exchanges_total",
			Help:        "Total number of exchanges run",
			ConstLabels: config.ConstLabels,
		}, []string{"handler", "status"}),

		exchangeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "exchange_duration_seconds",
			Help:        "Exchange duration in seconds, request through patch",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"handler"}),

		exchangeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "exchange_errors_total",
			Help:        "Total number of failed exchanges",
			ConstLabels: config.ConstLabels,
		}, []string{"handler", "error_type"}),

		patchesApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_applied_total",
			Help:        "Total number of document patches applied",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "queue_depth",
			Help:        "Exchanges waiting to run",
			ConstLabels: config.ConstLabels,
		}),

		bindingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bindings_total",
			Help:        "Total number of listeners bound",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

func (m *Metrics) recordExchange(handler string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.exchangeDuration.WithLabelValues(handler).Observe(d.Seconds())
	status := "success"
	if err != nil {
		status = "error"
		m.exchangeErrors.WithLabelValues(handler, categorizeError(err)).Inc()
	}
	m.exchangesTotal.WithLabelValues(handler, status).Inc()
}

func (m *Metrics) recordPatch(mode string) {
	if m == nil {
		return
	}
	m.patchesApplied.WithLabelValues(mode).Inc()
}

func (m *Metrics) recordBinding(kind string) {
	if m == nil {
		return
	}
	m.bindingsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// categorizeError maps an exchange error to a low-cardinality label.
func categorizeError(err error) string {
	var te *exchange.TransportError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &te):
		return "transport"
	case errors.Is(err, exchange.ErrMissingState):
		return "missing_state"
	case errors.Is(err, exchange.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, region.ErrMissingMarkers):
		return "missing_markers"
	default:
		return "internal"
	}
}
