package engine

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/tx/pkg/exchange"
)

const defaultTracerName = "tx"

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	transport exchange.Transport
	client    *http.Client
	baseURL   *url.URL
	prefix    string
	timeout   time.Duration
	metrics   *Metrics
	tracer    trace.Tracer
}

func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
		prefix: exchange.DefaultPrefix,
		tracer: otel.Tracer(defaultTracerName),
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTransport replaces the default HTTP transport.
func WithTransport(t exchange.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithHTTPClient sets the client used by Load and the default transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithBaseURL sets the page URL handler routes are resolved against.
// Load sets it to the loaded URL.
func WithBaseURL(u *url.URL) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithHandlerPrefix sets the route prefix for handlers. Default: "/tx/".
func WithHandlerPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithExchangeTimeout bounds each exchange. Zero means no limit.
func WithExchangeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithMetrics records Prometheus metrics in reg.
func WithMetrics(reg prometheus.Registerer, opts ...MetricsOption) Option {
	return func(o *options) {
		cfg := defaultMetricsConfig()
		cfg.Registry = reg
		for _, opt := range opts {
			opt(&cfg)
		}
		o.metrics = NewMetrics(cfg)
	}
}

// WithTracer sets the tracer for exchange spans. The default uses the
// global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}
