package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
)

// MetricsConfig holds the collector settings. Zero fields fall back to
// namespace "mgxrec", prometheus.DefBuckets for the stream histogram and
// prometheus.DefaultRegisterer.
type MetricsConfig struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	Buckets     []float64
	Registry    prometheus.Registerer
}

// MetricsOption adjusts a MetricsConfig.
type MetricsOption func(*MetricsConfig)

func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels attaches labels to every collector, e.g. an instance name.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the bucket bounds, in seconds, of the stream duration histogram.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry registers the collectors on r instead of the global registry.
func WithRegistry(r prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = r }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "mgxrec",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for decoded streams.
type Metrics struct {
	actionsTotal   *prometheus.CounterVec
	commandsTotal  *prometheus.CounterVec
	handlerErrors  *prometheus.CounterVec
	streamsTotal   *prometheus.CounterVec
	streamDuration prometheus.Histogram
	bytesDecoded   prometheus.Counter
	skippedFrames  prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// Prometheus registers the stream and HTTP collectors, all prefixed with
// the configured namespace:
//
//	actions_total{type}                  decoded actions
//	commands_total{command}              decoded commands
//	handler_errors_total{type,error_type}
//	streams_total{status}                streams by success/error
//	stream_duration_seconds              whole-stream decode time
//	decoded_bytes_total, skipped_frames_total
//	http_requests_total{route,status}, http_request_duration_seconds{route}
//
// Registration panics on duplicate names; use WithRegistry to run more
// than one instance in a process.
func Prometheus(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	counter := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, ConstLabels: cfg.ConstLabels,
			Name: name, Help: help,
		}
	}
	histogram := func(name, help string) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{
			Namespace: cfg.Namespace, Subsystem: cfg.Subsystem, ConstLabels: cfg.ConstLabels,
			Name: name, Help: help, Buckets: cfg.Buckets,
		}
	}

	return &Metrics{
		actionsTotal:   factory.NewCounterVec(counter("actions_total", "Decoded actions by type."), []string{"type"}),
		commandsTotal:  factory.NewCounterVec(counter("commands_total", "Decoded commands by name."), []string{"command"}),
		handlerErrors:  factory.NewCounterVec(counter("handler_errors_total", "Errors returned by action handlers."), []string{"type", "error_type"}),
		streamsTotal:   factory.NewCounterVec(counter("streams_total", "Decoded streams by result."), []string{"status"}),
		streamDuration: factory.NewHistogram(histogram("stream_duration_seconds", "Whole-stream decode time.")),
		bytesDecoded:   factory.NewCounter(counter("decoded_bytes_total", "Stream bytes consumed.")),
		skippedFrames:  factory.NewCounter(counter("skipped_frames_total", "Unsupported frames skipped.")),
		httpRequests:   factory.NewCounterVec(counter("http_requests_total", "HTTP requests by route and status."), []string{"route", "status"}),
		httpDuration:   factory.NewHistogramVec(histogram("http_request_duration_seconds", "HTTP request latency."), []string{"route"}),
	}
}

// Middleware counts every action and every handler error.
func (m *Metrics) Middleware() replay.Middleware {
	return func(next replay.Handler) replay.Handler {
		return func(ctx context.Context, rec *replay.Resolved) error {
			typ := rec.Action.ActionType().String()
			m.actionsTotal.WithLabelValues(typ).Inc()
			if cmd := rec.Command(); cmd != nil {
				m.commandsTotal.WithLabelValues(cmd.Opcode().String()).Inc()
			}

			err := next(ctx, rec)
			if err != nil {
				m.handlerErrors.WithLabelValues(typ, categorizeError(err)).Inc()
			}
			return err
		}
	}
}

// RecordStream records the outcome of one decoded stream.
func (m *Metrics) RecordStream(err error, bytes int64, skipped int, elapsed time.Duration) {
	m.streamsTotal.WithLabelValues(categorizeError(err)).Inc()
	m.streamDuration.Observe(elapsed.Seconds())
	m.bytesDecoded.Add(float64(bytes))
	m.skippedFrames.Add(float64(skipped))
}

// HTTP counts requests by chi route pattern, so IDs in URLs do not become
// label values.
func (m *Metrics) HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// categorizeError returns a low-cardinality label for err: "success",
// "canceled", a decode error code, or "handler".
func categorizeError(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, replay.ErrNoPreviousSelection):
		return "unresolved_selection"
	}
	if code := protocol.CodeOf(err); code != protocol.CodeUnknown {
		return code.String()
	}
	return "handler"
}
