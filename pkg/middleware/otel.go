package middleware

import (
	"context"
	"fmt"

	"github.com/vango-dev/mgxrec/pkg/replay"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for mgxrec.
const defaultTracerName = "mgxrec"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "mgxrec").
	TracerName string

	// Tracer overrides the tracer from the global provider.
	Tracer trace.Tracer

	// Filter determines which actions get a span.
	// Return true to trace the action, false to skip.
	// If nil, only command frames are traced.
	Filter func(rec *replay.Resolved) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(rec *replay.Resolved) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracer sets the tracer directly instead of using the global provider.
func WithTracer(tracer trace.Tracer) OTelOption {
	return func(c *OTelConfig) {
		c.Tracer = tracer
	}
}

// WithActionFilter sets a filter function for actions.
func WithActionFilter(filter func(rec *replay.Resolved) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(rec *replay.Resolved) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
		Filter:     commandsOnly,
	}
}

func commandsOnly(rec *replay.Resolved) bool {
	_, ok := rec.Frame()
	return ok
}

func (c *OTelConfig) resolve(opts []OTelOption) {
	for _, opt := range opts {
		opt(c)
	}
	c.tracer = c.Tracer
	if c.tracer == nil {
		c.tracer = otel.Tracer(c.TracerName)
	}
}

// OpenTelemetry creates middleware that traces decoded actions.
//
// The middleware:
//   - Creates a span for each traced action with its type, offset and game time
//   - Adds the command name, world time and resolved object count for frames
//   - Passes the span context to the next handler
//   - Records errors and sets span status
//
// Example:
//
//	h := replay.Chain(handle,
//	    middleware.OpenTelemetry(
//	        middleware.WithTracerName("rec-indexer"),
//	    ),
//	)
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracer is given. Configure it in main() before decoding.
func OpenTelemetry(opts ...OTelOption) replay.Middleware {
	config := defaultOTelConfig()
	config.resolve(opts)

	return func(next replay.Handler) replay.Handler {
		return func(ctx context.Context, rec *replay.Resolved) error {
			if config.Filter != nil && !config.Filter(rec) {
				return next(ctx, rec)
			}

			spanName := "mgxrec." + rec.Action.ActionType().String()
			attrs := []attribute.KeyValue{
				attribute.String("mgxrec.action_type", rec.Action.ActionType().String()),
				attribute.Int("mgxrec.index", rec.Index),
				attribute.Int64("mgxrec.offset", rec.Offset),
				attribute.Int64("mgxrec.game_time_ms", rec.GameTime.Milliseconds()),
			}
			if f, ok := rec.Frame(); ok {
				if op, ok := f.Opcode(); ok {
					spanName = fmt.Sprintf("mgxrec.%s", op)
					attrs = append(attrs, attribute.String("mgxrec.command", op.String()))
				}
				attrs = append(attrs,
					attribute.Int64("mgxrec.world_time", int64(f.WorldTime)),
					attribute.Int("mgxrec.frame_length", int(f.Length)),
				)
			}
			if rec.Selects {
				attrs = append(attrs, attribute.Int("mgxrec.object_count", len(rec.Objects)))
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(rec)...)
			}

			spanCtx, span := config.tracer.Start(ctx, spanName,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			err := next(spanCtx, rec)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}

// StartStream starts a span covering a whole stream. Call the returned
// function with the stream's result to end it.
//
// Example:
//
//	ctx, end := middleware.StartStream(ctx, "decode",
//	    []attribute.KeyValue{attribute.String("mgxrec.file", name)})
//	err := replay.Run(ctx, r, h)
//	end(err)
func StartStream(ctx context.Context, name string, attrs []attribute.KeyValue, opts ...OTelOption) (context.Context, func(error)) {
	config := defaultOTelConfig()
	config.resolve(opts)

	ctx, span := config.tracer.Start(ctx, "mgxrec.stream "+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// SpanFromContext retrieves the current trace span from the context.
// Returns nil if no span is recording.
//
// Example:
//
//	func handle(ctx context.Context, rec *replay.Resolved) error {
//	    if span := middleware.SpanFromContext(ctx); span != nil {
//	        span.SetAttributes(attribute.Int("my.count", 42))
//	    }
//	    return nil
//	}
func SpanFromContext(ctx context.Context) trace.Span {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() && !span.IsRecording() {
		return nil
	}
	return span
}
