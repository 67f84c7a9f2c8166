// Package middleware provides observability middleware for decoded
// action streams and the recording server.
//
// This package includes:
//   - OpenTelemetry tracing for replay handlers
//   - Prometheus metrics for actions, streams and HTTP requests
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware starts a span for every command frame. Spans
// carry the action type, stream offset, game time, command name and the
// number of resolved objects.
//
//	h := replay.Chain(handle,
//	    middleware.OpenTelemetry(),
//	)
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("rec-indexer"),
//	    middleware.WithActionFilter(func(rec *replay.Resolved) bool {
//	        return rec.Selects
//	    }),
//	)
//
// # Prometheus Metrics
//
// Prometheus registers collectors once and hands back a *Metrics that
// serves both the replay pipeline and the HTTP router:
//   - mgxrec_actions_total: Actions by type
//   - mgxrec_commands_total: Commands by name
//   - mgxrec_streams_total: Streams by result
//   - mgxrec_stream_duration_seconds: Whole-stream decode duration
//   - mgxrec_http_requests_total: Requests by route and status
//
//	m := middleware.Prometheus()
//	router.Use(m.HTTP)
//	err := replay.Run(ctx, r, replay.Chain(handle, m.Middleware()))
//
// Then expose metrics:
//
//	router.Handle("/metrics", promhttp.Handler())
//
// # Context Propagation
//
// The span context is passed to the next handler, so anything the handler
// calls with ctx joins the trace:
//
//	func handle(ctx context.Context, rec *replay.Resolved) error {
//	    _, err := db.ExecContext(ctx, "INSERT ...")
//	    return err
//	}
package middleware
