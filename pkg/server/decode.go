package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/vango-dev/mgxrec/pkg/middleware"
	"github.com/vango-dev/mgxrec/pkg/protocol"
	"github.com/vango-dev/mgxrec/pkg/replay"
	"go.opentelemetry.io/otel/attribute"
)

// decodeRequest holds the per-request decode options.
type decodeRequest struct {
	filter *replay.Filter
	opts   protocol.ReaderOptions
	meta   string

	// onMeta receives the body metadata before the first action.
	onMeta func(*protocol.Meta) error
}

// parseDecodeQuery reads only, skip_unsupported and meta from the query.
func (s *Server) parseDecodeQuery(r *http.Request) (decodeRequest, error) {
	q := r.URL.Query()
	req := decodeRequest{
		opts: s.config.ReaderOptions,
		meta: s.config.Meta,
	}

	if only := q["only"]; len(only) > 0 {
		f, err := replay.ParseFilter(only...)
		if err != nil {
			return req, fmt.Errorf("%w: only: %v", ErrInvalidQuery, err)
		}
		req.filter = f
	}
	if v := q.Get("skip_unsupported"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%w: skip_unsupported: %v", ErrInvalidQuery, err)
		}
		req.opts.SkipUnsupported = skip
	}
	if v := q.Get("meta"); v != "" {
		switch v {
		case "none", "mgx", "mgl":
			req.meta = v
		default:
			return req, fmt.Errorf("%w: meta must be none, mgx or mgl", ErrInvalidQuery)
		}
	}
	req.opts.Logger = loggerFrom(r.Context(), s.logger)
	return req, nil
}

// streamResult is what decode reports besides the handler's output.
type streamResult struct {
	Meta    *protocol.Meta
	Actions int
	Skipped int
	Bytes   int64
}

// decode runs h over every action of recording id. Observability
// middleware sees every action; the request filter only limits h.
func (s *Server) decode(ctx context.Context, id string, req decodeRequest, h replay.Handler) (res streamResult, err error) {
	file, err := s.store.Open(ctx, id)
	if err != nil {
		return res, err
	}
	defer file.Close()

	logger := loggerFrom(ctx, s.logger).With("recording", id)
	start := time.Now()
	s.collector.StreamStarted()
	if s.tracing {
		var end func(error)
		ctx, end = middleware.StartStream(ctx, id, []attribute.KeyValue{
			attribute.String("mgxrec.recording", id),
			attribute.String("mgxrec.filename", file.Filename),
		}, s.otelOpts...)
		defer func() { end(err) }()
	}

	r := protocol.NewReader(file.Reader, req.opts)
	defer func() {
		res.Skipped = r.Skipped()
		res.Bytes = r.Offset()
		s.collector.StreamFinished(err, res.Actions, res.Bytes, res.Skipped)
		if s.metrics != nil {
			s.metrics.RecordStream(err, res.Bytes, res.Skipped, time.Since(start))
		}
	}()

	if res.Meta, err = r.ReadMeta(req.meta); err != nil {
		logger.Error("meta failed", replay.ErrorAttrs(err)...)
		return res, NewStreamError(id, "meta", err)
	}
	if res.Meta != nil && req.onMeta != nil {
		if err = req.onMeta(res.Meta); err != nil {
			return res, err
		}
	}

	var mws []replay.Middleware
	if s.metrics != nil {
		mws = append(mws, s.metrics.Middleware())
	}
	if s.tracing {
		mws = append(mws, middleware.OpenTelemetry(s.otelOpts...))
	}
	mws = append(mws, func(next replay.Handler) replay.Handler {
		return func(ctx context.Context, rec *replay.Resolved) error {
			res.Actions++
			return next(ctx, rec)
		}
	})
	if req.filter != nil {
		mws = append(mws, req.filter.Middleware())
	}

	opts := []replay.Option{replay.WithLogger(logger)}
	if s.config.AllowUnresolved {
		opts = append(opts, replay.AllowUnresolved())
	}
	if err = replay.Run(ctx, r, replay.Chain(h, mws...), opts...); err != nil {
		return res, NewStreamError(id, "decode", err)
	}
	return res, nil
}
