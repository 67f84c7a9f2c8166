package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vango-dev/mgxrec/pkg/middleware"
	"github.com/vango-dev/mgxrec/pkg/upload"
)

// Server is the HTTP/WebSocket server for stored recordings.
type Server struct {
	// Recording storage
	store upload.Store

	// Configuration
	config *ServerConfig

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// Observability
	metrics   *middleware.Metrics
	gatherer  prometheus.Gatherer
	tracing   bool
	otelOpts  []middleware.OTelOption
	collector *MetricsCollector

	// HTTP handler
	handler http.Handler

	// HTTP server
	httpServer *http.Server

	// Logger
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics counts requests and decoded actions in m and serves gatherer
// on /metrics.
func WithMetrics(m *middleware.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithTracing starts a span for every decoded stream and command.
func WithTracing(opts ...middleware.OTelOption) Option {
	return func(s *Server) {
		s.tracing = true
		s.otelOpts = opts
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger.With("component", "server")
	}
}

// New creates a new Server over store with the given configuration.
func New(store upload.Store, config *ServerConfig, opts ...Option) *Server {
	if config == nil {
		config = DefaultServerConfig()
	} else {
		config = config.Clone()
		config.applyDefaults()
	}

	s := &Server{
		store:  store,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		collector: NewMetricsCollector(),
		logger:    slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// routes builds the router.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.HTTP)
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.collector.Snapshot())
	})

	uploads := upload.HandlerWithConfig(s.store, &upload.Config{
		MaxFileSize: s.config.MaxUploadSize,
		Expiry:      s.config.Expiry,
	})
	r.Route("/recs", func(r chi.Router) {
		r.With(s.countUploads).Post("/", uploads.ServeHTTP)
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Get("/actions", s.handleActions)
			r.Get("/stats", s.handleStats)
			r.Get("/ws", s.handleStream)
		})
	})
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run starts the server and blocks until ctx is done or the server fails.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	if s.config.Expiry > 0 {
		cleanupCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go s.cleanupLoop(cleanupCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// cleanupLoop removes expired recordings until ctx is done.
func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.store.Cleanup(ctx, s.config.Expiry); err != nil {
				s.logger.Error("cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Stats returns a snapshot of the server's stream counters.
func (s *Server) Stats() *ServerMetrics {
	return s.collector.Snapshot()
}
