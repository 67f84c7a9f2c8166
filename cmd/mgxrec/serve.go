package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/vango-dev/mgxrec/internal/config"
	"github.com/vango-dev/mgxrec/internal/errors"
	"github.com/vango-dev/mgxrec/pkg/middleware"
	"github.com/vango-dev/mgxrec/pkg/server"
	"github.com/vango-dev/mgxrec/pkg/upload"
)

func serveCmd(a *app) *cobra.Command {
	var (
		address string
		backend string
		dir     string
		metrics bool
		tracing bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the recording inspection server",
		Long: `Run an HTTP server that stores uploaded recordings and decodes them
on request.

Routes:
  POST   /recs                 upload a recording
  GET    /recs                 list recordings
  GET    /recs/{id}/actions    decoded actions as JSON
  GET    /recs/{id}/stats      action summary
  GET    /recs/{id}/ws         live action stream over WebSocket
  GET    /metrics              Prometheus metrics (with --metrics)

The s3 backend reads credentials from AWS_ACCESS_KEY_ID and
AWS_SECRET_ACCESS_KEY.

Examples:
  mgxrec serve
  mgxrec serve --addr :9000 --dir /var/lib/mgxrec
  mgxrec serve --backend s3 --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("addr") {
				a.cfg.Server.Address = address
			}
			if flags.Changed("backend") {
				a.cfg.Storage.Backend = backend
			}
			if flags.Changed("dir") {
				a.cfg.Storage.Dir = dir
			}
			if flags.Changed("metrics") {
				a.cfg.Metrics.Enabled = metrics
			}
			if flags.Changed("tracing") {
				a.cfg.Tracing.Enabled = tracing
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&address, "addr", "", "Listen address (default from mgxrec.json)")
	cmd.Flags().StringVar(&backend, "backend", "", "Storage backend: disk or s3")
	cmd.Flags().StringVar(&dir, "dir", "", "Directory of the disk backend")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Expose Prometheus metrics on /metrics")
	cmd.Flags().BoolVar(&tracing, "tracing", false, "Trace decoded streams with OpenTelemetry")

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	store, err := openStore(a.cfg)
	if err != nil {
		return err
	}

	sc, err := serverConfig(a.cfg, a.logger)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(a.logger)}
	if a.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := middleware.Prometheus(
			middleware.WithNamespace(a.cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		)
		opts = append(opts, server.WithMetrics(m, reg))
	}
	if a.cfg.Tracing.Enabled {
		opts = append(opts, server.WithTracing(middleware.WithTracerName(a.cfg.Tracing.TracerName)))
	}

	srv := server.New(store, sc, opts...)
	a.logger.Info("serving recordings",
		"addr", sc.Address,
		"backend", a.cfg.Storage.Backend,
		"metrics", a.cfg.Metrics.Enabled,
		"tracing", a.cfg.Tracing.Enabled)
	if err := srv.Run(ctx); err != nil {
		return errors.New("S220").WithDetail(err.Error()).Wrap(err)
	}
	return nil
}

// openStore opens the configured recording store.
func openStore(cfg *config.Config) (upload.Store, error) {
	switch cfg.Storage.Backend {
	case "disk":
		store, err := upload.NewDiskStore(cfg.UploadPath(), cfg.Server.MaxUploadSize)
		if err != nil {
			return nil, errors.New("S203").WithDetail(err.Error()).Wrap(err)
		}
		return store, nil
	case "s3":
		client := upload.NewS3Client(upload.S3Options{
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
		return upload.NewS3Store(client, cfg.Storage.Bucket, cfg.Storage.Prefix, cfg.Server.MaxUploadSize), nil
	default:
		return nil, errors.New("S200").WithDetail(fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend))
	}
}

// serverConfig builds the server settings from the file configuration.
func serverConfig(cfg *config.Config, logger *slog.Logger) (*server.ServerConfig, error) {
	readTimeout, err := cfg.ReadTimeout()
	if err != nil {
		return nil, errors.New("C122").WithDetail("server.readTimeout: " + err.Error())
	}
	expiry, err := cfg.Expiry()
	if err != nil {
		return nil, errors.New("C122").WithDetail("server.expiry: " + err.Error())
	}

	sc := server.DefaultServerConfig().WithAddress(cfg.Server.Address)
	sc.ReadTimeout = readTimeout
	sc.MaxUploadSize = cfg.Server.MaxUploadSize
	sc.Expiry = expiry
	sc.ReaderOptions = cfg.ReaderOptions(logger)
	sc.Meta = cfg.Decode.Meta
	sc.AllowUnresolved = cfg.Decode.AllowUnresolved
	return sc, nil
}
