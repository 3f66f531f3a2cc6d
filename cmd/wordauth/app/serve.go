package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/wordleapi/wordauth"
	"github.com/wordleapi/wordauth/internal/config"
	"github.com/wordleapi/wordauth/internal/httpapi"
	"github.com/wordleapi/wordauth/internal/logging"
	otelexport "github.com/wordleapi/wordauth/metrics/export/otel"
	promexport "github.com/wordleapi/wordauth/metrics/export/prometheus"
)

const meterName = "github.com/wordleapi/wordauth"

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second // > serverRequestTimeout so the middleware answers first
	serverIdleTimeout      = 60 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the token API server",
		Long: `Start the token API server. Accounts are read from the configured
credential store; an optional seed file creates missing accounts at startup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger)
		},
	}

	cmd.Flags().String("listen", ":8080", "Address to listen on")
	cmd.Flags().String("seed", "", "YAML file of accounts to create at startup")
	cmd.Flags().String("store", config.DriverMemory, "Credential store driver (memory, redis, postgres)")
	mustBind(v, "listen", cmd.Flags().Lookup("listen"))
	mustBind(v, "seed_file", cmd.Flags().Lookup("seed"))
	mustBind(v, "store.driver", cmd.Flags().Lookup("store"))

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	engineCfg := cfg.Engine()

	hasher, err := engineCfg.Password.NewHasher()
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg, hasher, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close credential store", slog.Any("error", err))
		}
	}()

	if cfg.SeedFile != "" {
		users, err := httpapi.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			return err
		}
		if _, err := httpapi.ApplySeed(ctx, store, users, logger); err != nil {
			return err
		}
	}

	builder := wordauth.New().
		WithConfig(engineCfg).
		WithCredentialStore(store).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(wordauth.NewSlogSink(logger.With(slog.String("component", "audit"))))
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := []httpapi.Option{
		httpapi.WithLogger(logger),
		httpapi.WithRequestTimeout(serverRequestTimeout),
	}
	if cfg.Metrics.Enabled {
		handler, shutdownMetrics, err := metricsHandler(engine, cfg.Metrics.OTel)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownMetrics(context.Background()); err != nil {
				logger.Warn("shutdown metrics", slog.Any("error", err))
			}
		}()
		opts = append(opts, httpapi.WithMetricsHandler(handler))
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpapi.NewServer(engine, store, opts...).Routes(),
		ReadHeaderTimeout: serverReadTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Listen), slog.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// metricsHandler exposes the engine counters next to the Go runtime and
// process collectors. With viaOTel the engine series go through an OTel
// MeterProvider whose Prometheus reader shares the registry; otherwise the
// native Collector is registered directly.
func metricsHandler(engine *wordauth.Engine, viaOTel bool) (http.Handler, func(context.Context) error, error) {
	reg := prom.NewRegistry()
	shutdown := func(context.Context) error { return nil }

	cs := []prom.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	if !viaOTel {
		cs = append(cs, promexport.NewCollector(engine))
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, nil, fmt.Errorf("register collector: %w", err)
		}
	}

	if viaOTel {
		reader, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, nil, fmt.Errorf("otel prometheus reader: %w", err)
		}
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		exporter, err := otelexport.NewOTelExporter(provider.Meter(meterName), engine)
		if err != nil {
			_ = provider.Shutdown(context.Background())
			return nil, nil, err
		}
		shutdown = func(ctx context.Context) error {
			return errors.Join(exporter.Close(), provider.Shutdown(ctx))
		}
	}

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), shutdown, nil
}
