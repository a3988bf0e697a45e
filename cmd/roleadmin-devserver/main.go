package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/config"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/devserver"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
)

var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).WithField("service", "roleadmin-devserver")
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Dev server failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx := context.Background()

	tp, err := observability.InitTracing(ctx, cfg.Observability.Tracing(version), logger)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg.DevServer, logger)
	if err != nil {
		return err
	}
	if err := devserver.Seed(ctx, store, devserver.DefaultSeed()); err != nil {
		closeStore()
		return err
	}

	opts := devserver.Options{Store: store, Token: cfg.DevServer.Token, Logger: logger}
	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Registry = registry
		opts.Metrics = observability.NewMetrics(registry)
	}

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.DevServer.Host, cfg.DevServer.Port),
		Handler:      devserver.New(opts).Handler(),
		ReadTimeout:  cfg.DevServer.ReadTimeout,
		WriteTimeout: cfg.DevServer.WriteTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.DevServer.ShutdownTimeout)
	shutdown.Register(func(context.Context) error { return closeStore() })
	shutdown.Register(func(ctx context.Context) error { return observability.ShutdownTracing(ctx, tp) })

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(map[string]any{"addr": server.Addr, "store": cfg.DevServer.Store}).Info("Starting role admin dev server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go func() {
		if err := shutdown.WaitForSignal(); err != nil {
			logger.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	if err := <-errCh; err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.DevServerConfig, logger *observability.Logger) (devserver.Store, func() error, error) {
	if cfg.Store != config.StorePostgres {
		return devserver.NewMemoryStore(), func() error { return nil }, nil
	}

	db, err := devserver.OpenPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	if err := devserver.RunMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("PostgreSQL store ready")
	return devserver.NewPostgresStore(db), db.Close, nil
}
