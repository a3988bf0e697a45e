package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/adminapi"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/cli"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/config"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
	"github.com/Fooddie-KLTN/fooddie-admin/pkg/rbac"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Console.RequireAPI(); err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stderr).WithField("version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, cfg.Observability.Tracing(version), logger)
	if err != nil {
		return err
	}
	defer observability.ShutdownTracing(context.Background(), tp)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	labels := rbac.DefaultLabels()
	if cfg.Console.LabelsFile != "" {
		if labels, err = rbac.LoadLabels(cfg.Console.LabelsFile); err != nil {
			return err
		}
	}

	client, err := adminapi.New(cfg.Console.APIURL, adminapi.StaticToken(cfg.Console.Token),
		adminapi.WithTimeout(cfg.Console.HTTPTimeout),
		adminapi.WithLogger(logger),
		adminapi.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	root := cli.NewRootCommand(&cli.App{
		API:       client,
		Console:   cfg.Console,
		Catalogue: rbac.DefaultCatalogue(),
		Labels:    labels,
		Logger:    logger,
		Metrics:   metrics,
	})
	return root.Execute(ctx, os.Args[1:], os.Stdout)
}
