package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fraudwatch/account-risk/internal/adapters/csvsource"
	"github.com/fraudwatch/account-risk/internal/adapters/storage"
	"github.com/fraudwatch/account-risk/internal/application"
	"github.com/fraudwatch/account-risk/internal/config"
	"github.com/fraudwatch/account-risk/internal/domain/detection"
	"github.com/fraudwatch/account-risk/internal/domain/reporting"
	"github.com/fraudwatch/account-risk/internal/logger"
	"github.com/fraudwatch/account-risk/internal/metrics"
	"github.com/fraudwatch/account-risk/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	section := flag.String("section", sectionReport, "section to print: "+sectionNames())
	initSchema := flag.Bool("init-schema", false, "create the PostgreSQL input tables if missing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *section, *initSchema, log); err != nil {
		log.Error("Account risk report failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, section string, initSchema bool, log *zap.Logger) error {
	if !validSection(section) {
		return fmt.Errorf("unknown section %q (want one of %s)", section, sectionNames())
	}

	rules, err := cfg.DetectionRules()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	source, closeSource, err := newSource(ctx, cfg, initSchema)
	if err != nil {
		return err
	}
	defer closeSource()

	log.Info("Starting account risk report",
		zap.String("environment", cfg.Environment),
		zap.String("source", source.Name()),
		zap.Int("workers", cfg.Detection.Workers),
	)

	engine := application.NewEngine(
		application.NewLoader(source, log, m, cfg.Source.LoadTimeout),
		detection.NewDetector(rules, cfg.Detection.Workers),
		reporting.NewBuilder(reporting.Options{RecentWindow: cfg.Report.RecentWindow}),
		log,
		m,
	)

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	result := engine.Refresh(ctx)
	if result.Status != application.RefreshSuccess {
		return fmt.Errorf("initial refresh failed: %s", result.Message)
	}
	if err := writeSection(ctx, os.Stdout, engine, section, result); err != nil {
		return err
	}

	if cfg.RefreshInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down")
			return nil
		case <-ticker.C:
			result := engine.Refresh(ctx)
			if result.Status != application.RefreshSuccess {
				log.Warn("Scheduled refresh failed, serving previous report", zap.String("message", result.Message))
				continue
			}
			log.Info("Scheduled refresh completed",
				zap.String("dataset_id", result.DatasetID),
				zap.Int("accounts", result.Accounts),
			)
		}
	}
}

// newSource builds the configured record source and its cleanup function
func newSource(ctx context.Context, cfg *config.Config, initSchema bool) (ports.RecordSource, func(), error) {
	switch cfg.Source.Driver {
	case "postgres":
		src, err := storage.NewPostgresSource(ctx, cfg.Source.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if initSchema {
			if err := src.InitSchema(ctx); err != nil {
				src.Close()
				return nil, nil, err
			}
		}
		return src, func() { src.Close() }, nil
	default:
		delimiter, err := cfg.Delimiter()
		if err != nil {
			return nil, nil, err
		}
		return csvsource.NewSource(cfg.Source.AccountsPath, cfg.Source.ReferencePath, delimiter), func() {}, nil
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
