// Package main is the entry point for the Tanaw API server.
//
// It loads configuration, connects the Postgres pool and AWS clients, wires
// the notification pipeline (forecast client, decision engine, scheduler,
// dispatcher, history store) into the HTTP handlers, and serves the chi
// router with graceful shutdown on SIGINT/SIGTERM.
package main

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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"tanaw/internal/alerting"
	"tanaw/internal/api/handlers"
	"tanaw/internal/config"
	"tanaw/internal/core"
	"tanaw/internal/db"
	"tanaw/internal/forecast"
	"tanaw/internal/notify"
	"tanaw/internal/queue"
	"tanaw/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("tanaw API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	historyRepo := db.NewHistoryRepo(pool)
	reportRepo := db.NewReportRepo(pool)
	deviceRepo := db.NewDeviceRepo(pool)
	if err := ensureSchemas(ctx, historyRepo, reportRepo, deviceRepo); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS SDK config: %w", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})
	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})

	forecastClient := forecast.NewClient(
		&http.Client{Timeout: cfg.Weather.Timeout},
		cfg.Weather.BaseURL,
		cfg.Weather.APIKey.Unmask(),
	)

	pushTrigger := queue.NewPushTrigger(sqsClient, cfg.AWS, types.RealClock{}, logger)

	// Fired deliveries fan out through SQS so devices without an armed local
	// notification still receive the alert.
	dispatcher := notify.NewLocalDispatcher(types.RealClock{}, func(delivery types.PendingDelivery) {
		intent := types.NotificationIntent{
			Title:          delivery.Title,
			Body:           delivery.Body,
			Classification: delivery.Classification,
		}
		if err := pushTrigger.TriggerAlertFanout(context.Background(), intent); err != nil {
			logger.Error("alert fan-out failed", "delivery_id", delivery.ID, "error", err)
		}
	})
	defer dispatcher.Close()

	metrics := notify.NewCloudWatchMetrics(cwClient, types.NewSlogLogger(logger))
	notifScheduler := notify.NewScheduler(dispatcher, historyRepo, metrics, types.RealClock{}, logger)

	var opts []alerting.ServiceOption
	if cfg.Alerting.Dedup {
		opts = append(opts, alerting.WithDeduplication())
	}
	engine := alerting.NewEngine(alerting.DefaultRules(), types.RealClock{})
	pipeline := alerting.NewService(engine, notifScheduler, logger, opts...)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv.HealthProbes = []core.HealthProbe{
		core.HealthProbeFunc{
			ProbeName: "database",
			Fn:        pool.Ping,
		},
	}

	srv.V1RouteRegistrars = []core.RouteRegistrar{
		handlers.NewNotificationHandler(forecastClient, pipeline, historyRepo, notifScheduler, srv.Validator, logger),
		handlers.NewReportHandler(reportRepo, pushTrigger, srv.Validator, logger),
		handlers.NewDeviceHandler(deviceRepo, srv.Validator, logger),
	}

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newPool creates the pgx connection pool with the configured tuning.
func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// ensureSchemas creates the tables for every repository on startup.
func ensureSchemas(ctx context.Context, history *db.HistoryRepo, reports *db.ReportRepo, devices *db.DeviceRepo) error {
	if err := history.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := reports.EnsureSchema(ctx); err != nil {
		return err
	}
	return devices.EnsureSchema(ctx)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
