// Package main is the entry point for the evaluation worker.
//
// The worker periodically lists registered device locations, fetches the
// hourly forecast for each unique coordinate pair, runs the decision
// pipeline, and schedules the resulting notifications. It runs until it
// receives SIGINT or SIGTERM.
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

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"tanaw/internal/alerting"
	"tanaw/internal/config"
	"tanaw/internal/db"
	"tanaw/internal/forecast"
	"tanaw/internal/notify"
	"tanaw/internal/queue"
	"tanaw/internal/scheduler"
	"tanaw/internal/types"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("tanaw evaluation worker starting",
		"environment", cfg.Environment,
		"interval", cfg.Alerting.EvalInterval.String(),
		"lead_offset_hours", cfg.Alerting.LeadOffsetHours,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	historyRepo := db.NewHistoryRepo(pool)
	deviceRepo := db.NewDeviceRepo(pool)

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

	pushTrigger := queue.NewPushTrigger(sqsClient, cfg.AWS, types.RealClock{}, logger)

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

	forecastClient := forecast.NewClient(
		&http.Client{Timeout: cfg.Weather.Timeout},
		cfg.Weather.BaseURL,
		cfg.Weather.APIKey.Unmask(),
	)

	evaluator := scheduler.NewEvaluator(scheduler.EvaluatorConfig{
		Devices:         deviceRepo,
		Fetcher:         forecastClient,
		Pipeline:        pipeline,
		Interval:        cfg.Alerting.EvalInterval,
		LeadOffsetHours: cfg.Alerting.LeadOffsetHours,
		Logger:          logger,
	})

	err = evaluator.Run(ctx)
	logger.Info("evaluation worker stopped")
	return err
}
