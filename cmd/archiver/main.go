// Package main is the entry point for the history archive worker.
//
// The worker periodically moves notification history rows older than the
// configured retention into zstd-compressed JSON-line archives and deletes
// them from the database. It runs until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"tanaw/internal/config"
	"tanaw/internal/db"
	"tanaw/internal/scheduler"
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
	logger.Info("tanaw archive worker starting",
		"environment", cfg.Environment,
		"dir", cfg.Archive.Dir,
		"retention", cfg.Archive.Retention.String(),
		"interval", cfg.Archive.Interval.String(),
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

	archiver := scheduler.NewArchiver(scheduler.ArchiverConfig{
		History:   db.NewHistoryRepo(pool),
		Dir:       cfg.Archive.Dir,
		Retention: cfg.Archive.Retention,
		Interval:  cfg.Archive.Interval,
		Logger:    logger,
	})

	err = archiver.Run(ctx)
	logger.Info("archive worker stopped")
	return err
}
