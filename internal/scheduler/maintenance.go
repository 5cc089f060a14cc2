package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"tanaw/internal/types"
)

// HistoryArchiveStore is the retention surface of the history log.
// Implemented by db.HistoryRepo.
type HistoryArchiveStore interface {
	ListBefore(ctx context.Context, cutoff string) ([]types.StoredNotification, error)
	DeleteBefore(ctx context.Context, cutoff string) (int64, error)
}

// Archiver moves aged notification history rows into compressed archive
// files and deletes them from the database. Rows are written before they are
// deleted; a write failure leaves the database untouched.
type Archiver struct {
	history   HistoryArchiveStore
	dir       string
	retention time.Duration
	interval  time.Duration
	clock     types.Clock
	logger    *slog.Logger
}

// ArchiverConfig holds the dependencies for creating an Archiver.
type ArchiverConfig struct {
	History   HistoryArchiveStore
	Dir       string
	Retention time.Duration
	Interval  time.Duration
	Clock     types.Clock
	Logger    *slog.Logger
}

// NewArchiver creates the history retention worker. A zero interval defaults
// to daily; a zero retention defaults to thirty days.
func NewArchiver(cfg ArchiverConfig) *Archiver {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Archiver{
		history:   cfg.History,
		dir:       cfg.Dir,
		retention: cfg.Retention,
		interval:  cfg.Interval,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Run executes archive passes until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	if err := a.RunOnce(ctx); err != nil {
		a.logger.ErrorContext(ctx, "archive pass failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.InfoContext(ctx, "archive worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive pass failed", "error", err)
			}
		}
	}
}

// RunOnce archives and deletes every history row older than the retention
// cutoff. A pass with nothing to archive is a no-op.
func (a *Archiver) RunOnce(ctx context.Context) error {
	now := a.clock.Now()
	cutoff := now.Add(-a.retention).UTC().Format(time.RFC3339)

	rows, err := a.history.ListBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	path, err := a.writeArchive(rows, now)
	if err != nil {
		return err
	}

	deleted, err := a.history.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archive written to %s but delete failed: %w", path, err)
	}

	a.logger.InfoContext(ctx, "notification history archived",
		"path", path,
		"archived", len(rows),
		"deleted", deleted,
		"cutoff", cutoff,
	)
	return nil
}

// writeArchive writes the rows as zstd-compressed JSON lines and returns the
// archive path. The file lands via rename so a crash mid-write never leaves
// a partial archive under the final name.
func (a *Archiver) writeArchive(rows []types.StoredNotification, now time.Time) (string, error) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := fmt.Sprintf("notification-history-%s.jsonl.zst", now.UTC().Format("20060102T150405Z"))
	path := filepath.Join(a.dir, name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to create zstd writer: %w", err)
	}

	w := json.NewEncoder(enc)
	for _, row := range rows {
		if err := w.Encode(row); err != nil {
			enc.Close()
			f.Close()
			os.Remove(tmp)
			return "", fmt.Errorf("failed to encode history row %d: %w", row.ID, err)
		}
	}

	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to flush archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close archive file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize archive file: %w", err)
	}

	return path, nil
}
