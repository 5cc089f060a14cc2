// Package scheduler implements the long-running background workers: the
// periodic evaluation loop that turns forecasts into scheduled notifications
// for every registered device location, and the history archiver.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tanaw/internal/alerting"
	"tanaw/internal/forecast"
	"tanaw/internal/types"
)

// maxConcurrentFetches bounds how many forecast requests run at once so a
// large device fleet cannot stampede the weather upstream.
const maxConcurrentFetches = 4

// DeviceLister returns the registrations whose locations need evaluation.
// Implemented by db.DeviceRepo.
type DeviceLister interface {
	List(ctx context.Context) ([]types.DeviceRegistration, error)
}

// ForecastFetcher retrieves the hourly forecast window for one location.
// Implemented by forecast.Client.
type ForecastFetcher interface {
	GetHourlyForecast(ctx context.Context, lat, lon float64) (*forecast.Payload, error)
}

// PipelineRunner runs the decision pipeline for one payload. Implemented by
// alerting.Service.
type PipelineRunner interface {
	EvaluateAndSchedule(ctx context.Context, payload *forecast.Payload, leadOffsetHours int) (alerting.Result, error)
}

// Evaluator periodically evaluates every registered device location.
// One location failing never aborts the pass; the remaining locations are
// still evaluated and the failure is logged.
type Evaluator struct {
	devices  DeviceLister
	fetcher  ForecastFetcher
	pipeline PipelineRunner

	interval   time.Duration
	leadOffset int
	logger     *slog.Logger
}

// EvaluatorConfig holds the dependencies for creating an Evaluator.
type EvaluatorConfig struct {
	Devices         DeviceLister
	Fetcher         ForecastFetcher
	Pipeline        PipelineRunner
	Interval        time.Duration
	LeadOffsetHours int
	Logger          *slog.Logger
}

// NewEvaluator creates the periodic evaluation worker. A zero interval
// defaults to six hours.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Evaluator{
		devices:    cfg.Devices,
		fetcher:    cfg.Fetcher,
		pipeline:   cfg.Pipeline,
		interval:   cfg.Interval,
		leadOffset: cfg.LeadOffsetHours,
		logger:     cfg.Logger,
	}
}

// Run executes evaluation passes until the context is cancelled. The first
// pass runs immediately; subsequent passes run on the configured interval.
func (e *Evaluator) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.InfoContext(ctx, "evaluation worker stopping")
			return ctx.Err()
		case <-ticker.C:
			e.RunOnce(ctx)
		}
	}
}

// PassSummary reports one evaluation pass across all locations.
type PassSummary struct {
	Locations int
	Scheduled int
	Failed    int
}

// RunOnce evaluates every registered location once. Distinct devices sharing
// coordinates are collapsed to a single fetch. Fetches run concurrently but
// pipeline evaluation per payload is sequential, preserving the one-at-a-time
// scheduling contract.
func (e *Evaluator) RunOnce(ctx context.Context) PassSummary {
	start := time.Now()

	regs, err := e.devices.List(ctx)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to list device registrations", "error", err)
		return PassSummary{}
	}
	if len(regs) == 0 {
		e.logger.InfoContext(ctx, "evaluation pass skipped, no registered devices")
		return PassSummary{}
	}

	type coord struct {
		lat, lon float64
	}
	seen := make(map[coord]struct{}, len(regs))
	var coords []coord
	for _, reg := range regs {
		c := coord{lat: reg.Latitude, lon: reg.Longitude}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		coords = append(coords, c)
	}

	payloads := make([]*forecast.Payload, len(coords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, c := range coords {
		g.Go(func() error {
			payload, err := e.fetcher.GetHourlyForecast(gctx, c.lat, c.lon)
			if err != nil {
				// Logged here, not returned: one location failing must not
				// cancel the sibling fetches.
				e.logger.ErrorContext(gctx, "forecast fetch failed",
					"lat", c.lat,
					"lon", c.lon,
					"error", err,
				)
				return nil
			}
			payloads[i] = payload
			return nil
		})
	}
	_ = g.Wait()

	summary := PassSummary{Locations: len(coords)}
	for i, payload := range payloads {
		if payload == nil {
			summary.Failed++
			continue
		}

		result, err := e.pipeline.EvaluateAndSchedule(ctx, payload, e.leadOffset)
		summary.Scheduled += result.Scheduled
		if err != nil {
			summary.Failed++
			e.logger.ErrorContext(ctx, "evaluation failed for location",
				"lat", coords[i].lat,
				"lon", coords[i].lon,
				"scheduled", result.Scheduled,
				"error", err,
			)
		}
	}

	e.logger.InfoContext(ctx, "evaluation pass complete",
		"locations", summary.Locations,
		"scheduled", summary.Scheduled,
		"failed", summary.Failed,
		"duration", time.Since(start),
	)
	return summary
}
