// Package alerting implements the notification decision engine and the
// evaluation pipeline entry point. The engine is a stateless, ordered list
// of independent rules; orchestration (scheduling, de-duplication, error
// isolation) lives in Service so the engine stays pure and testable.
package alerting

import (
	"context"
	"errors"
	"log/slog"

	"tanaw/internal/forecast"
	"tanaw/internal/types"
)

// Engine evaluates every rule against every candidate and collects the
// resulting intents. Evaluation is non-exclusive: every matching rule fires.
type Engine struct {
	rules []Rule
	clock types.Clock
}

// NewEngine creates an Engine with the given rules. Nil rules means
// DefaultRules; nil clock means RealClock.
func NewEngine(rules []Rule, clock types.Clock) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Engine{rules: rules, clock: clock}
}

// Decide returns the intents warranted by a single candidate, in rule order.
// A candidate matching no rule yields an empty slice. Decide never fails;
// malformed candidates simply match fewer rules.
func (e *Engine) Decide(c types.AlertCandidate) []types.NotificationIntent {
	var intents []types.NotificationIntent
	now := e.clock.Now()
	for _, rule := range e.rules {
		if rule.Matches(c) {
			intents = append(intents, rule.Build(c, now))
		}
	}
	return intents
}

// Scheduler is the downstream consumer of decided intents. Implemented by
// notify.Scheduler; abstracted here for testability.
type Scheduler interface {
	Schedule(ctx context.Context, intent types.NotificationIntent) (string, error)
}

// dedupKey identifies a notification for duplicate suppression across
// repeated evaluations of overlapping forecast windows.
type dedupKey struct {
	eventTime string
	title     string
}

// Service orchestrates one evaluation pass: iterate candidates, decide,
// schedule. It owns the cross-evaluation concerns the engine deliberately
// does not: optional de-duplication and per-intent error isolation.
type Service struct {
	engine    *Engine
	scheduler Scheduler
	logger    *slog.Logger

	dedup bool
	seen  map[dedupKey]struct{}
}

// ServiceOption is a functional option for configuring a Service.
type ServiceOption func(*Service)

// WithDeduplication enables suppression of repeat intents keyed by
// (event time, title). Re-running the pipeline against an overlapping
// forecast window then schedules each event-level notification once per
// Service lifetime instead of once per evaluation.
func WithDeduplication() ServiceOption {
	return func(s *Service) {
		s.dedup = true
		s.seen = make(map[dedupKey]struct{})
	}
}

// NewService creates the evaluation pipeline entry point.
func NewService(engine *Engine, scheduler Scheduler, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		engine:    engine,
		scheduler: scheduler,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result summarizes one evaluation pass.
type Result struct {
	Candidates int
	Intents    int
	Scheduled  int
	Suppressed int
}

// EvaluateAndSchedule runs the full pipeline against one forecast payload.
// Intents are scheduled strictly sequentially: each dispatch-and-record step
// completes before the next begins, so a persistence failure for one intent
// never races with the scheduling of the next.
//
// A failure on one intent aborts that intent only; the remaining intents in
// the batch still attempt scheduling. All per-intent errors are joined into
// the returned error alongside the partial Result.
//
// leadOffsetHours <= 0 selects the default lead offset.
func (s *Service) EvaluateAndSchedule(ctx context.Context, payload *forecast.Payload, leadOffsetHours int) (Result, error) {
	if leadOffsetHours <= 0 {
		leadOffsetHours = types.DefaultLeadOffsetHours
	}

	var result Result
	var errs []error

	for _, candidate := range payload.Candidates() {
		result.Candidates++

		for _, intent := range s.engine.Decide(candidate) {
			result.Intents++
			intent.LeadOffsetHours = leadOffsetHours

			if s.dedup {
				key := dedupKey{eventTime: intent.EventTime, title: intent.Title}
				if _, dup := s.seen[key]; dup {
					result.Suppressed++
					continue
				}
				s.seen[key] = struct{}{}
			}

			id, err := s.scheduler.Schedule(ctx, intent)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to schedule notification",
					"title", intent.Title,
					"event_time", intent.EventTime,
					"error", err,
				)
				errs = append(errs, err)
				continue
			}

			result.Scheduled++
			s.logger.InfoContext(ctx, "notification scheduled",
				"notification_id", id,
				"title", intent.Title,
				"event_time", intent.EventTime,
				"lead_offset_hours", leadOffsetHours,
			)
		}
	}

	return result, errors.Join(errs...)
}
