package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tanaw/internal/types"
)

// HistoryAppender records scheduled notifications. Implemented by
// db.HistoryRepo.
type HistoryAppender interface {
	Append(ctx context.Context, title, body, timestamp string) (types.StoredNotification, error)
}

// Scheduler validates intents, computes trigger times, arms deliveries, and
// records history. It is the single write path into the notification system:
// nothing reaches the dispatcher or the history log except through Schedule.
type Scheduler struct {
	dispatcher Dispatcher
	history    HistoryAppender
	metrics    NotificationMetrics
	clock      types.Clock
	logger     *slog.Logger
}

// NewScheduler wires the scheduler. A nil metrics sink disables metric
// emission; a nil clock means RealClock.
func NewScheduler(dispatcher Dispatcher, history HistoryAppender, metrics NotificationMetrics, clock types.Clock, logger *slog.Logger) *Scheduler {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		dispatcher: dispatcher,
		history:    history,
		metrics:    metrics,
		clock:      clock,
		logger:     logger,
	}
}

// Schedule arms one notification and appends it to the history log, returning
// the delivery ID. The trigger time is the event time minus the intent's lead
// offset; an intent without an event time dispatches immediately.
//
// Validation happens before any side effect: a malformed event time fails
// with a schedule validation error and leaves both the dispatcher and the
// history log untouched. A history append failure after a successful dispatch
// is reported to the caller; the delivery stays armed because the user-facing
// warning outranks the log entry.
func (s *Scheduler) Schedule(ctx context.Context, intent types.NotificationIntent) (string, error) {
	if intent.Title == "" || intent.Body == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "notification title and body are required", nil)
	}

	triggerAt, err := s.triggerTime(intent)
	if err != nil {
		s.metrics.RecordScheduleOutcome(ctx, MetricResultRejected)
		return "", err
	}

	delivery := types.PendingDelivery{
		Title:          intent.Title,
		Body:           intent.Body,
		Classification: intent.Classification,
		TriggerAt:      triggerAt,
	}

	id, err := s.dispatcher.Dispatch(ctx, delivery)
	if err != nil {
		s.metrics.RecordScheduleOutcome(ctx, MetricResultFailure)
		return "", types.NewAppError(types.ErrCodeDispatchFailed, "failed to arm notification delivery", err)
	}

	s.metrics.RecordScheduleOutcome(ctx, MetricResultSuccess)
	s.metrics.RecordLeadTime(ctx, triggerAt.Sub(s.clock.Now()))

	if _, err := s.history.Append(ctx, intent.Title, intent.Body, triggerAt.UTC().Format(time.RFC3339)); err != nil {
		return id, fmt.Errorf("notification %s armed but history append failed: %w", id, err)
	}

	return id, nil
}

// triggerTime computes when the delivery fires. Event times are strict
// ISO 8601; anything else is a validation error, not a fallback to "now".
func (s *Scheduler) triggerTime(intent types.NotificationIntent) (time.Time, error) {
	if intent.EventTime == "" {
		return s.clock.Now(), nil
	}

	eventAt, err := time.Parse(time.RFC3339, intent.EventTime)
	if err != nil {
		return time.Time{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidSchedule,
			"event time is not a valid ISO 8601 timestamp",
			err,
			map[string]any{"event_time": intent.EventTime},
		)
	}

	lead := intent.LeadOffsetHours
	if lead <= 0 {
		lead = types.DefaultLeadOffsetHours
	}
	return eventAt.Add(-time.Duration(lead) * time.Hour), nil
}

// Cancel disarms one pending delivery.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	return s.dispatcher.Cancel(ctx, id)
}

// CancelAll disarms every pending delivery and returns how many were armed.
func (s *Scheduler) CancelAll(ctx context.Context) (int, error) {
	return s.dispatcher.CancelAll(ctx)
}

// ListPending returns the deliveries that have not fired yet.
func (s *Scheduler) ListPending(ctx context.Context) ([]types.PendingDelivery, error) {
	return s.dispatcher.ListPending(ctx)
}
