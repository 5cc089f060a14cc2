// Package handlers contains the HTTP handler implementations for the Tanaw
// API: notification history and evaluation, hazard reports, and device
// registration.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tanaw/internal/alerting"
	"tanaw/internal/core"
	"tanaw/internal/forecast"
	"tanaw/internal/types"
)

// ForecastFetcher retrieves the hourly forecast window for a location.
// Implemented by forecast.Client; defined locally per the handler injection
// pattern.
type ForecastFetcher interface {
	GetHourlyForecast(ctx context.Context, lat, lon float64) (*forecast.Payload, error)
}

// Evaluator runs the decision pipeline against a forecast payload.
// Implemented by alerting.Service.
type Evaluator interface {
	EvaluateAndSchedule(ctx context.Context, payload *forecast.Payload, leadOffsetHours int) (alerting.Result, error)
}

// HistoryStore is the read-and-clear surface of the notification history log.
// Implemented by db.HistoryRepo.
type HistoryStore interface {
	List(ctx context.Context) ([]types.StoredNotification, error)
	Clear(ctx context.Context) (int64, error)
}

// PendingManager exposes the armed deliveries. Implemented by
// notify.Scheduler.
type PendingManager interface {
	ListPending(ctx context.Context) ([]types.PendingDelivery, error)
	CancelAll(ctx context.Context) (int, error)
}

// NotificationHandler maps HTTP requests onto the notification pipeline.
type NotificationHandler struct {
	fetcher   ForecastFetcher
	evaluator Evaluator
	history   HistoryStore
	pending   PendingManager
	validator *core.Validator
	logger    *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler with the provided
// dependencies.
func NewNotificationHandler(
	fetcher ForecastFetcher,
	evaluator Evaluator,
	history HistoryStore,
	pending PendingManager,
	validator *core.Validator,
	logger *slog.Logger,
) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{
		fetcher:   fetcher,
		evaluator: evaluator,
		history:   history,
		pending:   pending,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the notification endpoints onto the mux.
// All routes assume the auth middleware is already applied.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.Delete("/notifications", h.HandleClear)
	r.Get("/notifications/pending", h.HandleListPending)
	r.Post("/evaluate", h.HandleEvaluate)
}

// evaluateRequest is the body of POST /v1/evaluate.
type evaluateRequest struct {
	Latitude        float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude       float64 `json:"longitude" validate:"min=-180,max=180"`
	LeadOffsetHours int     `json:"lead_offset_hours,omitempty" validate:"min=0,max=24"`
}

// evaluateResponse summarizes one on-demand evaluation pass.
type evaluateResponse struct {
	Candidates int `json:"candidates"`
	Intents    int `json:"intents"`
	Scheduled  int `json:"scheduled"`
	Suppressed int `json:"suppressed"`
}

// HandleEvaluate handles POST /v1/evaluate: fetch the hourly forecast for
// the given location, run the decision pipeline, and schedule the resulting
// notifications. Partial failures still return the partial result with a
// 502; intents that scheduled before the failure stay scheduled.
func (h *NotificationHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	payload, err := h.fetcher.GetHourlyForecast(r.Context(), req.Latitude, req.Longitude)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.evaluator.EvaluateAndSchedule(r.Context(), payload, req.LeadOffsetHours)
	resp := evaluateResponse{
		Candidates: result.Candidates,
		Intents:    result.Intents,
		Scheduled:  result.Scheduled,
		Suppressed: result.Suppressed,
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "evaluation completed with errors",
			"scheduled", result.Scheduled,
			"intents", result.Intents,
			"error", err,
		)
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeDispatchFailed,
			"some notifications could not be scheduled",
			err,
			map[string]any{"scheduled": result.Scheduled, "intents": result.Intents},
		))
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}

// HandleList handles GET /v1/notifications: the history log, newest-first.
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.history.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if notifications == nil {
		notifications = []types.StoredNotification{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: notifications})
}

// HandleClear handles DELETE /v1/notifications: disarm every pending
// delivery, then wipe the history log. Cancellation runs first so a
// delivery cannot fire and re-append between the two steps.
func (h *NotificationHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.pending.CancelAll(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	cleared, err := h.history.Clear(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "notification history cleared",
		"cancelled", cancelled,
		"cleared", cleared,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]any{
		"cancelled": cancelled,
		"cleared":   cleared,
	}})
}

// HandleListPending handles GET /v1/notifications/pending.
func (h *NotificationHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.pending.ListPending(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if pending == nil {
		pending = []types.PendingDelivery{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: pending})
}

// parseLimit reads an optional positive integer limit query parameter.
func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
