package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tanaw/internal/core"
	"tanaw/internal/types"
)

// ReportStore is the persistence surface for hazard reports. Implemented by
// db.ReportRepo.
type ReportStore interface {
	Create(ctx context.Context, report *types.HazardReport) error
	GetByID(ctx context.Context, id string) (*types.HazardReport, error)
	ListRecent(ctx context.Context, limit int) ([]*types.HazardReport, error)
}

// FanoutTrigger publishes a push message announcing a new report.
// Implemented by queue.PushTrigger.
type FanoutTrigger interface {
	TriggerReportFanout(ctx context.Context, report types.HazardReport) error
}

// ReportHandler maps HTTP requests onto hazard report storage and fan-out.
type ReportHandler struct {
	store     ReportStore
	fanout    FanoutTrigger
	validator *core.Validator
	logger    *slog.Logger
}

// NewReportHandler creates a ReportHandler with the provided dependencies.
func NewReportHandler(store ReportStore, fanout FanoutTrigger, validator *core.Validator, logger *slog.Logger) *ReportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportHandler{
		store:     store,
		fanout:    fanout,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the report endpoints onto the mux.
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/reports", h.HandleCreate)
	r.Get("/reports", h.HandleListRecent)
	r.Get("/reports/{reportID}", h.HandleGet)
}

// createReportRequest is the body of POST /v1/reports.
type createReportRequest struct {
	DeviceID    string  `json:"device_id" validate:"required"`
	HazardType  string  `json:"hazard_type" validate:"required"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url,omitempty" validate:"omitempty,url"`
	Latitude    float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" validate:"min=-180,max=180"`
}

// HandleCreate handles POST /v1/reports: persist the report, then trigger
// push fan-out. A fan-out failure does not fail the request; the report is
// already saved and the queue consumer retries from its side.
func (h *ReportHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	report := types.HazardReport{
		DeviceID:    req.DeviceID,
		HazardType:  req.HazardType,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if err := h.store.Create(r.Context(), &report); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.fanout.TriggerReportFanout(r.Context(), report); err != nil {
		h.logger.ErrorContext(r.Context(), "report fan-out failed",
			"report_id", report.ID,
			"error", err,
		)
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: report})
}

// HandleGet handles GET /v1/reports/{reportID}.
func (h *ReportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reportID")

	report, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: report})
}

// HandleListRecent handles GET /v1/reports?limit=N.
func (h *ReportHandler) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	reports, err := h.store.ListRecent(r.Context(), parseLimit(r, 50))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if reports == nil {
		reports = []*types.HazardReport{}
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: reports})
}
