package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tanaw/internal/core"
	"tanaw/internal/types"
)

// DeviceStore is the persistence surface for device registrations.
// Implemented by db.DeviceRepo.
type DeviceStore interface {
	Upsert(ctx context.Context, reg *types.DeviceRegistration) error
	Delete(ctx context.Context, deviceID string) error
}

// DeviceHandler maps HTTP requests onto device registration storage.
type DeviceHandler struct {
	store     DeviceStore
	validator *core.Validator
	logger    *slog.Logger
}

// NewDeviceHandler creates a DeviceHandler with the provided dependencies.
func NewDeviceHandler(store DeviceStore, validator *core.Validator, logger *slog.Logger) *DeviceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeviceHandler{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the device endpoints onto the mux.
func (h *DeviceHandler) RegisterRoutes(r chi.Router) {
	r.Put("/devices", h.HandleRegister)
	r.Delete("/devices/{deviceID}", h.HandleUnregister)
}

// registerDeviceRequest is the body of PUT /v1/devices. Registration is an
// upsert: re-registering refreshes the token and location.
type registerDeviceRequest struct {
	DeviceID  string  `json:"device_id" validate:"required"`
	PushToken string  `json:"push_token" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// HandleRegister handles PUT /v1/devices.
func (h *DeviceHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	reg := types.DeviceRegistration{
		DeviceID:  req.DeviceID,
		PushToken: req.PushToken,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}
	if err := h.store.Upsert(r.Context(), &reg); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "device registered",
		"device_id", reg.DeviceID,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: reg})
}

// HandleUnregister handles DELETE /v1/devices/{deviceID}.
func (h *DeviceHandler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if deviceID == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "device ID is required", nil))
		return
	}

	if err := h.store.Delete(r.Context(), deviceID); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
