package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanaw/internal/core"
	"tanaw/internal/types"
)

type mockDeviceStore struct {
	upserted []types.DeviceRegistration
	deleted  []string
}

func (m *mockDeviceStore) Upsert(_ context.Context, reg *types.DeviceRegistration) error {
	m.upserted = append(m.upserted, *reg)
	return nil
}

func (m *mockDeviceStore) Delete(_ context.Context, deviceID string) error {
	m.deleted = append(m.deleted, deviceID)
	return nil
}

func newDeviceRouter(h *DeviceHandler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHandleRegisterDevice(t *testing.T) {
	store := &mockDeviceStore{}
	h := NewDeviceHandler(store, core.NewValidator(), slog.New(slog.DiscardHandler))

	body := `{"device_id":"d-1","push_token":"ExponentPushToken[abc]","latitude":14.59,"longitude":120.98}`
	w := httptest.NewRecorder()
	newDeviceRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/devices", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "d-1", store.upserted[0].DeviceID)
	assert.Equal(t, "ExponentPushToken[abc]", store.upserted[0].PushToken)
}

func TestHandleRegisterDevice_MissingToken(t *testing.T) {
	h := NewDeviceHandler(&mockDeviceStore{}, core.NewValidator(), slog.New(slog.DiscardHandler))

	body := `{"device_id":"d-1","latitude":14.59,"longitude":120.98}`
	w := httptest.NewRecorder()
	newDeviceRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/devices", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRegisterDevice_InvalidLongitude(t *testing.T) {
	h := NewDeviceHandler(&mockDeviceStore{}, core.NewValidator(), slog.New(slog.DiscardHandler))

	body := `{"device_id":"d-1","push_token":"t","latitude":14.59,"longitude":200}`
	w := httptest.NewRecorder()
	newDeviceRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/devices", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUnregisterDevice(t *testing.T) {
	store := &mockDeviceStore{}
	h := NewDeviceHandler(store, core.NewValidator(), slog.New(slog.DiscardHandler))

	w := httptest.NewRecorder()
	newDeviceRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/devices/d-1", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"d-1"}, store.deleted)
}
