package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tanaw/internal/alerting"
	"tanaw/internal/core"
	"tanaw/internal/forecast"
	"tanaw/internal/types"
)

type mockFetcher struct {
	payload *forecast.Payload
	err     error
	lat     float64
	lon     float64
}

func (m *mockFetcher) GetHourlyForecast(_ context.Context, lat, lon float64) (*forecast.Payload, error) {
	m.lat, m.lon = lat, lon
	return m.payload, m.err
}

type mockEvaluator struct {
	result alerting.Result
	err    error
	lead   int
}

func (m *mockEvaluator) EvaluateAndSchedule(_ context.Context, _ *forecast.Payload, leadOffsetHours int) (alerting.Result, error) {
	m.lead = leadOffsetHours
	return m.result, m.err
}

type mockHistoryStore struct {
	rows     []types.StoredNotification
	cleared  int64
	listErr  error
	clearErr error
}

func (m *mockHistoryStore) List(_ context.Context) ([]types.StoredNotification, error) {
	return m.rows, m.listErr
}

func (m *mockHistoryStore) Clear(_ context.Context) (int64, error) {
	if m.clearErr != nil {
		return 0, m.clearErr
	}
	n := int64(len(m.rows))
	m.rows = nil
	m.cleared = n
	return n, nil
}

type mockPending struct {
	pending      []types.PendingDelivery
	cancelCalled bool
	cancelErr    error
}

func (m *mockPending) ListPending(_ context.Context) ([]types.PendingDelivery, error) {
	return m.pending, nil
}

func (m *mockPending) CancelAll(_ context.Context) (int, error) {
	if m.cancelErr != nil {
		return 0, m.cancelErr
	}
	m.cancelCalled = true
	n := len(m.pending)
	m.pending = nil
	return n, nil
}

func newNotificationRouter(h *NotificationHandler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func newTestNotificationHandler(f ForecastFetcher, e Evaluator, hs HistoryStore, p PendingManager) *NotificationHandler {
	return NewNotificationHandler(f, e, hs, p, core.NewValidator(), slog.New(slog.DiscardHandler))
}

func TestHandleList_ReturnsHistory(t *testing.T) {
	hs := &mockHistoryStore{rows: []types.StoredNotification{
		{ID: 2, Title: "Danger Heat Alert!", Body: "b", Timestamp: "2024-06-02T10:00:00Z"},
		{ID: 1, Title: "Rain Alert!", Body: "b", Timestamp: "2024-06-01T10:00:00Z"},
	}}
	h := newTestNotificationHandler(&mockFetcher{}, &mockEvaluator{}, hs, &mockPending{})

	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []types.StoredNotification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, int64(2), resp.Data[0].ID)
}

func TestHandleList_EmptyHistoryIsEmptyArray(t *testing.T) {
	h := newTestNotificationHandler(&mockFetcher{}, &mockEvaluator{}, &mockHistoryStore{}, &mockPending{})

	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestHandleClear_CancelsThenClears(t *testing.T) {
	hs := &mockHistoryStore{rows: []types.StoredNotification{{ID: 1}}}
	p := &mockPending{pending: []types.PendingDelivery{{ID: "d-1"}, {ID: "d-2"}}}
	h := newTestNotificationHandler(&mockFetcher{}, &mockEvaluator{}, hs, p)

	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notifications", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, p.cancelCalled)
	assert.JSONEq(t, `{"data":{"cancelled":2,"cleared":1}}`, w.Body.String())
}

func TestHandleClear_CancelFailureSkipsClear(t *testing.T) {
	hs := &mockHistoryStore{rows: []types.StoredNotification{{ID: 1}}}
	p := &mockPending{cancelErr: types.NewAppError(types.ErrCodeInternalUnexpected, "dispatcher unavailable", nil)}
	h := newTestNotificationHandler(&mockFetcher{}, &mockEvaluator{}, hs, p)

	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/notifications", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, hs.rows, 1, "history must not be cleared when cancellation fails")
}

func TestHandleEvaluate_Success(t *testing.T) {
	f := &mockFetcher{payload: &forecast.Payload{}}
	e := &mockEvaluator{result: alerting.Result{Candidates: 12, Intents: 3, Scheduled: 3}}
	h := newTestNotificationHandler(f, e, &mockHistoryStore{}, &mockPending{})

	body := `{"latitude":14.59,"longitude":120.98,"lead_offset_hours":2}`
	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 14.59, f.lat)
	assert.Equal(t, 120.98, f.lon)
	assert.Equal(t, 2, e.lead)
	assert.JSONEq(t, `{"data":{"candidates":12,"intents":3,"scheduled":3,"suppressed":0}}`, w.Body.String())
}

func TestHandleEvaluate_InvalidLatitude(t *testing.T) {
	h := newTestNotificationHandler(&mockFetcher{}, &mockEvaluator{}, &mockHistoryStore{}, &mockPending{})

	body := `{"latitude":95,"longitude":120.98}`
	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEvaluate_MalformedBody(t *testing.T) {
	h := newTestNotificationHandler(&mockFetcher{}, &mockEvaluator{}, &mockHistoryStore{}, &mockPending{})

	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(`{`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEvaluate_UpstreamFailure(t *testing.T) {
	f := &mockFetcher{err: types.NewAppError(types.ErrCodeUpstreamWeather, "weather service request failed", nil)}
	h := newTestNotificationHandler(f, &mockEvaluator{}, &mockHistoryStore{}, &mockPending{})

	body := `{"latitude":14.59,"longitude":120.98}`
	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_weather_unavailable")
}

func TestHandleEvaluate_PartialSchedulingFailure(t *testing.T) {
	f := &mockFetcher{payload: &forecast.Payload{}}
	e := &mockEvaluator{
		result: alerting.Result{Candidates: 12, Intents: 3, Scheduled: 2},
		err:    errors.New("dispatch_failed: failed to arm notification delivery"),
	}
	h := newTestNotificationHandler(f, e, &mockHistoryStore{}, &mockPending{})

	body := `{"latitude":14.59,"longitude":120.98}`
	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/evaluate", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp core.APIErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "dispatch_failed", resp.Error.Code)
	assert.Equal(t, float64(2), resp.Error.Details["scheduled"])
}

func TestHandleListPending(t *testing.T) {
	p := &mockPending{pending: []types.PendingDelivery{{ID: "d-1", Title: "Rain Alert!"}}}
	h := newTestNotificationHandler(&mockFetcher{}, &mockEvaluator{}, &mockHistoryStore{}, p)

	w := httptest.NewRecorder()
	newNotificationRouter(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications/pending", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Rain Alert!")
}
