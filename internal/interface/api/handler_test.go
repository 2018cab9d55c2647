package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/has-1997/jetback-mvp/internal/domain/entity"
	"github.com/has-1997/jetback-mvp/internal/interface/repository"
	"github.com/has-1997/jetback-mvp/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockIngester struct {
	got    entity.InboundMessage
	ingest func(msg entity.InboundMessage) (*entity.TrackedBooking, error)
}

func (m *mockIngester) Ingest(ctx context.Context, msg entity.InboundMessage) (*entity.TrackedBooking, error) {
	m.got = msg
	return m.ingest(msg)
}

type mockRunner struct {
	report entity.ReconciliationReport
	err    error
}

func (m *mockRunner) RunCycle(ctx context.Context) (entity.ReconciliationReport, error) {
	return m.report, m.err
}

type mockRunRepository struct {
	limit   int
	reports []*entity.ReconciliationReport
}

func (m *mockRunRepository) Save(ctx context.Context, report *entity.ReconciliationReport) error {
	return nil
}

func (m *mockRunRepository) FindRecent(ctx context.Context, limit int) ([]*entity.ReconciliationReport, error) {
	m.limit = limit
	return m.reports, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(ingester Ingester, runner CycleRunner) *gin.Engine {
	h := NewHandler(ingester, runner, repository.NoopReconciliationRunRepository{}, logger.NewNopLogger())
	return NewRouter(h, RouterConfig{Gatherer: prometheus.NewRegistry()}, logger.NewNopLogger())
}

func successfulIngester() *mockIngester {
	return &mockIngester{ingest: func(msg entity.InboundMessage) (*entity.TrackedBooking, error) {
		return &entity.TrackedBooking{
			ID:               "bk-1",
			ConfirmationCode: "ABC123",
			BaselinePrice:    decimal.RequireFromString("245.00"),
			Status:           entity.BookingStatusTracking,
		}, nil
	}}
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestIngestEmail_MissingEmail(t *testing.T) {
	router := setupRouter(successfulIngester(), &mockRunner{})

	w := postJSON(router, "/api/v1/inbound/email", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"email content is missing"}`, w.Body.String())
}

func TestIngestEmail_Success(t *testing.T) {
	ingester := successfulIngester()
	router := setupRouter(ingester, &mockRunner{})

	w := postJSON(router, "/api/v1/inbound/email", `{"email":"raw message","origin":"JFK","owner_id":"user-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"booking_id":"bk-1","confirmation_code":"ABC123","price":"245.00","status":"tracking"}`, w.Body.String())
	assert.Equal(t, "raw message", string(ingester.got.Raw))
	assert.Equal(t, entity.SourceHTTP, ingester.got.Source)
	assert.Equal(t, "JFK", ingester.got.Origin)
	assert.Equal(t, "user-1", ingester.got.OwnerID)
}

func TestIngestEmail_FormEncoded(t *testing.T) {
	ingester := successfulIngester()
	router := setupRouter(ingester, &mockRunner{})

	form := url.Values{"email": {"raw form message"}}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/inbound/email", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "raw form message", string(ingester.got.Raw))
}

func TestIngestEmail_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"incomplete data", entity.NewExtractionError(entity.ErrIncompleteData, "missing total price", nil), http.StatusBadRequest},
		{"unreadable input", entity.NewExtractionError(entity.ErrUnreadableInput, "mime decode", errors.New("bad header")), http.StatusInternalServerError},
		{"persistence failed", entity.NewExtractionError(entity.ErrPersistenceFailed, "create", errors.New("timeout")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingester := &mockIngester{ingest: func(msg entity.InboundMessage) (*entity.TrackedBooking, error) {
				return nil, tt.err
			}}
			router := setupRouter(ingester, &mockRunner{})

			w := postJSON(router, "/api/v1/inbound/email", `{"email":"raw"}`)
			assert.Equal(t, tt.status, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestTriggerReconcile(t *testing.T) {
	runner := &mockRunner{report: entity.ReconciliationReport{RunID: "run-1", Candidates: 3, Transitioned: 1, Unchanged: 2}}
	router := setupRouter(successfulIngester(), runner)

	w := postJSON(router, "/api/v1/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report entity.ReconciliationReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1, report.Transitioned)
}

func TestTriggerReconcile_InProgress(t *testing.T) {
	router := setupRouter(successfulIngester(), &mockRunner{err: entity.ErrCycleInProgress})

	w := postJSON(router, "/api/v1/reconcile", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListRuns(t *testing.T) {
	runs := &mockRunRepository{reports: []*entity.ReconciliationReport{{RunID: "run-2"}, {RunID: "run-1"}}}
	h := NewHandler(successfulIngester(), &mockRunner{}, runs, logger.NewNopLogger())
	router := NewRouter(h, RouterConfig{}, logger.NewNopLogger())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/reconcile/runs?limit=500", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxRunsLimit, runs.limit)
	assert.Contains(t, w.Body.String(), `"runId":"run-2"`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/v1/reconcile/runs?limit=abc", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRuns_HistoryDisabled(t *testing.T) {
	router := setupRouter(successfulIngester(), &mockRunner{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/reconcile/runs", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":[]}`, w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	router := setupRouter(successfulIngester(), &mockRunner{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Healthy", w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	h := NewHandler(successfulIngester(), &mockRunner{}, repository.NoopReconciliationRunRepository{}, logger.NewNopLogger())
	router := NewRouter(h, RouterConfig{IngestRateLimit: 0.001, IngestRateBurst: 2}, logger.NewNopLogger())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, postJSON(router, "/api/v1/inbound/email", `{"email":"raw"}`).Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
