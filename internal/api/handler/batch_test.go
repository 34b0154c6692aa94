package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/meghanaraju/insightq/internal/api/handler"
	"github.com/meghanaraju/insightq/internal/batch"
	"github.com/meghanaraju/insightq/internal/store"
	"github.com/meghanaraju/insightq/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubmitter struct {
	result *batch.SubmitResult
	err    error
	got    *batch.SubmitRequest
}

func (f *fakeSubmitter) Submit(_ context.Context, req batch.SubmitRequest) (*batch.SubmitResult, error) {
	f.got = &req
	return f.result, f.err
}

type fakeReader struct {
	status   *batch.BatchStatus
	stats    models.QueueStats
	err      error
	statsErr error
}

func (f *fakeReader) BatchStatus(context.Context, string) (*batch.BatchStatus, error) {
	return f.status, f.err
}

func (f *fakeReader) QueueStats(context.Context) (models.QueueStats, error) {
	return f.stats, f.statsErr
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSubmitBatch_Accepted(t *testing.T) {
	svc := &fakeSubmitter{result: &batch.SubmitResult{
		BatchID:       "batch-1724800000000-abcd1234",
		JobCount:      2,
		EstimatedCost: 0.05,
		Status:        "submitted",
	}}
	h := handler.NewSubmitBatchHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader(`{
		"customers": [
			{"customer_id": "c1", "purchases": [{"product_id": "p-001", "quantity": 1, "price": 2.5}]},
			{"customer_id": "c2", "purchases": []}
		],
		"analysis_types": ["customer_profiling"],
		"priority": "high"
	}`))
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	require.NotNil(t, svc.got)
	assert.Len(t, svc.got.Customers, 2)
	assert.Equal(t, []string{"customer_profiling"}, svc.got.AnalysisTypes)
	assert.Equal(t, "high", svc.got.Priority)

	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, "batch-1724800000000-abcd1234", data["batch_id"])
	assert.Equal(t, float64(2), data["job_count"])
}

func TestSubmitBatch_InvalidJSON(t *testing.T) {
	h := handler.NewSubmitBatchHandler(&fakeSubmitter{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitBatch_ValidationError(t *testing.T) {
	svc := &fakeSubmitter{err: fmt.Errorf("%w: at least one customer is required", batch.ErrInvalidRequest)}
	h := handler.NewSubmitBatchHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader(`{"customers": []}`))
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "INVALID_REQUEST", errBody["code"])
	assert.Contains(t, errBody["message"], "at least one customer")
}

func TestSubmitBatch_InternalError(t *testing.T) {
	svc := &fakeSubmitter{err: errors.New("pg down")}
	h := handler.NewSubmitBatchHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal detail must not leak to the client.
	assert.NotContains(t, rec.Body.String(), "pg down")
}

func batchStatusRequest(h http.HandlerFunc, batchID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/api/v1/batches/{batchID}", h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batches/"+batchID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestBatchStatus_OK(t *testing.T) {
	svc := &fakeReader{status: &batch.BatchStatus{
		BatchID: "batch-1",
		Jobs:    []*models.Job{{JobID: "batch-1-c1", Status: models.JobStatusCompleted}},
		Stats:   models.BatchStats{TotalJobs: 1, CompletedJobs: 1, SuccessRate: 100},
	}}

	rec := batchStatusRequest(handler.NewBatchStatusHandler(svc), "batch-1")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, "batch-1", data["batch_id"])
	stats := data["stats"].(map[string]any)
	assert.Equal(t, float64(100), stats["success_rate"])
}

func TestBatchStatus_NotFound(t *testing.T) {
	svc := &fakeReader{err: fmt.Errorf("batch batch-x: %w", store.ErrNotFound)}

	rec := batchStatusRequest(handler.NewBatchStatusHandler(svc), "batch-x")

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "BATCH_NOT_FOUND", errBody["code"])
}

func TestBatchStatus_InternalError(t *testing.T) {
	svc := &fakeReader{err: errors.New("pg down")}

	rec := batchStatusRequest(handler.NewBatchStatusHandler(svc), "batch-1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestQueueStats_OK(t *testing.T) {
	svc := &fakeReader{stats: models.QueueStats{ApproxMessages: 4, ApproxInFlight: 1, ApproxOldestAgeSecs: 12}}
	h := handler.NewQueueStatsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/queue/stats", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(4), data["approx_messages"])
	assert.Equal(t, float64(1), data["approx_in_flight"])
}

func TestQueueStats_Unavailable(t *testing.T) {
	svc := &fakeReader{statsErr: errors.New("redis down")}
	h := handler.NewQueueStatsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/queue/stats", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	errBody := body["error"].(map[string]any)
	assert.Equal(t, "QUEUE_UNAVAILABLE", errBody["code"])
}
