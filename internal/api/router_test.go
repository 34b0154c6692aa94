package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meghanaraju/insightq/internal/api"
	"github.com/meghanaraju/insightq/internal/api/response"
	"github.com/stretchr/testify/assert"
)

func TestRouter_RoutesAreWired(t *testing.T) {
	ok := func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, map[string]string{"status": "ok"})
	}

	router := api.NewRouter(api.Dependencies{
		HealthHandler:      ok,
		SubmitBatchHandler: ok,
		BatchStatusHandler: ok,
		QueueStatsHandler:  ok,
	})

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodPost, "/api/v1/batches", http.StatusOK},
		{http.MethodGet, "/api/v1/batches/batch-1", http.StatusOK},
		{http.MethodGet, "/api/v1/queue/stats", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/batches", http.StatusMethodNotAllowed},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouter_MissingHandlerReturns501(t *testing.T) {
	router := api.NewRouter(api.Dependencies{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/batches", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
