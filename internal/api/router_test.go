package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finscore/internal/analysis"
	"github.com/wonny/finscore/internal/api/handlers"
	"github.com/wonny/finscore/internal/contracts"
	"github.com/wonny/finscore/pkg/logger"
	"github.com/wonny/finscore/pkg/metrics"
)

type panicAnalyzer struct{}

func (panicAnalyzer) FetchMainCompanyFinancials(context.Context, string) (contracts.MetricRecord, error) {
	panic("nil map")
}

func (panicAnalyzer) RunFinancialAnalysis(context.Context, string) (*analysis.Result, error) {
	return nil, nil
}

func newTestRouter(m *metrics.Manager) http.Handler {
	log := logger.Nop()
	return NewRouter(Handlers{
		Status:  handlers.NewStatusHandler("5000", nil),
		Score:   handlers.NewScoreHandler(panicAnalyzer{}, nil, log),
		Metrics: m.Handler(),
	}, []string{"http://localhost:3000"}, m, log)
}

func TestRouter_Status(t *testing.T) {
	router := newTestRouter(metrics.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRouter_RequestIDPropagated(t *testing.T) {
	router := newTestRouter(metrics.New())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(metrics.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}

func TestRouter_PanicRecovered(t *testing.T) {
	router := newTestRouter(metrics.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/financial-score?ticker=AAPL", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter(metrics.New())

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/financial-score", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "GET")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
	})

	t.Run("preflight from foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/financial-score", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRouter_Metrics(t *testing.T) {
	m := metrics.New()
	router := newTestRouter(m)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `finscore_http_requests_total{code="200",route="/status"} 1`))
}
