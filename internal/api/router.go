package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/finscore/internal/api/handlers"
	"github.com/wonny/finscore/pkg/logger"
	"github.com/wonny/finscore/pkg/metrics"
)

// Handlers groups everything the router serves
type Handlers struct {
	Status *handlers.StatusHandler
	Score  *handlers.ScoreHandler
	// Metrics is mounted at /metrics when non-nil
	Metrics http.Handler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, allowedOrigins []string, m *metrics.Manager, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// OPTIONS is accepted so the CORS middleware can answer preflights
	r.HandleFunc("/status", h.Status.Status).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/health", h.Status.Health).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/financial-score", h.Score.GetFinancialScore).Methods(http.MethodGet, http.MethodOptions)

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Apply middleware (outermost first)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log, m))
	r.Use(recoveryMiddleware(log))
	r.Use(corsMiddleware(allowedOrigins))

	return r
}
