package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// StatusHandler answers liveness and readiness probes
type StatusHandler struct {
	port   string
	checks map[string]CheckFunc
}

// CheckFunc reports the health of one dependency
type CheckFunc func(ctx context.Context) error

// NewStatusHandler creates a status handler. checks may be empty.
func NewStatusHandler(port string, checks map[string]CheckFunc) *StatusHandler {
	return &StatusHandler{port: port, checks: checks}
}

// Status reports that the server is up
// GET /status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	var port interface{} = h.port
	if n, err := strconv.Atoi(h.port); err == nil {
		port = n
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "Server is running",
		"port":   port,
	})
}

// Health runs every dependency check
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	results := make(map[string]string, len(h.checks))

	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	respondJSON(w, code, map[string]interface{}{
		"status":  status,
		"service": "finscore",
		"checks":  results,
	})
}
