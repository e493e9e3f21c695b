package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// HealthCheck probes one backing service
type HealthCheck func(ctx context.Context) error

// HealthHandler reports process and dependency health
type HealthHandler struct {
	checks map[string]HealthCheck
}

// NewHealthHandler creates a health handler over the named checks
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	respondWithJSON(w, status, resp)
}
