package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Momen-Elshamy/mvrouter-sub000/internal/models"
)

// Pinger is a dependency whose reachability can be probed
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	checks  map[string]Pinger
	order   []string
	timeout time.Duration
}

// NewHealthHandler creates a health handler probing the named dependencies in order
func NewHealthHandler(checks map[string]Pinger, order []string) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		order:   order,
		timeout: 3 * time.Second,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string                         `json:"status"`
	Timestamp  time.Time                      `json:"timestamp"`
	Components map[string]*models.HealthCheck `json:"components"`
}

// HandleHealthCheck reports the status of every dependency
func (h *HealthHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	components, healthy := h.probe(r.Context())

	response := HealthResponse{
		Status:     string(models.HealthStatusHealthy),
		Timestamp:  time.Now(),
		Components: components,
	}
	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		response.Status = string(models.HealthStatusUnhealthy)
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}

// HandleLivenessProbe handles Kubernetes liveness probe
func (h *HealthHandler) HandleLivenessProbe(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleReadinessProbe answers 200 only when every dependency responds
func (h *HealthHandler) HandleReadinessProbe(w http.ResponseWriter, r *http.Request) {
	if _, healthy := h.probe(r.Context()); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("Service Unavailable"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func (h *HealthHandler) probe(ctx context.Context) (map[string]*models.HealthCheck, bool) {
	components := make(map[string]*models.HealthCheck, len(h.order))
	healthy := true

	for _, name := range h.order {
		pinger, ok := h.checks[name]
		if !ok {
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		start := time.Now()
		err := pinger.Ping(checkCtx)
		cancel()

		check := &models.HealthCheck{
			Component: name,
			Status:    models.HealthStatusHealthy,
			Duration:  time.Since(start),
			CheckedAt: time.Now(),
		}
		if err != nil {
			check.Status = models.HealthStatusUnhealthy
			check.Message = err.Error()
			healthy = false
		}
		components[name] = check
	}
	return components, healthy
}
