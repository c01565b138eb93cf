package handlers

import (
	"net/http"
	"time"

	"github.com/pihole/pihole-api/internal/ftl/snapshot"
	"github.com/pihole/pihole-api/pkg/api"
)

// HealthHandler serves liveness/readiness probes against the telemetry
// snapshot facade, modeled on the teacher's registry-backed health
// handler but checking shared-memory/lock reachability instead of store
// connectivity.
type HealthHandler struct {
	facade    *snapshot.Facade
	startedAt time.Time
}

// NewHealthHandler builds a HealthHandler over facade, recording the
// current time as the process's start time for uptime reporting.
func NewHealthHandler(facade *snapshot.Facade) *HealthHandler {
	return &HealthHandler{facade: facade, startedAt: time.Now()}
}

type healthStatus struct {
	Service   string `json:"service"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
}

// Liveness handles GET /health: the process is running.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.status("alive"))
}

// Readiness handles GET /health/ready: the facade can take the lock and
// read a consistent snapshot.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	err := h.facade.WithRetry(func(snapshot.Snapshot) error { return nil })
	if err != nil {
		api.Error(w, err)
		return
	}
	api.JSON(w, http.StatusOK, h.status("ready"))
}

func (h *HealthHandler) status(status string) healthStatus {
	return healthStatus{
		Service:   "pihole-api",
		Status:    status,
		StartedAt: h.startedAt.UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	}
}
