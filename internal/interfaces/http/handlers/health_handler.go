package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/trialsync/trialsync/pkg/types/common"
)

// probeTimeout bounds each dependency check during readiness.
const probeTimeout = 2 * time.Second

// Check probes one dependency for readiness.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	checks []Check
}

// NewHealthHandler builds the handler around the given dependency checks.
func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Liveness handles GET /healthz: the process is up.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": string(common.HealthUp)})
}

// Readiness handles GET /readyz: every dependency answers its probe.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	components := make([]common.ComponentHealth, 0, len(h.checks))
	ready := true

	for _, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := check.Probe(ctx)
		cancel()

		component := common.ComponentHealth{Name: check.Name, Status: common.HealthUp}
		if err != nil {
			component.Status = common.HealthDown
			component.Message = err.Error()
			ready = false
		}
		components = append(components, component)
	}

	status := http.StatusOK
	overall := common.HealthUp
	if !ready {
		status = http.StatusServiceUnavailable
		overall = common.HealthDown
	}
	writeJSON(w, status, map[string]any{
		"status":     string(overall),
		"components": components,
	})
}
