// Package handler provides HTTP handlers for the routeboard API.
package handler

import (
	"net/http"
	"time"

	"github.com/routeboard/routeboard/internal/api/models"
	"github.com/routeboard/routeboard/internal/api/response"
	"github.com/routeboard/routeboard/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler. A nil registry reports no providers.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry) *OpsHandler {
	if registry == nil {
		registry = resilience.NewRegistry()
	}
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Failing upstreams do not make the service unready: routes fall back to the
// synthetic timetable, so the status is reported but the code stays 200.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: healthStatus(h.registry.Overall()),
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"providers": len(h.registry.Snapshot()),
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - upstream provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := h.registry.Snapshot()

	providers := make([]models.ProviderStatus, 0, len(snapshot))
	for _, u := range snapshot {
		ps := models.ProviderStatus{
			Provider:      u.Name,
			Status:        healthStatus(u.State),
			CircuitState:  u.CircuitState.String(),
			LastSuccessAt: models.TimestampPtr(u.LastSuccessAt),
			LastFailureAt: models.TimestampPtr(u.LastFailureAt),
		}
		if u.LastError != "" {
			msg := u.LastError
			ps.Message = &msg
		}
		providers = append(providers, ps)
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:    healthStatus(h.registry.Overall()),
		Time:      models.Timestamp(h.now()),
		Providers: providers,
	})
}

func healthStatus(s resilience.HealthState) models.HealthStatus {
	switch s {
	case resilience.HealthFail:
		return models.HealthStatusFail
	case resilience.HealthDegraded:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}
