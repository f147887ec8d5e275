package handlers

import (
	"net/http"
	"time"

	"github.com/nodegate/nodegate/app"
	"github.com/nodegate/nodegate/utils"
)

// HealthCheck returns a simple liveness check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck reports whether enough healthy upstreams exist to serve
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthy := deps.Health.HealthyCount()

		response := map[string]interface{}{
			"status": "ready",
			"checks": map[string]interface{}{
				"providers_configured": deps.Registry.Count(),
				"providers_healthy":    healthy,
			},
		}

		httpStatus := http.StatusOK
		if healthy == 0 {
			response["status"] = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		respondJSON(w, httpStatus, response)
	}
}

// ProviderHealthResponse is the body of GET /api/v1/providers/health
type ProviderHealthResponse struct {
	Timestamp string      `json:"timestamp"`
	Healthy   int         `json:"healthy"`
	Total     int         `json:"total"`
	Providers interface{} `json:"providers"`
}

// ProviderHealthHandler reports the per-provider health snapshot
func ProviderHealthHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Health.Snapshot()

		_ = utils.WriteOK(w, ProviderHealthResponse{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Healthy:   deps.Health.HealthyCount(),
			Total:     len(snap),
			Providers: snap,
		})
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"version":     "0.1.0",
			"environment": deps.Config.Environment,
			"providers":   deps.Registry.Names(),
		})
	}
}
