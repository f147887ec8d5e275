package handlers

import (
	"net/http"
	"strconv"

	"github.com/nodegate/nodegate/app"
	"github.com/nodegate/nodegate/utils"
)

// LatencyStatsHandler reports per-stage latency statistics. With a ?stage=
// query parameter it returns that stage only, otherwise all stages.
func LatencyStatsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stage := r.URL.Query().Get("stage"); stage != "" {
			stats, ok := deps.Tracer.Stats(stage)
			if !ok {
				respondError(w, http.StatusNotFound, "no_data", "no samples recorded for stage "+stage)
				return
			}
			_ = utils.WriteOK(w, stats)
			return
		}

		_ = utils.WriteOK(w, deps.Tracer.AllStats())
	}
}

// LatencySummaryHandler reports the pipeline latency summary against the
// configured target. A ?target_us= query parameter overrides the target.
func LatencySummaryHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := deps.Config.Latency.TargetTotalUs
		if raw := r.URL.Query().Get("target_us"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed <= 0 {
				_ = utils.WriteBadRequest(w, "target_us must be a positive number", nil)
				return
			}
			target = parsed
		}

		_ = utils.WriteOK(w, deps.Tracer.Summary(target))
	}
}
