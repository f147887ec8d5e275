package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nodegate/nodegate/app"
	"github.com/nodegate/nodegate/services/providers"
	"github.com/nodegate/nodegate/services/router"
	"github.com/nodegate/nodegate/utils"
)

// ExecuteRequest is the body of POST /api/v1/execute
type ExecuteRequest struct {
	Stage   string          `json:"stage" validate:"required"`
	Kind    string          `json:"kind" validate:"required,oneof=rpc userOp bundle"`
	Payload json.RawMessage `json:"payload" validate:"required"`
	CostWei uint64          `json:"cost_wei"`
}

// ExecuteHandler routes one logical call through the failover executor
func ExecuteHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}

		result, err := deps.Router.Execute(r.Context(), router.Request{
			Stage:   req.Stage,
			Kind:    providers.Capability(req.Kind),
			Payload: req.Payload,
			CostWei: req.CostWei,
		})
		if err != nil {
			respondDomainError(w, err)
			return
		}

		respondJSON(w, http.StatusOK, SuccessResponse{Data: result})
	}
}

// RelayCostsHandler reports the paymaster fee accounting since startup
func RelayCostsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, SuccessResponse{Data: deps.Router.RelayCostReport()})
	}
}
