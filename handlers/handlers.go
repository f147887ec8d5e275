package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nodegate/nodegate/services"
)

// Common error response structure
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Common success response structure
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, statusCode int, err string, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// respondDomainError maps a service error to its HTTP representation
func respondDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch services.GetErrorType(err) {
	case services.ErrorTypeValidation:
		status = http.StatusBadRequest
		code = "validation_error"
	case services.ErrorTypeConflict:
		status = http.StatusConflict
		code = "conflict"
	case services.ErrorTypeTimeout:
		status = http.StatusGatewayTimeout
		code = "deadline_exceeded"
	case services.ErrorTypeExhausted:
		status = http.StatusBadGateway
		code = "upstream_exhausted"
	case services.ErrorTypeUpstream:
		status = http.StatusBadGateway
		code = "upstream_error"
	}

	respondJSON(w, status, ErrorResponse{
		Error:   code,
		Message: err.Error(),
		Details: services.GetErrorDetails(err),
	})
}
