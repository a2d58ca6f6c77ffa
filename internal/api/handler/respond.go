package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scribeworks/vidscribe/internal/domain"
)

// errorResponse is the JSON envelope for failed requests.
type errorResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Logs    []string `json:"logs,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, logs []string) {
	writeJSON(w, statusFromError(err), errorResponse{
		Status:  "error",
		Message: err.Error(),
		Logs:    logs,
	})
}

// statusFromError maps domain error classes onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGenerationFiltered):
		// A different prompt may pass the safety filters, so this is a
		// caller problem rather than a server one.
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGenerationTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
