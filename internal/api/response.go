package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/knjiznica/internal/workflow"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// workflowError maps the workflow error taxonomy to HTTP status codes.
// Every failed transition is all-or-nothing, so these are safe to retry.
func workflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, workflow.ErrNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrForbidden),
		errors.Is(err, workflow.ErrAccountNotActive):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, workflow.ErrOutOfStock),
		errors.Is(err, workflow.ErrInvalidState),
		errors.Is(err, workflow.ErrAlreadyExtended),
		errors.Is(err, workflow.ErrStaleState):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("workflow error", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
