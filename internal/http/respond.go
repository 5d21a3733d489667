package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hucha/internal/core"
	"hucha/internal/ledger"
	applog "hucha/internal/log"
	"hucha/internal/recurrence"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// respondError maps domain errors onto the HTTP taxonomy: validation
// failures to 400, not-found (or not owned) to 404, anything else to 500
// with the underlying message as details.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", "")
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, "invalid data", err.Error())
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

var validationSentinels = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidDay,
	core.ErrInvalidDate,
	core.ErrInvalidType,
	core.ErrInvalidCategory,
	core.ErrInvalidCourse,
	core.ErrInvalidMonth,
	core.ErrInvalidDescription,
	core.ErrInvalidWeekday,
	core.ErrInvalidRecipe,
	core.ErrEmptyDescription,
	core.ErrEmptyName,
	core.ErrEmptyAccount,
	ledger.ErrBadTransferDescription,
	recurrence.ErrInvalidRule,
}

func isValidationError(err error) bool {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}
