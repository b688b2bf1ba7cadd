package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"driva/apperr"
)

// writeJSON renders v with the given status. Encoding failures are silent;
// by then the status line is already on the wire.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler emits the same JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status, code = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperr.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, apperr.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, apperr.ErrStorage):
		status, code = http.StatusBadGateway, "storage_error"
	case errors.Is(err, apperr.ErrInvitation):
		status, code = http.StatusBadGateway, "invitation_error"
	case errors.Is(err, apperr.ErrNotification):
		status, code = http.StatusBadGateway, "notification_error"
	case errors.Is(err, apperr.ErrPartial):
		status, code = http.StatusInternalServerError, "partial_failure"
	}
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": err.Error(),
	})
}
