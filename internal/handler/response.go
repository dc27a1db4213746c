package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lmoretti/pawfinder/internal/apperror"
)

// ErrorResponse is the standard error shape returned by all API endpoints.
//
// The message is always the short, non-specific one carried by the
// AppError; internal distinctions (which constraint fired, driver errors)
// stay in server logs. All authentication failures share one error type and
// one message, so the response itself can't be used to probe for accounts.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sends a JSON response. Headers and status go out before the
// body; encode failures can only be logged at that point.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends the standard
// error shape. This is the only place domain errors meet HTTP codes — the
// service layer stays transport-free.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrWeakPassword):
			status = http.StatusBadRequest
			errorType = "weak_password"
		case errors.Is(err, apperror.ErrDisposableEmail):
			status = http.StatusBadRequest
			errorType = "disposable_email"
		case errors.Is(err, apperror.ErrInvalidCredentials):
			status = http.StatusUnauthorized
			errorType = "invalid_credentials"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthenticated"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrEmailTaken):
			status = http.StatusConflict
			errorType = "email_taken"
		case errors.Is(err, apperror.ErrTransient):
			status = http.StatusServiceUnavailable
			errorType = "temporarily_unavailable"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error: generic 500, no internal detail in the body.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}
