package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth and listings subsystems.
//
// Handlers map these to HTTP status codes with errors.Is; services wrap them
// in an *AppError carrying the short user-facing message. Internal detail
// (which constraint fired, the underlying driver error) stays in logs and
// never reaches the client — InvalidCredentials in particular is a single
// generic value so responses cannot be used to enumerate accounts.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrEmailTaken         = errors.New("email taken")
	ErrWeakPassword       = errors.New("weak password")
	ErrDisposableEmail    = errors.New("disposable email domain")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrTransient          = errors.New("transient store failure")
	ErrHashing            = errors.New("hashing failure")
)

type AppError struct {
	Err     error  // sentinel (for errors.Is matching)
	Message string // short, non-specific, safe to echo to the client
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// EmailTaken is returned when registration hits an existing credential for
// the same normalized email, whether via the pre-check or the store's
// unique constraint during a race.
func EmailTaken() *AppError {
	return &AppError{
		Err:     ErrEmailTaken,
		Message: "email already registered",
		Field:   "email",
	}
}

func WeakPassword() *AppError {
	return &AppError{
		Err:     ErrWeakPassword,
		Message: "password is too common",
		Field:   "password",
	}
}

func DisposableEmail() *AppError {
	return &AppError{
		Err:     ErrDisposableEmail,
		Message: "email domain not accepted",
		Field:   "email",
	}
}

// InvalidCredentials is the single error for every login failure — unknown
// email, missing hash, wrong password. One value, one message, so neither
// the response body nor its shape reveals whether the account exists.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

// Forbidden deliberately carries no resource detail: a denied probe learns
// nothing beyond what an anonymous read already exposes.
func Forbidden() *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: "not permitted",
	}
}

// Transient marks a store failure that is safe to retry once with backoff.
// The cause is preserved in the chain for logging but never echoed.
func Transient(err error) *AppError {
	wrapped := ErrTransient
	if err != nil {
		wrapped = fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return &AppError{
		Err:     wrapped,
		Message: "temporarily unavailable, try again",
	}
}

// Hashing marks a password-hashing failure. Non-retryable: it signals
// resource exhaustion or misconfiguration, never bad input.
func Hashing(err error) *AppError {
	wrapped := ErrHashing
	if err != nil {
		wrapped = fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return &AppError{
		Err:     wrapped,
		Message: "internal error",
	}
}
