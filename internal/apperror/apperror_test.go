package apperror

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
	}{
		{"email taken", EmailTaken(), ErrEmailTaken},
		{"weak password", WeakPassword(), ErrWeakPassword},
		{"disposable email", DisposableEmail(), ErrDisposableEmail},
		{"invalid credentials", InvalidCredentials(), ErrInvalidCredentials},
		{"unauthenticated", Unauthenticated(), ErrUnauthenticated},
		{"forbidden", Forbidden(), ErrForbidden},
		{"not found", NotFound("user", "u1"), ErrNotFound},
		{"validation", ValidationFailed("email", "bad"), ErrValidation},
		{"transient", Transient(errors.New("db busy")), ErrTransient},
		{"hashing", Hashing(errors.New("no entropy")), ErrHashing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", tt.err)
			}
			// Matching must survive another layer of wrapping, since
			// services wrap with fmt.Errorf("...: %w", err).
			wrapped := fmt.Errorf("outer context: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("errors.Is through wrap = false for %v", tt.err)
			}
			var appErr *AppError
			if !errors.As(wrapped, &appErr) {
				t.Errorf("errors.As through wrap = false for %v", tt.err)
			}
		})
	}
}

func TestTransient_PreservesCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := Transient(cause)

	if !errors.Is(err, cause) {
		t.Error("Transient() lost its cause")
	}
	if !errors.Is(err, ErrTransient) {
		t.Error("Transient() lost the sentinel")
	}
}

func TestInvalidCredentials_UniformMessage(t *testing.T) {
	// Two different failures must produce byte-identical client-facing
	// errors — the enumeration-resistance contract.
	wrongPassword := InvalidCredentials()
	noSuchAccount := InvalidCredentials()

	if wrongPassword.Error() != noSuchAccount.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword.Error(), noSuchAccount.Error())
	}
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(noSuchAccount, ErrInvalidCredentials) {
		t.Error("both must match ErrInvalidCredentials")
	}
}

func TestMessagesAreNonSpecific(t *testing.T) {
	// Auth failure messages must not name the store, the constraint, or
	// internals of any kind.
	for _, e := range []*AppError{InvalidCredentials(), Unauthenticated(), Forbidden(), Transient(errors.New("UNIQUE constraint failed: users.email"))} {
		msg := e.Error()
		for _, leak := range []string{"sql", "sqlite", "constraint", "UNIQUE"} {
			if strings.Contains(msg, leak) {
				t.Errorf("message %q leaks %q", msg, leak)
			}
		}
	}
}
