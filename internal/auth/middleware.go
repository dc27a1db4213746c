package auth

import (
	"context"
	"net/http"

	"github.com/lmoretti/pawfinder/internal/model"
)

// CallerResolver answers "who is making this request" given a raw session
// identifier. Implemented by the auth service; declared here so the
// middleware doesn't depend on the service package.
type CallerResolver interface {
	// ResolveCaller returns nil for anonymous or invalid sessions.
	// It never fails — callers decide whether anonymity is acceptable.
	ResolveCaller(ctx context.Context, sessionID string) *model.User
}

// contextKey is an unexported type for context keys in this package.
//
// context.WithValue keys are compared by type and value; a package-private
// type guarantees no other package can read or shadow the caller entry.
type contextKey int

const callerKey contextKey = 0

// RequireAuth enforces authentication on protected routes.
//
// It extracts the session cookie, resolves the caller, and stores the user
// in the request context. Anonymous or invalid sessions get 401 and the
// chain stops. Note the response is identical for "no cookie", "expired
// session", and "unknown session" — no state is leaked.
func RequireAuth(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := resolve(r, resolver)
			if caller == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthenticated","message":"authentication required"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// OptionalAuth resolves the caller if a valid session is present but never
// blocks the request. Use it on public routes where logged-in users see the
// same data, attributed (e.g. listing creation date vs "yours").
func OptionalAuth(resolver CallerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if caller := resolve(r, resolver); caller != nil {
				r = r.WithContext(WithCaller(r.Context(), caller))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithCaller returns a context carrying the authenticated user.
func WithCaller(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, callerKey, user)
}

// CallerFromContext retrieves the authenticated user from the request
// context. Returns nil for anonymous requests.
func CallerFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(callerKey).(*model.User)
	return user
}

func resolve(r *http.Request, resolver CallerResolver) *model.User {
	sessionID, ok := SessionFromRequest(r)
	if !ok {
		return nil
	}
	return resolver.ResolveCaller(r.Context(), sessionID)
}
