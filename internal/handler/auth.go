package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/lmoretti/pawfinder/internal/apperror"
	"github.com/lmoretti/pawfinder/internal/auth"
	"github.com/lmoretti/pawfinder/internal/model"
	"github.com/lmoretti/pawfinder/internal/service"
)

// AuthHandler exposes registration, login, logout, and the current-user
// endpoint over JSON.
//
// The handler owns everything HTTP about authentication — parsing bodies,
// input-shape validation, and the session cookie — while the service owns
// the security policy. The cookie codec is the single component that knows
// the session travels as a cookie.
type AuthHandler struct {
	authSvc *service.AuthService
	cookies *auth.CookieCodec
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, cookies *auth.CookieCodec, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
		cookies: cookies,
		logger:  logger,
	}
}

// credentialsRequest is the body of both register and login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse is what authenticated endpoints return about a user.
// Only id and email — nothing credential- or session-shaped ever leaves.
type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email}
}

// HandleRegister creates an account and logs it in.
//
// HTTP: POST /api/auth/register
//
// Email-format and password-shape checks happen here (presentation-layer
// validation); the security policy checks — taken email, common password,
// disposable domain — live in the service where every caller gets them.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if err := validateRegistration(req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.authSvc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, h.cookies.SessionCookie(result.Session.ID, result.Session.ExpiresAt))
	writeJSON(w, http.StatusCreated, toUserResponse(result.User))
}

// HandleLogin verifies credentials and issues a session.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		// Same error value as a wrong password: the login surface gives
		// one answer to every failure.
		writeError(w, apperror.InvalidCredentials())
		return
	}

	result, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, h.cookies.SessionCookie(result.Session.ID, result.Session.ExpiresAt))
	writeJSON(w, http.StatusOK, toUserResponse(result.User))
}

// HandleLogout invalidates the current session and blanks the cookie.
//
// HTTP: POST /api/auth/logout
//
// POST, not GET: logout changes state, and GET would be prefetchable and
// CSRF-able. The blank cookie goes out even when there was no session to
// invalidate — logout never fails.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := auth.SessionFromRequest(r); ok {
		if err := h.authSvc.Logout(r.Context(), sessionID); err != nil {
			// Transport-level trouble invalidating; the cookie still gets
			// blanked, and the sweep will collect the row eventually.
			h.logger.Error("logout failed", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, h.cookies.BlankSessionCookie())
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated caller's profile.
//
// HTTP: GET /api/me (behind RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFromContext(r.Context())
	if caller == nil {
		// Unreachable behind RequireAuth, but don't assume the route table.
		writeError(w, apperror.Unauthenticated())
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(caller))
}

// validateRegistration checks input shape: a parseable address of sane
// length and a password meeting the complexity floor. These mirror the
// registration form's client-side rules.
func validateRegistration(req credentialsRequest) error {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > 254 {
		return apperror.ValidationFailed("email", "email is too long")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperror.ValidationFailed("email", "invalid email address")
	}

	if len(req.Password) < 8 {
		return apperror.ValidationFailed("password", "password must be at least 8 characters")
	}
	if len(req.Password) > 72 {
		return apperror.ValidationFailed("password", "password is too long")
	}
	var lower, upper, digit, symbol bool
	for _, c := range req.Password {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	if !lower || !upper || !digit || !symbol {
		return apperror.ValidationFailed("password",
			"password needs lower and upper case letters, a digit, and a symbol")
	}
	return nil
}
