// Package service contains the business logic layer of the application.
//
// The layering follows the usual three-tier split:
//
//	Handler (HTTP)    → parses requests, writes responses, sets cookies
//	Service (rules)   → validates, enforces policy, orchestrates
//	Repository (data) → reads/writes the database
//
// AuthService is the security boundary of the whole application: it owns
// registration, login, logout, and "who is calling" resolution. The five
// exported operations here plus auth.Authorize are the only symbols the
// page/CRUD layer may use — nothing outside this subsystem reads or writes
// Credential or Session records directly.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lmoretti/pawfinder/internal/apperror"
	"github.com/lmoretti/pawfinder/internal/auth"
	"github.com/lmoretti/pawfinder/internal/model"
	"github.com/lmoretti/pawfinder/internal/repository"
)

// loginKeyPrefix derives the credential key from the login method and the
// normalized email: "email:ada@example.com".
const loginKeyPrefix = "email:"

// transientRetryDelay is the single backoff before the one retry allowed on
// a transient store failure. One retry only — more would mask an outage.
const transientRetryDelay = 50 * time.Millisecond

// AuthConfig is the policy surface of the auth service. All of it arrives
// from startup configuration, none of it is compiled in.
type AuthConfig struct {
	SessionLifetime   time.Duration
	CommonPasswords   []string // rejected case-insensitively at registration
	DisposableDomains []string // rejected email domains
}

// AuthService orchestrates registration, login, logout, and caller
// resolution over the user and session stores.
type AuthService struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	passwords *auth.PasswordService
	logger    *slog.Logger

	lifetime          time.Duration
	commonPasswords   map[string]struct{}
	disposableDomains map[string]struct{}

	// decoyHash is verified against when a login hits an unknown email, so
	// the request costs one Argon2 computation either way. Without it, the
	// fast "no such credential" path would let an attacker enumerate
	// accounts by timing.
	decoyHash string
}

// NewAuthService creates an AuthService. It pre-computes the decoy hash so
// the timing-equalization path never allocates at request time.
func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	passwords *auth.PasswordService,
	cfg AuthConfig,
	logger *slog.Logger,
) (*AuthService, error) {
	decoy, err := passwords.Hash("pawfinder-decoy-password")
	if err != nil {
		return nil, err
	}

	s := &AuthService{
		users:             users,
		sessions:          sessions,
		passwords:         passwords,
		logger:            logger,
		lifetime:          cfg.SessionLifetime,
		commonPasswords:   make(map[string]struct{}, len(cfg.CommonPasswords)),
		disposableDomains: make(map[string]struct{}, len(cfg.DisposableDomains)),
		decoyHash:         decoy,
	}
	for _, p := range cfg.CommonPasswords {
		s.commonPasswords[strings.ToLower(p)] = struct{}{}
	}
	for _, d := range cfg.DisposableDomains {
		s.disposableDomains[strings.ToLower(d)] = struct{}{}
	}
	return s, nil
}

// AuthResult bundles the user and the issued session so the HTTP handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User    *model.User
	Session *model.Session
}

// Register creates a new account and logs it in.
//
// Policy checks run in order: weak password, disposable domain, email
// taken. The taken-email pre-check gives a friendly fast path, but the
// store's unique constraints remain the real enforcement — a concurrent
// duplicate registration loses inside CreateWithCredential and surfaces as
// the same EmailTaken. User and Credential are written atomically; the
// denylist checks happen before any store write.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	if _, ok := s.commonPasswords[strings.ToLower(password)]; ok {
		return nil, apperror.WeakPassword()
	}
	if _, ok := s.disposableDomains[emailDomain(email)]; ok {
		return nil, apperror.DisposableEmail()
	}

	loginKey := loginKeyPrefix + email
	if _, err := s.users.GetCredentialByLoginKey(ctx, loginKey); err == nil {
		return nil, apperror.EmailTaken()
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Email: email}
	cred := &model.Credential{
		LoginKey:     loginKey,
		PasswordHash: hash,
		Primary:      true,
	}
	err = s.withRetry(ctx, "register", func() error {
		return s.users.CreateWithCredential(ctx, user, cred)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrEmailTaken) {
			// Lost the race; indistinguishable from the pre-check result.
			return nil, apperror.EmailTaken()
		}
		return nil, err
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Session: session}, nil
}

// Login verifies an email/password pair and issues a session.
//
// ENUMERATION RESISTANCE: every failure — unknown email, corrupt hash,
// wrong password — collapses into the one InvalidCredentials value, and the
// unknown-email path still performs a full verification against the decoy
// hash so its timing matches the known-email path.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)

	cred, err := s.users.GetCredentialByLoginKey(ctx, loginKeyPrefix+email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Burn the same hashing cost as a real verification.
			s.passwords.Verify(s.decoyHash, password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, err
	}

	if !s.passwords.Verify(cred.PasswordHash, password) {
		s.logger.Info("login failed", slog.String("userID", cred.UserID))
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.GetUserByID(ctx, cred.UserID)
	if err != nil {
		// Can't happen while CreateWithCredential is the only writer, but
		// don't leak the anomaly to the caller.
		s.logger.Error("credential without user",
			slog.String("userID", cred.UserID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.InvalidCredentials()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &AuthResult{User: user, Session: session}, nil
}

// Logout terminates a session. Never fails for an already-gone session —
// invalidation is idempotent end to end. The handler emits the blank cookie
// regardless of what happened here.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := s.withRetry(ctx, "logout", func() error {
		return s.sessions.Invalidate(ctx, sessionID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("session invalidated")
	return nil
}

// ResolveCaller is the single entry point every page and action uses to
// learn who is asking. Anonymous, expired, invalidated, and malformed
// sessions all come back as nil — this function never rejects; the caller
// decides whether anonymity is acceptable.
func (s *AuthService) ResolveCaller(ctx context.Context, sessionID string) *model.User {
	if sessionID == "" {
		return nil
	}
	user, err := s.sessions.Validate(ctx, sessionID)
	if err != nil {
		// Store trouble reads as anonymous rather than a 500 on every
		// page; the cause is logged for the operator.
		s.logger.Error("session validation failed", slog.String("error", err.Error()))
		return nil
	}
	return user
}

var _ auth.CallerResolver = (*AuthService)(nil)

func (s *AuthService) createSession(ctx context.Context, userID string) (*model.Session, error) {
	var session *model.Session
	err := s.withRetry(ctx, "create session", func() error {
		var err error
		session, err = s.sessions.Create(ctx, userID, s.lifetime)
		return err
	})
	return session, err
}

// withRetry runs op, retrying exactly once after a short backoff when the
// failure is transient. Hashing errors and policy errors never get here.
func (s *AuthService) withRetry(ctx context.Context, opName string, op func() error) error {
	err := op()
	if err == nil || !errors.Is(err, apperror.ErrTransient) {
		return err
	}

	s.logger.Warn("transient store failure, retrying once",
		slog.String("op", opName),
		slog.String("error", err.Error()),
	)
	select {
	case <-time.After(transientRetryDelay):
	case <-ctx.Done():
		return err
	}
	return op()
}

// normalizeEmail trims and lowercases. Every lookup and every insert goes
// through this, so "A@X.com " and "a@x.com" are the same account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailDomain returns the lowercased part after the last '@', or "" when
// there is none. Format validation proper is the presentation layer's job.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
