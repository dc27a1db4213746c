package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lmoretti/pawfinder/internal/auth"
	"github.com/lmoretti/pawfinder/internal/model"
	"github.com/lmoretti/pawfinder/internal/repository"
)

// SessionDB implements repository.SessionRepository.
//
// A session row exists only while the session is ACTIVE (or recently
// expired and not yet swept). Invalidation deletes the row, so a terminated
// session can never validate again — there is no state to flip back.
type SessionDB struct {
	db       *DB
	lifetime time.Duration
}

var _ repository.SessionRepository = (*SessionDB)(nil)

// createAttempts bounds identifier regeneration. With 256-bit tokens a
// collision is astronomically unlikely; the loop exists so the PRIMARY KEY
// stays the enforcement point rather than wishful thinking.
const createAttempts = 3

// Create issues a fresh session for userID.
func (s *SessionDB) Create(ctx context.Context, userID string, lifetime time.Duration) (*model.Session, error) {
	if lifetime <= 0 {
		lifetime = s.lifetime
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		token, err := auth.NewSessionToken()
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		session := &model.Session{
			ID:        token,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(lifetime),
		}

		_, err = s.db.conn.ExecContext(ctx,
			`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			session.ID, session.UserID, session.CreatedAt, session.ExpiresAt,
		)
		if err == nil {
			return session, nil
		}
		if !isUniqueViolation(err) {
			return nil, wrapStoreErr("inserting session", err)
		}
		// Token collision: regenerate and try again.
		lastErr = err
	}
	return nil, wrapStoreErr("inserting session after retries", lastErr)
}

// Validate looks up an active session and returns its user.
//
// Returns (nil, nil) — anonymous, not an error — when the session is
// absent, invalidated, or expired. The expiry comparison happens in SQL so
// an expired-but-unswept row behaves exactly like a deleted one.
//
// SLIDING EXPIRATION: when less than half the lifetime remains, the window
// is extended to a full lifetime from now. Renewing only past the halfway
// mark means steady traffic costs ~2 writes per lifetime instead of one
// per request.
func (s *SessionDB) Validate(ctx context.Context, sessionID string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		user      model.User
		expiresAt time.Time
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.created_at, s.expires_at
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.id = ? AND s.expires_at > ?`,
		sessionID, time.Now().UTC(),
	).Scan(&user.ID, &user.Email, &user.CreatedAt, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrapStoreErr("validating session", err)
	}

	if time.Until(expiresAt) < s.lifetime/2 {
		newExpiry := time.Now().UTC().Add(s.lifetime)
		// Single atomic UPDATE; the guard on expires_at keeps a
		// concurrent invalidate from being undone.
		_, err = s.db.conn.ExecContext(ctx,
			`UPDATE sessions SET expires_at = ? WHERE id = ? AND expires_at > ?`,
			newExpiry, sessionID, time.Now().UTC(),
		)
		if err != nil {
			return nil, wrapStoreErr("extending session", err)
		}
	}

	return &user, nil
}

// Invalidate terminates a session by deleting its row.
//
// Idempotent: deleting an unknown or already-deleted identifier affects
// zero rows, which is success — the terminal state holds either way.
func (s *SessionDB) Invalidate(ctx context.Context, sessionID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return wrapStoreErr("invalidating session", err)
	}
	return nil
}

// DeleteExpired sweeps sessions past their expiry and returns the count.
func (s *SessionDB) DeleteExpired(ctx context.Context) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := s.db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, wrapStoreErr("sweeping expired sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting swept sessions: %w", err)
	}
	return n, nil
}
