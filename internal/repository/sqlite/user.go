package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/lmoretti/pawfinder/internal/apperror"
	"github.com/lmoretti/pawfinder/internal/model"
	"github.com/lmoretti/pawfinder/internal/repository"
)

// UserDB implements repository.UserRepository.
type UserDB struct {
	db *DB
}

var _ repository.UserRepository = (*UserDB)(nil)

// CreateWithCredential persists a new user and their credential in a single
// transaction.
//
// ATOMICITY: if the credential insert fails, the transaction rolls back and
// the user row disappears with it — no orphan users without credentials.
//
// RACES: two concurrent registrations of the same email both reach the
// INSERT; the UNIQUE constraint on users.email (and the credentials primary
// key) guarantees exactly one wins. The loser gets apperror.ErrEmailTaken,
// same as the non-racing duplicate case.
func (u *UserDB) CreateWithCredential(ctx context.Context, user *model.User, cred *model.Credential) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := u.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreErr("beginning registration transaction", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	cred.UserID = user.ID
	cred.CreatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)`,
		user.ID, user.Email, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.EmailTaken()
		}
		return wrapStoreErr("inserting user", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (login_key, user_id, password_hash, is_primary, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		cred.LoginKey, cred.UserID, cred.PasswordHash, cred.Primary, cred.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.EmailTaken()
		}
		return wrapStoreErr("inserting credential", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return apperror.EmailTaken()
		}
		return wrapStoreErr("committing registration", err)
	}
	return nil
}

// GetUserByID retrieves a user by internal ID.
func (u *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var user model.User
	err := u.db.conn.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE id = ?`, id,
	).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, wrapStoreErr(fmt.Sprintf("getting user %s", id), err)
	}
	return &user, nil
}

// GetCredentialByLoginKey retrieves the credential for a derived login key
// (e.g. "email:ada@example.com").
func (u *UserDB) GetCredentialByLoginKey(ctx context.Context, loginKey string) (*model.Credential, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var cred model.Credential
	err := u.db.conn.QueryRowContext(ctx,
		`SELECT login_key, user_id, password_hash, is_primary, created_at
		 FROM credentials WHERE login_key = ?`,
		loginKey,
	).Scan(&cred.LoginKey, &cred.UserID, &cred.PasswordHash, &cred.Primary, &cred.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("credential", loginKey)
		}
		return nil, wrapStoreErr("getting credential", err)
	}
	return &cred, nil
}

// wrapStoreErr classifies a driver error: lock contention and timeouts
// become retryable transient failures, everything else is wrapped as-is.
func wrapStoreErr(op string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("sqlite: %s: %w", op, apperror.Transient(err))
	}
	return fmt.Errorf("sqlite: %s: %w", op, err)
}
