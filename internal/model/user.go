// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// The email is the login identifier and is always stored trimmed and
// lowercased — normalization happens before any lookup or insert, and the
// UNIQUE constraint on users.email makes the store the final arbiter when
// two registrations race.
//
// This subsystem never mutates or deletes a User after creation.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Email     string    `json:"email"     db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Credential is the durable proof that a user controls a login method.
//
// LoginKey is derived deterministically from the method and the normalized
// identifier — for email+password it is "email:" + email. Keeping the method
// prefix in the key leaves room for other credential kinds later without a
// schema change.
//
// PasswordHash is an Argon2id PHC string. The plaintext is never stored, and
// the hash is never logged or returned to clients.
type Credential struct {
	LoginKey     string    `db:"login_key"`
	UserID       string    `db:"user_id"`
	PasswordHash string    `db:"password_hash"`
	Primary      bool      `db:"is_primary"`
	CreatedAt    time.Time `db:"created_at"`
}

// Session is a live authentication grant.
//
// ID is an opaque token with 256 bits of entropy — it is the bearer secret,
// so it never appears in logs. A session resolves to exactly one user until
// it expires or is invalidated; both states are terminal.
type Session struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
