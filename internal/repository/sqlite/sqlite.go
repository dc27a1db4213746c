// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// We use modernc.org/sqlite (a pure-Go translation of SQLite) rather than
// the CGo driver: no C compiler needed, trivial cross-compilation, and
// ":memory:" databases make repository tests fast and hermetic.
//
// CONCURRENCY:
// The deployment model is many simultaneous requests against one store.
// WAL mode lets reads proceed during writes, and every check-then-write
// invariant (email uniqueness, session identifier uniqueness) is enforced
// by a UNIQUE constraint or primary key — never by application-level
// read-then-write, which would race across requests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// queryTimeout bounds every store round-trip. Past it the operation
// surfaces as a transient failure instead of hanging a request.
const queryTimeout = 5 * time.Second

// DB wraps a sql.DB connection pool and provides the repository
// implementations via Users(), Sessions(), and Listings().
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// database/sql pools connections, and every new connection to
	// ":memory:" would get its own empty database. Pin the pool to one
	// connection so tests see a single store.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Force an immediate connection so a bad path fails here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — required
	// for a multi-request web server on a single SQLite file.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite; sessions, credentials and
	// listings all reference users, so turn them on.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer it next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Users returns the user/credential repository backed by this DB.
func (db *DB) Users() *UserDB { return &UserDB{db: db} }

// Sessions returns the session repository backed by this DB.
// lifetime is the validity window applied at creation and on sliding
// renewal.
func (db *DB) Sessions(lifetime time.Duration) *SessionDB {
	return &SessionDB{db: db, lifetime: lifetime}
}

// Listings returns the listing repository backed by this DB.
func (db *DB) Listings() *ListingDB { return &ListingDB{db: db} }

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it
// idempotent, which is all a single-file deployment needs.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			email      TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS credentials (
			login_key     TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL REFERENCES users(id),
			password_hash TEXT NOT NULL,
			is_primary    INTEGER NOT NULL DEFAULT 1,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_credentials_user_id ON credentials(user_id);

		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

		CREATE TABLE IF NOT EXISTS listings (
			id          TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL REFERENCES users(id),
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			animal_type TEXT NOT NULL,
			status      TEXT NOT NULL,
			city        TEXT NOT NULL DEFAULT '',
			latitude    REAL NOT NULL DEFAULT 0,
			longitude   REAL NOT NULL DEFAULT 0,
			photo_url   TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_listings_user_id ON listings(user_id);
		CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
		CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// withTimeout applies the store-level request timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE/PRIMARY KEY
// constraint failure. This is how "insert, fail on duplicate" is detected —
// the database is the arbiter of uniqueness races, not a prior SELECT.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// isTransient reports whether err is worth a single retry at the service
// boundary: lock contention, or a store round-trip that hit the timeout.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		// Mask to the primary result code — BUSY/LOCKED have extended
		// variants (e.g. SQLITE_BUSY_SNAPSHOT).
		code := serr.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}
