package repository

import (
	"context"
	"time"

	"github.com/lmoretti/pawfinder/internal/model"
)

// UserRepository persists users and their credentials.
//
// CreateWithCredential is the only way a user comes into existence: the user
// row and its credential row are written in one atomic unit, so a User can
// never be left without a matching Credential. Uniqueness of the email and
// the login key is enforced by the store's constraints — concurrent
// registrations of the same email resolve there, not by check-then-act in
// application code.
type UserRepository interface {
	// CreateWithCredential atomically persists a new user and credential.
	// Returns apperror.ErrEmailTaken when either unique constraint fires.
	CreateWithCredential(ctx context.Context, user *model.User, cred *model.Credential) error

	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// GetCredentialByLoginKey returns apperror.ErrNotFound when no
	// credential exists for the key.
	GetCredentialByLoginKey(ctx context.Context, loginKey string) (*model.Credential, error)
}

// SessionRepository is the durable session store.
//
// A session is ACTIVE until its expiry passes (EXPIRED) or it is explicitly
// invalidated (INVALIDATED). Both states are terminal: Validate never
// returns a session that has left ACTIVE, and nothing resurrects one.
type SessionRepository interface {
	// Create persists a fresh session for userID with the given lifetime.
	// Identifier uniqueness is a store-level invariant.
	Create(ctx context.Context, userID string, lifetime time.Duration) (*model.Session, error)

	// Validate returns the user bound to an active session, or (nil, nil)
	// when the session is absent, expired, or invalidated. It may extend
	// the expiry window (sliding expiration).
	Validate(ctx context.Context, sessionID string) (*model.User, error)

	// Invalidate terminates a session. Idempotent: unknown or already-dead
	// identifiers are not an error.
	Invalidate(ctx context.Context, sessionID string) error

	// DeleteExpired removes sessions past their expiry. Housekeeping only;
	// Validate already treats them as dead.
	DeleteExpired(ctx context.Context) (int64, error)
}

// ListOptions is shared pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// ListingFilter narrows public listing queries. Zero values mean "any".
type ListingFilter struct {
	Status     string
	AnimalType string
	City       string
}

// ListingRepository persists lost/found pet listings.
type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	List(ctx context.Context, filter ListingFilter, opts ListOptions) ([]model.Listing, error)
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Listing, error)
	Update(ctx context.Context, listing *model.Listing) error
	Delete(ctx context.Context, id string) error
}
