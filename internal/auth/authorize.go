package auth

import "github.com/lmoretti/pawfinder/internal/model"

// Decision is the outcome of an ownership check.
type Decision int

const (
	// Allowed: the caller owns the resource.
	Allowed Decision = iota
	// DeniedUnauthenticated: nobody is logged in.
	DeniedUnauthenticated
	// DeniedForbidden: somebody is logged in, but not the owner.
	DeniedForbidden
)

// Authorize decides whether caller may mutate a resource owned by ownerID.
//
// It is a pure function with no state and no side effects. Every mutating
// entry point (create-with-attribution, update, delete) must call it before
// touching the store and treat anything but Allowed as a hard stop — no
// partial writes, and no leaking whether the resource exists beyond what an
// anonymous read already shows.
//
// Reads are intentionally NOT gated: listings are public.
func Authorize(caller *model.User, ownerID string) Decision {
	if caller == nil {
		return DeniedUnauthenticated
	}
	if caller.ID != ownerID {
		return DeniedForbidden
	}
	return Allowed
}
