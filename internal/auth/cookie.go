package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the only cookie this subsystem reads or writes.
const SessionCookieName = "session"

// CookieCodec is the session transport: it is the one component that knows
// the session identifier travels in a cookie, and what attributes that
// cookie carries. Everything else handles bare identifiers.
//
// COOKIE ATTRIBUTES:
//   - HttpOnly: page scripts can't read the token, so XSS can't steal it.
//   - SameSite=Lax: sent on top-level navigations, withheld on cross-site
//     POSTs — the baseline CSRF posture.
//   - Path=/: one session for the whole application.
//   - Secure: from configuration, forced on when serving over TLS.
type CookieCodec struct {
	secure bool
}

// NewCookieCodec creates a CookieCodec. secure should be true whenever the
// app is served over an encrypted transport.
func NewCookieCodec(secure bool) *CookieCodec {
	return &CookieCodec{secure: secure}
}

// SessionCookie encodes a session identifier for Set-Cookie. The cookie
// expiry mirrors the session's own so the browser drops it when the grant
// lapses (the server re-checks expiry regardless).
func (c *CookieCodec) SessionCookie(sessionID string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// BlankSessionCookie returns the logout cookie: empty value, past expiry.
// It explicitly overwrites the previous cookie rather than relying on a
// client-side deletion hint, so old clients and intermediaries can't replay
// the prior value.
func (c *CookieCodec) BlankSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionFromRequest extracts the raw session identifier from the incoming
// request. A missing cookie is not an error — it signals an anonymous
// caller, so ok is simply false.
func SessionFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
