package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionTokenBytes gives 256 bits of entropy — double the usual 128-bit
// floor for unguessable identifiers, and cheap at this size.
const sessionTokenBytes = 32

// NewSessionToken returns a cryptographically random, URL-safe session
// identifier. The token is the bearer secret: treat it like a password and
// keep it out of logs.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
