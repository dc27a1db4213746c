// Package auth — password hashing, session cookies, and the ownership guard.
//
// WHY ARGON2ID?
// Argon2id is a memory-hard password hashing function: cracking it needs not
// just CPU time but a large amount of RAM per guess, which is exactly what
// GPU farms are short on. It won the Password Hashing Competition and is the
// current OWASP first choice.
//
// Each call generates a fresh random salt, so two users with the same
// password get different hashes. The salt and all parameters are embedded in
// the output (PHC string format), so verification is self-contained:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<base64 salt>$<base64 key>
//
// NEVER store passwords in plain text or with fast hashes (MD5, SHA-256) —
// those fall to GPU-accelerated guessing in minutes.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/lmoretti/pawfinder/internal/apperror"
)

// Production Argon2id parameters: 64 MiB of memory, 1 pass, 4 lanes.
// These follow the RFC 9106 "low-memory" recommendation and cost a few tens
// of milliseconds per hash on current server hardware — negligible for a
// login, brutal for an attacker.
const (
	defaultMemoryKiB = 64 * 1024
	defaultTime      = 1
	defaultThreads   = 4

	saltLength = 16
	keyLength  = 32

	// maxPasswordBytes bounds hashing cost per request. Argon2 has no
	// intrinsic limit (unlike bcrypt's 72), but we keep the same ceiling so
	// a multi-megabyte "password" can't be used to burn server time.
	maxPasswordBytes = 72
)

// PasswordService hashes and verifies passwords with Argon2id.
//
// It's a struct (not free functions) so the parameters can be injected:
// tests use a cheap profile, production uses the defaults above.
type PasswordService struct {
	memoryKiB uint32
	time      uint32
	threads   uint8
}

// NewPasswordService creates a PasswordService with production parameters.
func NewPasswordService() *PasswordService {
	return &PasswordService{
		memoryKiB: defaultMemoryKiB,
		time:      defaultTime,
		threads:   defaultThreads,
	}
}

// NewPasswordServiceForTest creates a PasswordService with deliberately weak
// parameters (8 MiB, single lane) so test suites don't spend their time in
// Argon2. Do NOT use in production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{
		memoryKiB: 8 * 1024,
		time:      1,
		threads:   1,
	}
}

// Hash hashes the given plaintext password with Argon2id and a fresh random
// salt, returning a self-contained PHC string.
//
// It fails only on oversized input or on salt generation — never on the
// content of the password. Any byte string up to 72 bytes hashes fine.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", maxPasswordBytes))
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		// Entropy source failure is an environment problem, not bad input.
		return "", apperror.Hashing(err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, p.time, p.memoryKiB, p.threads, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.memoryKiB, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify reports whether plaintext matches the stored PHC hash.
//
// It recomputes the key with the parameters embedded in the hash (not the
// service's own), so parameter upgrades don't break old records.
//
// TIMING SAFETY: the final comparison uses crypto/subtle's constant-time
// compare — no early exit correlated with the mismatch position.
//
// A syntactically malformed stored hash returns false, never an error.
// Treating "corrupt record" the same as "wrong password" means an attacker
// can't distinguish the two from the response.
func (p *PasswordService) Verify(hash, plaintext string) bool {
	salt, key, time, memoryKiB, threads, ok := decodeHash(hash)
	if !ok {
		return false
	}

	computed := argon2.IDKey([]byte(plaintext), salt, time, memoryKiB, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

// decodeHash parses a PHC Argon2id string. ok is false on any malformation.
func decodeHash(hash string) (salt, key []byte, time, memoryKiB uint32, threads uint8, ok bool) {
	parts := strings.Split(hash, "$")
	// ["", "argon2id", "v=19", "m=...,t=...,p=...", salt, key]
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, false
	}

	var m, t uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &par); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if m == 0 || t == 0 || par == 0 {
		return nil, nil, 0, 0, 0, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, 0, 0, 0, false
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	return salt, key, t, m, par, true
}
