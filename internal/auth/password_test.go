package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/lmoretti/pawfinder/internal/apperror"
)

// =========================================================================
// HASH TESTS
// =========================================================================

func TestHashAndVerify(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash, err := ps.Hash("Str0ng!Pass")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("Hash() = %q, want $argon2id$ prefix", hash)
	}
	if !ps.Verify(hash, "Str0ng!Pass") {
		t.Error("Verify() = false for the correct password")
	}
	if ps.Verify(hash, "wrong-password") {
		t.Error("Verify() = true for a wrong password")
	}
}

func TestHash_RandomSalt(t *testing.T) {
	ps := NewPasswordServiceForTest()

	// Same input must yield different hashes — fresh salt per call.
	h1, err := ps.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := ps.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password are identical — salt is not random")
	}
}

func TestHash_TooLong(t *testing.T) {
	ps := NewPasswordServiceForTest()

	_, err := ps.Hash(strings.Repeat("a", 73))
	if err == nil {
		t.Fatal("Hash() should reject passwords over 72 bytes")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Hash() error = %v, want ErrValidation", err)
	}
}

func TestHash_AnyContentUpToLimit(t *testing.T) {
	ps := NewPasswordServiceForTest()

	// Content never causes failure — only length does.
	for _, pw := range []string{"", "\x00\xff\xfe", strings.Repeat("x", 72), "pässwörd 🐾"} {
		hash, err := ps.Hash(pw)
		if err != nil {
			t.Errorf("Hash(%q) error = %v, want nil", pw, err)
			continue
		}
		if !ps.Verify(hash, pw) {
			t.Errorf("Verify() = false for password %q", pw)
		}
	}
}

// =========================================================================
// VERIFY TESTS
// =========================================================================

func TestVerify_MalformedHash(t *testing.T) {
	ps := NewPasswordServiceForTest()

	// A corrupt stored hash must read as "verification failed", never panic
	// or error — indistinguishable from a wrong password.
	malformed := []string{
		"",
		"not-a-hash",
		"$argon2id$",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$???",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5a2V5",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdHNhbHQ$a2V5a2V5a2V5",
		"$2a$12$N9qo8uLOickgx2ZMRZoMye", // bcrypt leftovers
	}
	for _, hash := range malformed {
		if ps.Verify(hash, "anything") {
			t.Errorf("Verify(%q) = true, want false", hash)
		}
	}
}

func TestVerify_ParamsFromHashNotService(t *testing.T) {
	// A hash created with one parameter set must verify under a service
	// configured with another — parameters live in the stored string.
	strong := NewPasswordService()
	weak := NewPasswordServiceForTest()

	hash, err := weak.Hash("portable-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strong.Verify(hash, "portable-password") {
		t.Error("Verify() = false under different service params")
	}
}

// =========================================================================
// SESSION TOKEN TESTS
// =========================================================================

func TestNewSessionToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken() error = %v", err)
		}
		// 32 bytes base64url without padding = 43 characters.
		if len(token) != 43 {
			t.Fatalf("token length = %d, want 43", len(token))
		}
		if seen[token] {
			t.Fatal("NewSessionToken() produced a duplicate")
		}
		seen[token] = true
	}
}
