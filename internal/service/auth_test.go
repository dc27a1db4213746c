package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/lmoretti/pawfinder/internal/apperror"
	"github.com/lmoretti/pawfinder/internal/auth"
	"github.com/lmoretti/pawfinder/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. A hand-written
// fake, not a mock framework — you can see exactly what it does, and it
// reproduces the store's real contract: unique email and login key under
// concurrency, atomic user+credential.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User       // by ID
	creds  map[string]*model.Credential // by login key
	emails map[string]bool
	nextID int

	// failCreateWith, when non-nil, is returned by CreateWithCredential
	// the next failCreateTimes calls.
	failCreateWith  error
	failCreateTimes int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		creds:  make(map[string]*model.Credential),
		emails: make(map[string]bool),
	}
}

func (f *fakeUserRepo) CreateWithCredential(_ context.Context, user *model.User, cred *model.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failCreateTimes > 0 {
		f.failCreateTimes--
		return f.failCreateWith
	}
	if f.emails[user.Email] || f.creds[cred.LoginKey] != nil {
		return apperror.EmailTaken()
	}

	f.nextID++
	user.ID = "user-" + strconv.Itoa(f.nextID)
	user.CreatedAt = time.Now()
	cred.UserID = user.ID

	storedUser := *user
	storedCred := *cred
	f.users[user.ID] = &storedUser
	f.creds[cred.LoginKey] = &storedCred
	f.emails[user.Email] = true
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetCredentialByLoginKey(_ context.Context, loginKey string) (*model.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[loginKey]
	if !ok {
		return nil, apperror.NotFound("credential", loginKey)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeUserRepo) userCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// fakeSessionRepo is an in-memory repository.SessionRepository with real
// expiry and idempotent invalidation.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	users    *fakeUserRepo

	failValidateWith error
}

func newFakeSessionRepo(users *fakeUserRepo) *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]*model.Session),
		users:    users,
	}
}

func (f *fakeSessionRepo) Create(_ context.Context, userID string, lifetime time.Duration) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, err := auth.NewSessionToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	session := &model.Session{
		ID:        token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
	f.sessions[token] = session
	copied := *session
	return &copied, nil
}

func (f *fakeSessionRepo) Validate(ctx context.Context, sessionID string) (*model.User, error) {
	f.mu.Lock()
	if f.failValidateWith != nil {
		f.mu.Unlock()
		return nil, f.failValidateWith
	}
	session, ok := f.sessions[sessionID]
	f.mu.Unlock()

	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, nil
	}
	return f.users.GetUserByID(ctx, session.UserID)
}

func (f *fakeSessionRepo) Invalidate(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID) // unknown id: no-op, no error
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, s := range f.sessions {
		if time.Now().After(s.ExpiresAt) {
			delete(f.sessions, id)
			n++
		}
	}
	return n, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestAuthService wires an AuthService with fakes, cheap Argon2 params,
// and the policy lists from the spec scenarios.
func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo, *fakeSessionRepo) {
	t.Helper()

	users := newFakeUserRepo()
	sessions := newFakeSessionRepo(users)

	svc, err := NewAuthService(users, sessions, auth.NewPasswordServiceForTest(), AuthConfig{
		SessionLifetime:   time.Hour,
		CommonPasswords:   []string{"password", "123456", "qwerty"},
		DisposableDomains: []string{"mailinator.com", "yopmail.com"},
	}, testLogger())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, users, sessions
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister_ThenResolveCaller(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, "a@x.com", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if result.User.Email != "a@x.com" {
		t.Errorf("User.Email = %q, want a@x.com", result.User.Email)
	}
	if result.Session == nil || result.Session.ID == "" {
		t.Fatal("Register() did not issue a session")
	}

	caller := svc.ResolveCaller(ctx, result.Session.ID)
	if caller == nil {
		t.Fatal("ResolveCaller() = nil right after registration")
	}
	if caller.Email != "a@x.com" {
		t.Errorf("resolved email = %q, want a@x.com", caller.Email)
	}
}

func TestRegister_NormalizesEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, "  Ada@Example.COM ", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if result.User.Email != "ada@example.com" {
		t.Errorf("stored email = %q, want lowercased+trimmed", result.User.Email)
	}

	// A case/whitespace variant of the same address is the same account.
	_, err = svc.Register(ctx, "ADA@example.com  ", "Other!Pass1")
	if !errors.Is(err, apperror.ErrEmailTaken) {
		t.Errorf("variant re-register error = %v, want ErrEmailTaken", err)
	}
}

func TestRegister_WeakPassword_NoStoreWrite(t *testing.T) {
	svc, users, _ := newTestAuthService(t)

	for _, pw := range []string{"password", "PASSWORD", "Password"} {
		_, err := svc.Register(context.Background(), "a@x.com", pw)
		if !errors.Is(err, apperror.ErrWeakPassword) {
			t.Errorf("Register(%q) error = %v, want ErrWeakPassword", pw, err)
		}
	}
	// The denylist check fires before anything touches the store.
	if users.userCount() != 0 {
		t.Errorf("user rows after denied registrations = %d, want 0", users.userCount())
	}
}

func TestRegister_DisposableDomain(t *testing.T) {
	svc, users, _ := newTestAuthService(t)

	_, err := svc.Register(context.Background(), "temp@Mailinator.com", "Str0ng!Pass")
	if !errors.Is(err, apperror.ErrDisposableEmail) {
		t.Errorf("Register(disposable) error = %v, want ErrDisposableEmail", err)
	}
	if users.userCount() != 0 {
		t.Errorf("user rows = %d, want 0", users.userCount())
	}
}

func TestRegister_RaceLoserSeesEmailTaken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	// Two concurrent registrations of one email: exactly one success.
	const email = "race@x.com"
	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Register(context.Background(), email, "Str0ng!Pass")
		}(i)
	}
	wg.Wait()

	var wins, taken int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperror.ErrEmailTaken):
			taken++
		default:
			t.Fatalf("unexpected outcome: %v", err)
		}
	}
	if wins != 1 || taken != 1 {
		t.Errorf("%d wins, %d EmailTaken; want 1 and 1", wins, taken)
	}
}

func TestRegister_TransientRetriedOnce(t *testing.T) {
	svc, users, _ := newTestAuthService(t)

	// First attempt fails transiently; the single retry succeeds.
	users.failCreateWith = apperror.Transient(errors.New("database is locked"))
	users.failCreateTimes = 1

	result, err := svc.Register(context.Background(), "a@x.com", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("Register() error = %v, want success after one retry", err)
	}
	if result.Session == nil {
		t.Fatal("no session after retried registration")
	}
}

func TestRegister_TransientNotRetriedTwice(t *testing.T) {
	svc, users, _ := newTestAuthService(t)

	// Two consecutive transient failures exhaust the single retry.
	users.failCreateWith = apperror.Transient(errors.New("database is locked"))
	users.failCreateTimes = 2

	_, err := svc.Register(context.Background(), "a@x.com", "Str0ng!Pass")
	if !errors.Is(err, apperror.ErrTransient) {
		t.Fatalf("Register() error = %v, want ErrTransient surfaced", err)
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "Str0ng!Pass"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(ctx, "A@X.com ", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if caller := svc.ResolveCaller(ctx, result.Session.ID); caller == nil || caller.Email != "a@x.com" {
		t.Errorf("ResolveCaller after login = %+v, want a@x.com", caller)
	}
}

func TestLogin_WrongPasswordAndUnknownEmail_SameError(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "Str0ng!Pass"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, errWrongPw := svc.Login(ctx, "a@x.com", "wrongpw")
	_, errNoUser := svc.Login(ctx, "nobody@x.com", "anything")

	if !errors.Is(errWrongPw, apperror.ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", errWrongPw)
	}
	if !errors.Is(errNoUser, apperror.ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", errNoUser)
	}
	// Identical error value, identical message — nothing to enumerate on.
	if errWrongPw.Error() != errNoUser.Error() {
		t.Errorf("error messages differ: %q vs %q", errWrongPw.Error(), errNoUser.Error())
	}
}

func TestLogin_CorruptStoredHash(t *testing.T) {
	svc, users, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@x.com", "Str0ng!Pass"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	// Corrupt the stored hash; login must fail with the same generic error.
	users.mu.Lock()
	users.creds["email:a@x.com"].PasswordHash = "garbage"
	users.mu.Unlock()

	_, err := svc.Login(ctx, "a@x.com", "Str0ng!Pass")
	if !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Errorf("corrupt hash error = %v, want ErrInvalidCredentials", err)
	}
}

// =========================================================================
// LOGOUT / RESOLVE TESTS
// =========================================================================

func TestLogout_KillsSession(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, "a@x.com", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	sessionID := result.Session.ID

	if err := svc.Logout(ctx, sessionID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if caller := svc.ResolveCaller(ctx, sessionID); caller != nil {
		t.Errorf("ResolveCaller after logout = %+v, want nil", caller)
	}

	// Logout is idempotent end to end.
	if err := svc.Logout(ctx, sessionID); err != nil {
		t.Errorf("second Logout() error = %v, want nil", err)
	}
	if err := svc.Logout(ctx, "never-issued"); err != nil {
		t.Errorf("Logout(unknown) error = %v, want nil", err)
	}
	if err := svc.Logout(ctx, ""); err != nil {
		t.Errorf("Logout(\"\") error = %v, want nil", err)
	}
}

func TestResolveCaller_NeverErrors(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	if caller := svc.ResolveCaller(ctx, ""); caller != nil {
		t.Errorf("ResolveCaller(\"\") = %+v, want nil", caller)
	}
	if caller := svc.ResolveCaller(ctx, "unknown"); caller != nil {
		t.Errorf("ResolveCaller(unknown) = %+v, want nil", caller)
	}

	// Even a broken store reads as anonymous, not a failure.
	sessions.failValidateWith = errors.New("store down")
	if caller := svc.ResolveCaller(ctx, "anything"); caller != nil {
		t.Errorf("ResolveCaller with failing store = %+v, want nil", caller)
	}
}

// =========================================================================
// FULL SCENARIO
// =========================================================================

func TestScenario_RegisterVariantLogout(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	// register u1 → session s1
	r1, err := svc.Register(ctx, "a@x.com", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	s1 := r1.Session.ID

	// resolveCaller(s1) → u1
	if caller := svc.ResolveCaller(ctx, s1); caller == nil || caller.ID != r1.User.ID {
		t.Fatalf("ResolveCaller(s1) = %+v, want u1", caller)
	}

	// register again with a case/whitespace variant → EmailTaken
	if _, err := svc.Register(ctx, "A@X.com ", "An0ther!Pass"); !errors.Is(err, apperror.ErrEmailTaken) {
		t.Fatalf("variant register error = %v, want ErrEmailTaken", err)
	}

	// logout(s1) → resolveCaller(s1) → none
	if err := svc.Logout(ctx, s1); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if caller := svc.ResolveCaller(ctx, s1); caller != nil {
		t.Errorf("ResolveCaller after logout = %+v, want nil", caller)
	}
}
