package rotor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rotor-auth/rotor/password"
	"github.com/rotor-auth/rotor/session"
	"github.com/rotor-auth/rotor/token"
)

type stubUsers struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]UserRecord
	byEmail map[string]string
}

func newStubUsers() *stubUsers {
	return &stubUsers{byID: map[string]UserRecord{}, byEmail: map[string]string{}}
}

func (s *stubUsers) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *stubUsers) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return user, nil
}

func (s *stubUsers) CreateUser(_ context.Context, input CreateUserInput) (UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[input.Email]; ok {
		return UserRecord{}, ErrEmailTaken
	}
	s.nextID++
	user := UserRecord{
		UserID:       fmt.Sprintf("u%d", s.nextID),
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		PasswordHash: input.PasswordHash,
	}
	s.byID[user.UserID] = user
	s.byEmail[user.Email] = user.UserID
	return user, nil
}

func (s *stubUsers) remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.byID[userID]; ok {
		delete(s.byEmail, user.Email)
		delete(s.byID, userID)
	}
}

func testEngineConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessSecret = []byte("engine-test-access-secret-123456")
	cfg.Token.RefreshSecret = []byte("engine-test-refresh-secret-123456")
	cfg.Password = password.Params{
		MemoryKB:    8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *stubUsers, session.Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := newStubUsers()
	store := session.NewRedisStore(rdb, "enginetest")
	engine, err := New().
		WithConfig(testEngineConfig()).
		WithSessionStore(store).
		WithUserProvider(users).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	return engine, users, store
}

func registerAndLogin(t *testing.T, engine *Engine) (UserRecord, token.Pair) {
	t.Helper()
	ctx := context.Background()

	user, err := engine.Register(ctx, "alice@example.com", "correct-horse", "Alice")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	pair, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return user, pair
}

func TestRegisterValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	cases := map[string][3]string{
		"malformed email":    {"not-an-email", "long-enough-secret", "Alice"},
		"empty email":        {"", "long-enough-secret", "Alice"},
		"display-name email": {"bob <bob@example.com>", "long-enough-secret", "Bob"},
		"short secret":       {"alice@example.com", "pw", "Alice"},
		"blank display":      {"alice@example.com", "long-enough-secret", "   "},
	}
	for name, in := range cases {
		if _, err := engine.Register(ctx, in[0], in[1], in[2]); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Register(ctx, "alice@example.com", "correct-horse", "Alice"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	// Same address with different case is still the same account.
	if _, err := engine.Register(ctx, "ALICE@example.com", "other-secret", "Alice II"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginInstallsSessionRecord(t *testing.T) {
	engine, _, store := newTestEngine(t)
	user, pair := registerAndLogin(t, engine)

	rec, err := store.Get(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("session record missing after login: %v", err)
	}
	if rec.RefreshHash != token.Fingerprint(pair.RefreshToken) {
		t.Fatal("stored fingerprint does not match the issued refresh token")
	}
	if !pair.AccessExpiresAt.Before(pair.RefreshExpiresAt) {
		t.Fatal("access token must expire before the refresh token")
	}
}

func TestLoginFailureIsUniformAndSideEffectFree(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	user, err := engine.Register(ctx, "alice@example.com", "correct-horse", "Alice")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, wrongSecret := engine.Login(ctx, "alice@example.com", "wrong-secret")
	_, unknownEmail := engine.Login(ctx, "nobody@example.com", "correct-horse")

	if !errors.Is(wrongSecret, ErrInvalidCredentials) || !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Fatalf("expected uniform ErrInvalidCredentials, got %v / %v", wrongSecret, unknownEmail)
	}
	if wrongSecret.Error() != unknownEmail.Error() {
		t.Fatal("failure causes must be indistinguishable")
	}
	if _, err := store.Get(ctx, user.UserID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("failed login left a session record: %v", err)
	}
}

func TestLoginOverwritesPriorSession(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, first := registerAndLogin(t, engine)

	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("second login failed: %v", err)
	}

	// The first login's refresh token died when the record was overwritten.
	if _, err := engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for the pre-overwrite token, got %v", err)
	}
}

func TestRefreshRotationScenario(t *testing.T) {
	e, _, sessions := newTestEngine(t)
	ctx := context.Background()
	u, first := registerAndLogin(t, e)

	second, err := e.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("rotation must issue a distinct refresh token")
	}

	rec, err := sessions.Get(ctx, u.UserID)
	if err != nil {
		t.Fatalf("session record missing after rotation: %v", err)
	}
	if rec.RefreshHash != token.Fingerprint(second.RefreshToken) {
		t.Fatal("store does not hold the rotated fingerprint")
	}

	// The rotated-out token is single-use.
	if _, err := e.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for the spent token, got %v", err)
	}

	// ...and the rejection did not damage the live session.
	third, err := e.Refresh(ctx, second.RefreshToken)
	if err != nil {
		t.Fatalf("refresh with the live token failed: %v", err)
	}
	if third.RefreshToken == second.RefreshToken {
		t.Fatal("rotation must issue a distinct refresh token")
	}
}

func TestRefreshWithoutSession(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	// A principal who has never logged in: mint a structurally valid refresh
	// token from a sibling engine sharing the same secrets.
	users := newStubUsers()
	sibling, err := New().
		WithConfig(testEngineConfig()).
		WithSessionStore(session.NewMemoryStore()).
		WithUserProvider(users).
		Build()
	if err != nil {
		t.Fatalf("sibling engine build failed: %v", err)
	}
	if _, err := sibling.Register(ctx, "alice@example.com", "correct-horse", "Alice"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	pair, err := sibling.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if _, err := engine.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestRefreshDeletedPrincipal(t *testing.T) {
	engine, users, _ := newTestEngine(t)
	ctx := context.Background()

	user, pair := registerAndLogin(t, engine)
	users.remove(user.UserID)

	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for vanished principal, got %v", err)
	}
}

func TestLogoutClosesSession(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	user, pair := registerAndLogin(t, engine)

	if err := engine.Logout(ctx, user.UserID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after logout, got %v", err)
	}
	if err := engine.Logout(ctx, user.UserID); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession on repeat logout, got %v", err)
	}
}

func TestLogoutByAccessToken(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, pair := registerAndLogin(t, engine)

	if err := engine.LogoutByAccessToken(ctx, pair.AccessToken); err != nil {
		t.Fatalf("logout by access token failed: %v", err)
	}
	if err := engine.LogoutByAccessToken(ctx, "garbage"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for garbage bearer, got %v", err)
	}
}

func TestValidateAccess(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	user, pair := registerAndLogin(t, engine)

	result, err := engine.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if result.UserID != user.UserID || result.Email != user.Email {
		t.Fatalf("unexpected auth result: %+v", result)
	}

	// A refresh token must not pass as an access token.
	if _, err := engine.ValidateAccess(ctx, pair.RefreshToken); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied for refresh-as-access, got %v", err)
	}
}

func TestEngineMetricsCountOutcomes(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	user, pair := registerAndLogin(t, engine)
	_, _ = engine.Login(ctx, "alice@example.com", "wrong-secret")
	if _, err := engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_ = engine.Logout(ctx, user.UserID)

	snap := engine.MetricsSnapshot()
	expect := map[MetricID]uint64{
		MetricRegisterSuccess: 1,
		MetricLoginSuccess:    1,
		MetricLoginFailure:    1,
		MetricRefreshSuccess:  1,
		MetricLogoutSuccess:   1,
	}
	for id, want := range expect {
		if snap[id] != want {
			t.Fatalf("metric %d: want %d, got %d", id, want, snap[id])
		}
	}
}
