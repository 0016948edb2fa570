package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grocerly/backend/internal/cache"
	"github.com/grocerly/backend/internal/config"
	"github.com/grocerly/backend/internal/model"
)

type fakeUserStore struct {
	users    map[string]model.User // keyed by lowercase email
	getCalls int
	failAll  bool
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]model.User)}
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	f.getCalls++
	if f.failAll {
		return nil, errors.New("store down")
	}
	user, ok := f.users[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user model.User) error {
	if f.failAll {
		return errors.New("store down")
	}
	f.users[user.Email] = user
	return nil
}

type fakeSessions struct {
	deauthorized []string
}

func (f *fakeSessions) DeauthorizeToken(token string) {
	f.deauthorized = append(f.deauthorized, token)
}

func newAuthFixture(t *testing.T, allowSignup bool) (*AuthService, *fakeUserStore, *cache.Envelope[model.User], *fakeSessions) {
	t.Helper()
	store := newFakeUserStore()
	users := cache.NewEnvelope[model.User](time.Hour)
	sessions := &fakeSessions{}
	svc := NewAuthService(store, users, NewRevocationLedger(), sessions, config.AuthConfig{
		JWTSecret:   "test-secret",
		HashCost:    bcrypt.MinCost,
		AllowSignup: allowSignup,
	})
	return svc, store, users, sessions
}

func seedUser(t *testing.T, store *fakeUserStore, email, password string) model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := model.User{
		ID:           "user-1",
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
	}
	store.users[user.Email] = user
	return user
}

func TestLoginSucceedsAndFillsCache(t *testing.T) {
	svc, store, users, _ := newAuthFixture(t, false)
	seedUser(t, store, "jane@example.com", "hunter22")

	token, err := svc.Login(context.Background(), model.AuthRequest{
		Email:    "Jane@Example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// The cache key is the email as the client sent it.
	_, found := users.Lookup("Jane@Example.com")
	assert.True(t, found)

	// Second login answers from cache.
	_, err = svc.Login(context.Background(), model.AuthRequest{
		Email:    "Jane@Example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.getCalls)
}

func TestLoginWrongPasswordIsOpaque(t *testing.T) {
	svc, store, users, _ := newAuthFixture(t, false)
	seeded := seedUser(t, store, "jane@example.com", "hunter22")

	_, err := svc.Login(context.Background(), model.AuthRequest{
		Email:    "jane@example.com",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, ErrUnauthorized)

	// The lookup may have cached the credential record, but the entry is
	// unchanged by the failed attempt.
	if cached, found := users.Lookup("jane@example.com"); found {
		assert.Equal(t, seeded.PasswordHash, cached.PasswordHash)
	}
}

func TestLoginUnknownEmailIsOpaque(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), model.AuthRequest{
		Email:    "nobody@example.com",
		Password: "hunter22",
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestLoginStoreFailureIsNotUnauthorized(t *testing.T) {
	svc, store, _, _ := newAuthFixture(t, false)
	store.failAll = true

	_, err := svc.Login(context.Background(), model.AuthRequest{
		Email:    "jane@example.com",
		Password: "hunter22",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestLoginValidation(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, false)

	_, err := svc.Login(context.Background(), model.AuthRequest{
		Email:    "not-an-email",
		Password: "short",
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Fields, 2)
}

func TestRegisterDisabled(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t, false)

	_, err := svc.Register(context.Background(), model.AuthRequest{
		Email:    "jane@example.com",
		Password: "hunter22",
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, store, _, _ := newAuthFixture(t, true)

	id, err := svc.Register(context.Background(), model.AuthRequest{
		Email:    "Jane@Example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	stored, ok := store.users["jane@example.com"]
	require.True(t, ok, "email must be stored lowercase")
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")))
}

func TestRegisterDuplicateFromStoreThenCache(t *testing.T) {
	svc, store, users, _ := newAuthFixture(t, true)
	seedUser(t, store, "jane@example.com", "hunter22")

	req := model.AuthRequest{Email: "jane@example.com", Password: "hunter22"}

	// First attempt answers from the store and backfills the cache.
	_, err := svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrConflict)
	_, found := users.Lookup("jane@example.com")
	assert.True(t, found)

	// Second attempt answers from the cache alone.
	calls := store.getCalls
	_, err = svc.Register(context.Background(), req)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, calls, store.getCalls)
}

func TestLogoffRevokesAndDeauthorizes(t *testing.T) {
	svc, store, _, sessions := newAuthFixture(t, false)
	seedUser(t, store, "jane@example.com", "hunter22")

	token, err := svc.Login(context.Background(), model.AuthRequest{
		Email:    "jane@example.com",
		Password: "hunter22",
	})
	require.NoError(t, err)

	svc.Logoff(token)

	assert.True(t, svc.ledger.IsRevoked(token))
	assert.Equal(t, []string{token}, sessions.deauthorized)

	// Idempotent: a second logoff with the same token is a no-op.
	svc.Logoff(token)
	assert.Len(t, sessions.deauthorized, 1)
}

func TestLogoffWithoutTokenIsNoOp(t *testing.T) {
	svc, _, _, sessions := newAuthFixture(t, false)

	svc.Logoff("")
	assert.Empty(t, sessions.deauthorized)
}
