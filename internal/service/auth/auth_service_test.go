package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"rayslaund-service/internal/domain/user"
	xerrors "rayslaund-service/internal/pkg/errors"
	"rayslaund-service/internal/pkg/jwt"
	"rayslaund-service/internal/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users map[string]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*user.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return xerrors.ErrConflict
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, _ *user.UserListFilters) ([]user.UserSummary, error) {
	var out []user.UserSummary
	for _, u := range f.users {
		out = append(out, user.UserSummary{User: *u})
	}
	return out, nil
}

type fakeSessionStore struct {
	created        []*session.SessionData
	invalidated    []string
	invalidatedAll []string
	blacklisted    []string
}

func (f *fakeSessionStore) CreateSession(_ context.Context, sess *session.SessionData) error {
	f.created = append(f.created, sess)
	return nil
}

func (f *fakeSessionStore) GetSession(_ context.Context, identityID, jti string) (*session.SessionData, error) {
	for _, sess := range f.created {
		if sess.IdentityID == identityID && sess.JTI == jti {
			return sess, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeSessionStore) InvalidateSession(_ context.Context, identityID, jti string) error {
	f.invalidated = append(f.invalidated, identityID+":"+jti)
	return nil
}

func (f *fakeSessionStore) InvalidateAllUserSessions(_ context.Context, identityID string) error {
	f.invalidatedAll = append(f.invalidatedAll, identityID)
	return nil
}

func (f *fakeSessionStore) IsTokenBlacklisted(_ context.Context, jti string) (bool, error) {
	for _, b := range f.blacklisted {
		if b == jti {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessionStore) BlacklistToken(_ context.Context, jti string, _ time.Duration) error {
	f.blacklisted = append(f.blacklisted, jti)
	return nil
}

type fakeLoginLimiter struct {
	allowed        bool
	remainingCalls int
}

func (f *fakeLoginLimiter) CheckLoginAttempt(_ context.Context, _, _ string) (bool, int64, error) {
	return f.allowed, 4, nil
}

func (f *fakeLoginLimiter) ResetLoginAttempts(_ context.Context, _, _ string) error {
	return nil
}

func (f *fakeLoginLimiter) GetRemainingAttempts(_ context.Context, _, _ string) (int64, error) {
	f.remainingCalls++
	return 3, nil
}

type fakeConnCloser struct {
	dropped []string
	reasons []string
}

func (f *fakeConnCloser) DisconnectUser(identityID, reason string) {
	f.dropped = append(f.dropped, identityID)
	f.reasons = append(f.reasons, reason)
}

func testJWTManager(t *testing.T) *jwt.Manager {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &jwt.Manager{
		Generator: jwt.NewGenerator(priv, "rayslaund", "rayslaund-clients", "test-key", time.Hour),
		Verifier:  jwt.NewVerifier(&priv.PublicKey, "rayslaund", "rayslaund-clients"),
	}
}

func seedUser(t *testing.T, repo *fakeUserRepo, id, email, password string, role user.Role) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &user.User{
		ID:           id,
		FullName:     "Jane",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}))
}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	repo := newFakeUserRepo()
	sessions := &fakeSessionStore{}
	svc := NewAuthService(repo, testJWTManager(t), sessions, &fakeLoginLimiter{allowed: true}, &fakeConnCloser{}, zap.NewNop())

	seedUser(t, repo, "cust-1", "jane@example.com", "secret", user.RoleCustomer)

	resp, err := svc.Login(context.Background(), &user.LoginRequest{Email: "jane@example.com", Password: "secret"}, "1.2.3.4", "test-agent")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "cust-1", resp.User.ID)

	require.Len(t, sessions.created, 1)
	assert.Equal(t, "cust-1", sessions.created[0].IdentityID)
	assert.Equal(t, string(user.RoleCustomer), sessions.created[0].Role)
}

func TestLoginRateLimited(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, nil, &fakeSessionStore{}, &fakeLoginLimiter{allowed: false}, nil, zap.NewNop())

	seedUser(t, repo, "cust-1", "jane@example.com", "secret", user.RoleCustomer)

	_, err := svc.Login(context.Background(), &user.LoginRequest{Email: "jane@example.com", Password: "secret"}, "1.2.3.4", "test-agent")
	assert.ErrorIs(t, err, xerrors.ErrRateLimited)
}

func TestLoginWrongPasswordReportsRemainingAttempts(t *testing.T) {
	repo := newFakeUserRepo()
	limiter := &fakeLoginLimiter{allowed: true}
	svc := NewAuthService(repo, nil, &fakeSessionStore{}, limiter, nil, zap.NewNop())

	seedUser(t, repo, "cust-1", "jane@example.com", "secret", user.RoleCustomer)

	_, err := svc.Login(context.Background(), &user.LoginRequest{Email: "jane@example.com", Password: "wrong"}, "1.2.3.4", "test-agent")
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
	assert.Equal(t, 1, limiter.remainingCalls)
}

func TestChangePasswordRevokesSessionsAndConnections(t *testing.T) {
	repo := newFakeUserRepo()
	sessions := &fakeSessionStore{}
	conns := &fakeConnCloser{}
	svc := NewAuthService(repo, nil, sessions, &fakeLoginLimiter{allowed: true}, conns, zap.NewNop())

	seedUser(t, repo, "cust-1", "jane@example.com", "oldpass", user.RoleCustomer)

	err := svc.ChangePassword(context.Background(), "cust-1", &user.ChangePasswordRequest{
		CurrentPassword: "oldpass",
		NewPassword:     "newpass",
	})
	require.NoError(t, err)

	updated, err := repo.FindByID(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpass")))

	assert.Equal(t, []string{"cust-1"}, sessions.invalidatedAll)
	assert.Equal(t, []string{"cust-1"}, conns.dropped)
	assert.Equal(t, []string{"password changed"}, conns.reasons)
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	repo := newFakeUserRepo()
	sessions := &fakeSessionStore{}
	conns := &fakeConnCloser{}
	svc := NewAuthService(repo, nil, sessions, &fakeLoginLimiter{allowed: true}, conns, zap.NewNop())

	seedUser(t, repo, "cust-1", "jane@example.com", "oldpass", user.RoleCustomer)

	err := svc.ChangePassword(context.Background(), "cust-1", &user.ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpass",
	})
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
	assert.Empty(t, sessions.invalidatedAll)
	assert.Empty(t, conns.dropped)
}

func TestLogoutInvalidatesSessionAndBlacklistsToken(t *testing.T) {
	sessions := &fakeSessionStore{}
	svc := NewAuthService(newFakeUserRepo(), nil, sessions, &fakeLoginLimiter{allowed: true}, nil, zap.NewNop())

	require.NoError(t, svc.Logout(context.Background(), "cust-1", "jti-1", time.Hour))
	assert.Equal(t, []string{"cust-1:jti-1"}, sessions.invalidated)
	assert.Equal(t, []string{"jti-1"}, sessions.blacklisted)
}

func TestEnsureBaseOperatorsSeedsOnce(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewAuthService(repo, nil, &fakeSessionStore{}, &fakeLoginLimiter{allowed: true}, nil, zap.NewNop())

	require.NoError(t, svc.EnsureBaseOperators(context.Background(), "staff@rayslaund.com", "staff123", "admin@rayslaund.com", "admin123"))
	assert.Len(t, repo.users, 2)

	require.NoError(t, svc.EnsureBaseOperators(context.Background(), "staff@rayslaund.com", "staff123", "admin@rayslaund.com", "admin123"))
	assert.Len(t, repo.users, 2)
}
