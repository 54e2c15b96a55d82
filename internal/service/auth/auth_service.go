// internal/service/auth/auth_service.go
package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"rayslaund-service/internal/domain/user"
	xerrors "rayslaund-service/internal/pkg/errors"
	"rayslaund-service/internal/pkg/jwt"
	"rayslaund-service/internal/pkg/session"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Repository is the user slice of the record store.
type Repository interface {
	Create(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, id string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	List(ctx context.Context, filters *user.UserListFilters) ([]user.UserSummary, error)
}

// SessionStore is the Redis-backed session surface the service depends on.
type SessionStore interface {
	CreateSession(ctx context.Context, sess *session.SessionData) error
	GetSession(ctx context.Context, identityID, jti string) (*session.SessionData, error)
	InvalidateSession(ctx context.Context, identityID, jti string) error
	InvalidateAllUserSessions(ctx context.Context, identityID string) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// LoginLimiter throttles and tracks login attempts per client.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, email string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, email string) error
	GetRemainingAttempts(ctx context.Context, ip, email string) (int64, error)
}

// ConnectionCloser force-closes realtime connections for an identity.
type ConnectionCloser interface {
	DisconnectUser(identityID, reason string)
}

type AuthService struct {
	repo        Repository
	jwtManager  *jwt.Manager
	sessions    SessionStore
	rateLimiter LoginLimiter
	conns       ConnectionCloser
	logger      *zap.Logger
}

func NewAuthService(repo Repository, jwtManager *jwt.Manager, sessions SessionStore, rateLimiter LoginLimiter, conns ConnectionCloser, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:        repo,
		jwtManager:  jwtManager,
		sessions:    sessions,
		rateLimiter: rateLimiter,
		conns:       conns,
		logger:      logger,
	}
}

// Register creates a customer account and logs it in.
func (s *AuthService) Register(ctx context.Context, req *user.RegisterRequest, ip, userAgent string) (*user.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		ID:           ulid.Make().String(),
		FullName:     req.FullName,
		Email:        strings.ToLower(req.Email),
		PasswordHash: string(hash),
		Role:         user.RoleCustomer,
		Phone:        sql.NullString{String: req.Phone, Valid: req.Phone != ""},
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if xerrors.Is(err, xerrors.ErrConflict) {
			return nil, fmt.Errorf("account with email %s already exists", req.Email)
		}
		s.logger.Error("failed to register user", zap.Error(err))
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("email", u.Email),
	)

	return s.issueSession(ctx, u, ip, userAgent)
}

// Login authenticates any role and issues a token + session.
func (s *AuthService) Login(ctx context.Context, req *user.LoginRequest, ip, userAgent string) (*user.AuthResponse, error) {
	allowed, remaining, err := s.rateLimiter.CheckLoginAttempt(ctx, ip, req.Email)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing attempt", zap.Error(err))
	} else if !allowed {
		s.logger.Warn("login rate limited",
			zap.String("email", req.Email),
			zap.Int64("remaining", remaining),
		)
		return nil, xerrors.ErrRateLimited
	}

	u, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		if remaining, lerr := s.rateLimiter.GetRemainingAttempts(ctx, ip, req.Email); lerr == nil {
			s.logger.Warn("failed login attempt",
				zap.String("email", req.Email),
				zap.Int64("attempts_remaining", remaining),
			)
		}
		return nil, xerrors.ErrUnauthorized
	}

	if err := s.rateLimiter.ResetLoginAttempts(ctx, ip, req.Email); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	s.logger.Info("user logged in",
		zap.String("user_id", u.ID),
		zap.String("role", string(u.Role)),
	)

	return s.issueSession(ctx, u, ip, userAgent)
}

// Logout invalidates the current session and blacklists its token.
func (s *AuthService) Logout(ctx context.Context, identityID, jti string, tokenTTL time.Duration) error {
	if err := s.sessions.InvalidateSession(ctx, identityID, jti); err != nil {
		s.logger.Warn("failed to invalidate session", zap.Error(err))
	}
	return s.sessions.BlacklistToken(ctx, jti, tokenTTL)
}

// ChangePassword verifies the current credential and replaces it. Every live
// session and realtime connection for the account is revoked, so the caller
// has to log in again with the new credential.
func (s *AuthService) ChangePassword(ctx context.Context, identityID string, req *user.ChangePasswordRequest) error {
	u, err := s.repo.FindByID(ctx, identityID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return xerrors.ErrUnauthorized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.InvalidateAllUserSessions(ctx, u.ID); err != nil {
		s.logger.Warn("failed to invalidate sessions after password change",
			zap.Error(err),
			zap.String("user_id", u.ID),
		)
	}
	if s.conns != nil {
		s.conns.DisconnectUser(u.ID, "password changed")
	}

	s.logger.Info("password changed", zap.String("user_id", u.ID))
	return nil
}

// ValidateToken verifies an access token, its blacklist entry and session.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	blacklisted, err := s.sessions.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, xerrors.ErrSessionExpired
	}

	if _, err := s.sessions.GetSession(ctx, claims.IdentityID, claims.ID); err != nil {
		return nil, xerrors.ErrSessionExpired
	}

	return claims, nil
}

// GetUser loads a user for request attribution.
func (s *AuthService) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.repo.FindByID(ctx, id)
}

// ListUsers retrieves users with counters for the admin board.
func (s *AuthService) ListUsers(ctx context.Context, filters *user.UserListFilters) ([]user.UserSummary, error) {
	return s.repo.List(ctx, filters)
}

// EnsureBaseOperators seeds the staff and admin accounts if missing.
func (s *AuthService) EnsureBaseOperators(ctx context.Context, staffEmail, staffPassword, adminEmail, adminPassword string) error {
	seeds := []struct {
		email    string
		password string
		name     string
		role     user.Role
	}{
		{staffEmail, staffPassword, "Ray Staff", user.RoleStaff},
		{adminEmail, adminPassword, "Ray Admin", user.RoleAdmin},
	}

	for _, seed := range seeds {
		if seed.email == "" || seed.password == "" {
			continue
		}

		if _, err := s.repo.FindByEmail(ctx, seed.email); err == nil {
			continue
		} else if !xerrors.Is(err, xerrors.ErrNotFound) {
			return fmt.Errorf("failed to look up %s: %w", seed.email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}

		u := &user.User{
			ID:           ulid.Make().String(),
			FullName:     seed.name,
			Email:        seed.email,
			PasswordHash: string(hash),
			Role:         seed.role,
		}
		if err := s.repo.Create(ctx, u); err != nil && !xerrors.Is(err, xerrors.ErrConflict) {
			return fmt.Errorf("failed to seed %s: %w", seed.email, err)
		}

		s.logger.Info("seeded operator account",
			zap.String("email", seed.email),
			zap.String("role", string(seed.role)),
		)
	}

	return nil
}

func (s *AuthService) issueSession(ctx context.Context, u *user.User, ip, userAgent string) (*user.AuthResponse, error) {
	token, jti, err := s.jwtManager.Generator.GenerateAccessToken(u.ID, string(u.Role), u.FullName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	sess := &session.SessionData{
		JTI:            jti,
		IdentityID:     u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           string(u.Role),
		IPAddress:      ip,
		UserAgent:      userAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.jwtManager.Generator.Ttl),
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &user.AuthResponse{Token: token, User: u}, nil
}
