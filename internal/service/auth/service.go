// internal/service/auth/service.go
package auth

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tahseel-service/internal/domain/user"
	xerrors "tahseel-service/internal/pkg/errors"
	"tahseel-service/internal/pkg/jwt"
	"tahseel-service/internal/pkg/session"
)

// UserRepository is the account-store slice the auth service needs.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type AuthService struct {
	users    UserRepository
	tokens   *jwt.Manager
	sessions *session.Manager
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(users UserRepository, tokens *jwt.Manager, sessions *session.Manager, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// Login verifies credentials and issues a token backed by a Redis session.
func (s *AuthService) Login(ctx context.Context, req *user.LoginRequest, ip, userAgent string) (*user.LoginResponse, error) {
	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !u.Active {
		return nil, xerrors.ErrForbidden
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	token, jti, err := s.tokens.Generate(u.ID, u.CompanyID, u.Roles)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	now := s.now()
	expiresAt := now.Add(s.tokens.TTL())
	err = s.sessions.Create(ctx, &session.Data{
		JTI:            jti,
		IdentityID:     u.ID,
		CompanyID:      u.CompanyID,
		Email:          u.Email,
		Roles:          u.Roles,
		IPAddress:      ip,
		UserAgent:      userAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.Int64("user_id", u.ID), zap.Error(err))
	}

	s.logger.Info("user logged in", zap.Int64("user_id", u.ID), zap.Int64("company_id", u.CompanyID))

	return &user.LoginResponse{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// ValidateToken verifies the token signature and the backing session.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*jwt.Claims, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	if _, err := s.sessions.Get(ctx, claims.ID); err != nil {
		return nil, err
	}
	if err := s.sessions.Touch(ctx, claims.ID); err != nil {
		s.logger.Warn("failed to touch session", zap.Error(err))
	}
	return claims, nil
}

// Logout revokes the session behind the token. A bad token is a no-op.
func (s *AuthService) Logout(ctx context.Context, tokenStr string) error {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, claims.ID)
}
