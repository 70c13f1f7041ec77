// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/fortune-api/internal/core"
	"github.com/carterperez-dev/fortune-api/internal/middleware"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const revokedKeyPrefix = "admin:revoked:"

type Service struct {
	repo  Repository
	jwt   *JWTManager
	redis redis.Cmdable
}

func NewService(repo Repository, jwt *JWTManager, redisClient redis.Cmdable) *Service {
	return &Service{
		repo:  repo,
		jwt:   jwt,
		redis: redisClient,
	}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AdminSession, error) {
	admin, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			_, _, _ = core.CheckPassword(req.Password, "") //nolint:errcheck // equalize timing
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}

	valid, newHash, err := core.CheckPassword(req.Password, admin.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.repo.UpdatePassword(ctx, admin.ID, newHash)
	}

	if err := s.repo.TouchLogin(ctx, admin.ID); err != nil {
		slog.Warn("record admin login failed", "admin_id", admin.ID, "error", err)
	}

	token, jti, expiresAt, err := s.jwt.CreateSessionToken(SessionClaims{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create session token: %w", err)
	}

	return &AdminSession{
		Token:     token,
		JTI:       jti,
		ExpiresAt: expiresAt,
		Admin:     admin,
	}, nil
}

// VerifyAccessToken checks the signature, the revocation list and the
// account's token version.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AdminClaims, error) {
	claims, err := s.jwt.VerifySessionToken(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.isRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("verify session: %w", core.ErrTokenRevoked)
	}

	admin, err := s.repo.GetByID(ctx, claims.AdminID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify session: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("verify session: %w", err)
	}

	if claims.TokenVersion < admin.TokenVersion {
		return nil, fmt.Errorf("verify session: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) Logout(ctx context.Context, claims *middleware.AdminClaims) error {
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, revokedKeyPrefix+claims.JTI, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) isRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := s.redis.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}

	return exists > 0, nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	adminID, currentPassword, newPassword string,
) error {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return fmt.Errorf("get admin: %w", err)
	}

	valid, err := core.VerifyPassword(currentPassword, admin.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, adminID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.repo.IncrementTokenVersion(ctx, adminID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return nil
}

func (s *Service) Me(ctx context.Context, adminID string) (*AdminAccount, error) {
	return s.repo.GetByID(ctx, adminID)
}

// EnsureAdmin creates the bootstrap account when it does not exist yet.
// An existing account keeps its current password.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" {
		return false, nil
	}

	_, err := s.repo.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return false, fmt.Errorf("get admin: %w", err)
	}

	hash, err := core.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	err = s.repo.Create(ctx, &AdminAccount{Username: username, PasswordHash: hash})
	if errors.Is(err, core.ErrDuplicateKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
