package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/bi-triage-agent/internal/auth"
	"github.com/spec-kit/bi-triage-agent/internal/config"
	apperrors "github.com/spec-kit/bi-triage-agent/pkg/util/errorutil"
)

// AuthService issues admin bearer tokens.
type AuthService struct {
	username     string
	passwordHash string
	tokenMgr     *auth.TokenManager
	logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, tokens *auth.TokenManager, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		tokenMgr:     tokens,
		logger:       logger,
	}
}

// Login checks the admin credentials and returns a signed token.
func (s *AuthService) Login(_ context.Context, username, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperrors.NewForbidden("admin login is not enabled")
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", time.Time{}, apperrors.NewValidationError("username and password are required", nil)
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := auth.ComparePassword(s.passwordHash, password)
	if !userOK || passErr != nil {
		s.logger.Warn("admin login rejected", zap.String("username", username))
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(s.username, auth.RoleAdmin)
	if err != nil {
		return "", time.Time{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("admin login", zap.String("username", username))
	return token, exp, nil
}
