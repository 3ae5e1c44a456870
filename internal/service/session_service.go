package service

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clc-lbu/timetable-api/internal/dto"
	"github.com/clc-lbu/timetable-api/internal/models"
	appErrors "github.com/clc-lbu/timetable-api/pkg/errors"
)

type sessionRevocationStore interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SessionServiceConfig carries the admin gate secret and token parameters.
type SessionServiceConfig struct {
	AdminPassword string
	TokenSecret   string
	TokenTTL      time.Duration
}

// SessionService is the admin gate: a pure password check plus short-lived
// session tokens carried per request. There is one shared admin secret and
// no per-user identity; the token is the "authenticated this session" flag.
type SessionService struct {
	revocations sessionRevocationStore
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         SessionServiceConfig
}

// NewSessionService constructs the session service.
func NewSessionService(revocations sessionRevocationStore, validate *validator.Validate, logger *zap.Logger, cfg SessionServiceConfig) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	return &SessionService{revocations: revocations, validator: validate, logger: logger, cfg: cfg}
}

// Verify checks the supplied password against the configured shared secret.
// The secret may be a bcrypt hash; otherwise comparison is constant-time.
// Pure: no state is read or written.
func (s *SessionService) Verify(password string) bool {
	secret := s.cfg.AdminPassword
	if secret == "" {
		return false
	}
	if strings.HasPrefix(secret, "$2a$") || strings.HasPrefix(secret, "$2b$") || strings.HasPrefix(secret, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}

// Login verifies the password and issues a session token.
func (s *SessionService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if !s.Verify(req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "incorrect password")
	}

	now := time.Now().UTC()
	claims := &models.SessionClaims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   "admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session token")
	}

	s.logger.Info("admin session opened", zap.String("session_id", claims.ID))
	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
		IssuedAt:  now,
	}, nil
}

// ValidateToken parses the session token and rejects revoked sessions.
func (s *SessionService) ValidateToken(ctx context.Context, tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unexpected signing method")
		}
		return []byte(s.cfg.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session token")
	}
	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || !claims.Admin {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	if s.revocations != nil && claims.ID != "" {
		revoked, err := s.revocations.Exists(ctx, revocationKey(claims.ID))
		if err != nil {
			s.logger.Warn("session revocation check failed", zap.Error(err))
		} else if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session closed")
		}
	}
	return claims, nil
}

// Logout revokes the session's jti for the remainder of the token lifetime.
// Best effort: when the revocation store is down the token still expires on
// its own, and a fresh session always starts unauthenticated.
func (s *SessionService) Logout(ctx context.Context, claims *models.SessionClaims) error {
	if claims == nil || claims.ID == "" {
		return appErrors.ErrUnauthorized
	}
	ttl := s.cfg.TokenTTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	if s.revocations != nil {
		if err := s.revocations.Set(ctx, revocationKey(claims.ID), true, ttl); err != nil {
			s.logger.Warn("session revocation write failed", zap.String("session_id", claims.ID), zap.Error(err))
		}
	}
	s.logger.Info("admin session closed", zap.String("session_id", claims.ID))
	return nil
}

func revocationKey(sessionID string) string {
	return "session:revoked:" + sessionID
}
