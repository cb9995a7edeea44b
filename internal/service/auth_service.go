package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	jwtutil "gemvault/pkg/jwt"
)

var ErrBadCredentials = errors.New("wrong username or password")

const defaultAccessTTL = 2 * time.Hour

// AuthService authenticates the console operator. There is one account,
// configured at startup with a bcrypt password hash; tokens are RS256
// with the admin role baked into the claims.
type AuthService struct {
	username     string
	passwordHash string
	privateKey   *rsa.PrivateKey
	accessTTL    time.Duration
	logger       *zap.Logger
}

func NewAuthService(username, passwordHash string, privateKey *rsa.PrivateKey, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	return &AuthService{
		username:     strings.TrimSpace(username),
		passwordHash: passwordHash,
		privateKey:   privateKey,
		accessTTL:    accessTTL,
		logger:       logger,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	_ = ctx

	if !strings.EqualFold(strings.TrimSpace(username), s.username) {
		// Burn a compare anyway so both failure paths cost the same.
		_ = bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password))
		return "", ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)) != nil {
		s.logger.Warn("console login rejected", zap.String("username", username))
		return "", ErrBadCredentials
	}

	claims := jwtutil.NewClaims(s.username, "admin", s.accessTTL)
	token, err := jwtutil.GenerateAccessToken(claims, s.privateKey)
	if err != nil {
		return "", err
	}

	s.logger.Info("console login", zap.String("username", s.username))
	return token, nil
}

// AccessTTL reports the configured token lifetime for cookie expiry.
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}
