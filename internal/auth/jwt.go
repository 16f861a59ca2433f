package auth

import (
	"errors"
	"fmt"
	"time"

	"bontroc_backend/internal/config"
	"bontroc_backend/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenIssuer = "bontroc"

var (
	errWrongTokenKind = errors.New("token has the wrong kind")
)

type JWTService struct {
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewJWTService creates the HS256 token service.
func NewJWTService(cfg *config.Config, logger *zap.Logger) shared.TokenService {
	return &JWTService{cfg: cfg, logger: logger.Named("JWTService"), now: time.Now}
}

func (s *JWTService) sign(userData shared.UserDataForToken, kind shared.TokenKind, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &shared.Claims{
		UserID: userData.GetID(),
		Email:  userData.GetEmail(),
		Role:   userData.GetRole(),
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userData.GetID().String(),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		s.logger.Error("Failed to sign token", zap.String("kind", string(kind)), zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

func (s *JWTService) GenerateAccessToken(userData shared.UserDataForToken) (string, time.Time, error) {
	return s.sign(userData, shared.TokenKindAccess, s.cfg.JWTAccessTokenExpiryMinutes)
}

func (s *JWTService) GenerateRefreshToken(userData shared.UserDataForToken) (string, time.Time, error) {
	return s.sign(userData, shared.TokenKindRefresh, s.cfg.JWTRefreshTokenExpiryDays)
}

// ValidateToken verifies signature, algorithm, issuer and expiry.
func (s *JWTService) ValidateToken(tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ParseRefreshToken validates a token and insists it is a refresh token.
func (s *JWTService) ParseRefreshToken(refreshTokenString string) (*shared.Claims, error) {
	claims, err := s.ValidateToken(refreshTokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != shared.TokenKindRefresh {
		return nil, errWrongTokenKind
	}
	return claims, nil
}
