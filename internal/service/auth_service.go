package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/sma-report-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-report-scheduler/pkg/errors"
)

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
}

// AuthService verifies access tokens minted by the identity service.
type AuthService struct {
	config AuthConfig
	now    func() time.Time
}

// NewAuthService constructs the service.
func NewAuthService(config AuthConfig) *AuthService {
	return &AuthService{config: config, now: time.Now}
}

// IssueToken signs an HS256 access token. Used by tooling and tests.
func (s *AuthService) IssueToken(userID string, role models.UserRole, ttl time.Duration) (string, error) {
	if s.config.AccessTokenSecret == "" {
		return "", errors.New("access token secret not configured")
	}
	now := s.now().UTC()
	claims := models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if s.config.AccessTokenSecret == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token verification not configured")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}
