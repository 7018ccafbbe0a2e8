package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/env"
)

const tokenLifetime = 24 * time.Hour

// Claims are the admin session claims carried in the signed token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies admin session tokens.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuerFromEnv reads the signing secret from JWT_SECRET.
func NewTokenIssuerFromEnv() (*TokenIssuer, error) {
	secret := strings.TrimSpace(env.GetEnv("JWT_SECRET", ""))
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not configured")
	}
	return &TokenIssuer{secret: []byte(secret)}, nil
}

func NewTokenIssuer(secret []byte) *TokenIssuer {
	return &TokenIssuer{secret: secret}
}

// Issue creates a signed token for the given admin, valid for 24 hours.
func (t *TokenIssuer) Issue(admin *models.AdminUser) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", admin.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a token string and returns its claims.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
