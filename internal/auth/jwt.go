package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long minted API tokens stay valid unless told otherwise.
const DefaultTTL = 24 * time.Hour

const issuer = "redesign-feedback"

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// GenerateToken signs an HS256 token for subject that expires after ttl.
func GenerateToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("jwt secret is empty")
	}
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// ParseToken verifies tokenString and returns its subject.
func ParseToken(secret []byte, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
