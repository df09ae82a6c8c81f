package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"book-service/internal/entity"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = time.Hour

// TokenManager issues and verifies HS256 signed bearer tokens carrying the username as subject.
// Tokens cannot be revoked; validity is signature plus expiry.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for username and returns it with its expiry time.
func (m *TokenManager) Issue(username string) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt.Truncate(time.Second), nil
}

// Verify checks signature, algorithm and expiry and returns the token subject.
// Every failure wraps entity.ErrUnauthorized.
func (m *TokenManager) Verify(tokenStr string) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("%w: jwt secret is empty", entity.ErrUnauthorized)
	}

	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return "", fmt.Errorf("%w: %v", entity.ErrUnauthorized, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: token has no subject", entity.ErrUnauthorized)
	}
	return claims.Subject, nil
}
