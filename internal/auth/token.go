package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// ErrInvalidToken covers every verification failure: bad signature, malformed
// input, expiry, or an unknown role claim. Callers never learn which.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager issues and validates signed identity tokens. Verification is a
// pure function of the token bytes and the signing key; no I/O.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims describes the JWT payload: subject email plus a ROLE_-prefixed role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue builds and signs a token for the subject. The role claim is
// normalized to its canonical ROLE_ form before signing.
func (tm *TokenManager) Issue(subject string, role domain.Role) (string, time.Time, error) {
	normalized, ok := domain.NormalizeRole(string(role))
	if !ok {
		return "", time.Time{}, errors.New("unknown role")
	}

	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Role: string(normalized),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify validates the token and returns its subject and role. Any failure
// collapses to ErrInvalidToken.
func (tm *TokenManager) Verify(tokenStr string) (string, domain.Role, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return "", "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", "", ErrInvalidToken
	}
	role, ok := domain.NormalizeRole(claims.Role)
	if !ok {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, role, nil
}
