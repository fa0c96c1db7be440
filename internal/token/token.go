// Package token issues and verifies the signed access tokens handed to
// clients after signup and login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrInvalid is returned for malformed, tampered or expired tokens.
var ErrInvalid = errors.New("invalid token")

// Claims is the token payload.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Manager signs tokens with an HMAC secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	// now is replaced in tests.
	now func() time.Time
}

// NewManager returns a Manager issuing HS256 tokens valid for ttl.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token carrying userID.
func (m *Manager) Issue(userID string) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns the user id it
// carries.
func (m *Manager) Verify(raw string) (string, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// Expiry is checked against m.now rather than jwt.TimeFunc.
	if !claims.VerifyExpiresAt(m.now(), true) {
		return "", fmt.Errorf("%w: expired", ErrInvalid)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing user id", ErrInvalid)
	}
	return claims.UserID, nil
}
