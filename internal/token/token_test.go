package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	m := NewManager("secret", time.Hour)

	tok, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("token %q is not a JWT", tok)
	}

	got, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if got != "user-1" {
		t.Errorf("Verify = %q; want %q", got, "user-1")
	}
}

func TestVerify_Expired(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManager("secret", 7*24*time.Hour)
	m.now = func() time.Time { return issued }

	tok, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	m.now = func() time.Time { return issued.Add(6 * 24 * time.Hour) }
	if _, err := m.Verify(tok); err != nil {
		t.Fatalf("token should still be valid after 6 days: %v", err)
	}

	m.now = func() time.Time { return issued.Add(8 * 24 * time.Hour) }
	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Verify error = %v; want ErrInvalid", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	m := NewManager("secret", time.Hour)
	other := NewManager("other-secret", time.Hour)
	foreign, _ := other.Issue("user-1")

	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":        "not-a-token",
		"wrong secret":   foreign,
		"missing userId": noUser,
		"alg none":       noneAlg,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := m.Verify(raw); !errors.Is(err, ErrInvalid) {
				t.Errorf("Verify error = %v; want ErrInvalid", err)
			}
		})
	}
}
