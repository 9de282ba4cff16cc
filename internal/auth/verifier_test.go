package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifierRoundTrip(t *testing.T) {
	verifier := NewVerifier("test-secret")
	token, err := verifier.Sign("user-42")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	userID, err := verifier.UserID(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-42" {
		t.Fatalf("expected user-42, got %q", userID)
	}
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("other-secret").Sign("user-42")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewVerifier("test-secret").UserID(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifierRejectsGarbage(t *testing.T) {
	if _, err := NewVerifier("test-secret").UserID("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifierRejectsExpired(t *testing.T) {
	claims := jwt.MapClaims{"sub": "user-42", "exp": time.Now().Add(-time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewVerifier("test-secret").UserID(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifierRequiresSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewVerifier("test-secret").UserID(token); !errors.Is(err, ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject, got %v", err)
	}
}
