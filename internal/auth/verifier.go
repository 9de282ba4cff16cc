package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, forged, or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSubject is returned for a valid token with no user identity.
	ErrNoSubject = errors.New("token has no subject")
)

// Verifier resolves HS256 bearer tokens to the user ID in the `sub`
// claim. It implements app.IdentityVerifier.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) UserID(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrNoSubject
	}
	return subject, nil
}

// Sign mints a token for a user ID. The service itself only verifies;
// this helper exists for tooling and tests.
func (v *Verifier) Sign(userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": userID})
	return token.SignedString(v.secret)
}
