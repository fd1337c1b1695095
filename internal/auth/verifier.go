package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier validates a bearer token and returns the authenticated user id.
// Token issuance belongs to the auth service; this service only verifies
// the shared-secret signature.
type Verifier interface {
	ValidateToken(ctx context.Context, token string) (int, error)
}

type claims struct {
	UserID int `json:"userId"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 tokens signed with the shared secret.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a JWTVerifier.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// ValidateToken parses and verifies the token signature and expiry.
func (v *JWTVerifier) ValidateToken(_ context.Context, token string) (int, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return c.UserID, nil
}
