// Package auth issues and verifies bearer credentials. It is the only
// place that knows about JWTs or password hashing; the rest of the
// service works with a verified Identity.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quentinlc/lobbychat/internal/domain"
)

// Claims is the data carried inside a signed token. Lobby membership
// is deliberately not a claim: tokens outlive joins and leaves, so the
// directory is consulted on every operation instead.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is a verified caller.
type Identity struct {
	UserID domain.UserID
	Role   string
}

type Verifier struct {
	secret []byte
	ttl    time.Duration
}

func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed HS256 token for the user.
func (v *Verifier) Issue(u *domain.User) (string, error) {
	claims := &Claims{
		UserID: string(u.ID),
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(v.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "lobbychat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Verify parses and validates the signature and expiration of a token
// string and returns the identity it asserts.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%v: %w", err, domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	return Identity{UserID: domain.UserID(claims.UserID), Role: claims.Role}, nil
}
