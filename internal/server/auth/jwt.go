// Package auth holds the stateless credential primitives: the HS256 token
// codec and the bcrypt password hasher.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload. Subject carries the user's email.
type Claims struct {
	jwt.RegisteredClaims
	Name        string `json:"name,omitempty"`
	FederatedID string `json:"federated_id,omitempty"`
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	Email       string
	DisplayName string
	FederatedID string
}

// TokenCodec signs and verifies access tokens with a process-wide secret.
// It performs no I/O and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs id with the default TTL.
func (c *TokenCodec) Issue(id Identity) (string, error) {
	return c.IssueWithTTL(id, c.ttl)
}

// IssueWithTTL signs id with an explicit lifetime.
func (c *TokenCodec) IssueWithTTL(id Identity, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			ExpiresAt: jwt.NewNumericDate(c.now().Add(ttl)),
		},
		Name:        id.DisplayName,
		FederatedID: id.FederatedID,
	})

	return token.SignedString(c.secret)
}

// Verify parses tokenString and checks signature and expiry. Failures map
// to common.ErrTokenMalformed, common.ErrTokenSignature or
// common.ErrTokenExpired.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, common.ErrTokenSignature
		default:
			return nil, common.ErrTokenMalformed
		}
	}

	return claims, nil
}

// ExpiresAt reads exp without verifying anything. It is used to size
// blacklist entries and must never be used to authorize.
func ExpiresAt(tokenString string) (time.Time, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
