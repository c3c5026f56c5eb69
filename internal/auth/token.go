// Package auth verifies and mints the bearer tokens that identify users on
// both the socket handshake and the REST surface.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	"github.com/golang-jwt/jwt/v4"
)

const (
	ClaimUserID = "userId"
	ClaimEmail  = "email"
)

var errNoSecret = errors.New("jwt secret is empty")

// Issue mints an HS256 token carrying the identity claims.
func Issue(id domain.Identity, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errNoSecret
	}
	claims := jwt.MapClaims{
		ClaimUserID: string(id.UserID),
		ClaimEmail:  id.Email,
		"iat":       now.Unix(),
		"exp":       now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errNoSecret
	}
	return &Verifier{secret: secret}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, domain.Wrap(domain.KindUnavailable, err, "verification timed out")
	}
	if token == "" {
		return domain.Identity{}, domain.Errorf(domain.KindUnauthenticated, "authentication token required")
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, domain.Wrap(domain.KindUnauthenticated, err, "invalid or expired token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, domain.Errorf(domain.KindUnauthenticated, "invalid token")
	}
	if _, ok := claims["exp"]; !ok {
		return domain.Identity{}, domain.Errorf(domain.KindUnauthenticated, "token has no expiry")
	}
	return IdentityFromClaims(claims)
}

func IdentityFromClaims(claims map[string]interface{}) (domain.Identity, error) {
	uid, _ := claims[ClaimUserID].(string)
	email, _ := claims[ClaimEmail].(string)
	return domain.NewIdentity(uid, email)
}
