// Package domain contains entity without logic, just meta-data
package domain

import (
	"strings"
)

const (
	MaxUserIDLen = 128
	MaxEmailLen  = 254
)

type UserID string

// Identity is what the verifier vouches for. It is fixed for the lifetime
// of a connection.
type Identity struct {
	UserID UserID `json:"userId"`
	Email  string `json:"email"`
}

// NewIdentity normalizes and checks verifier output.
func NewIdentity(userID, email string) (Identity, error) {
	userID = strings.TrimSpace(userID)
	email = strings.TrimSpace(email)
	if userID == "" {
		return Identity{}, Errorf(KindUnauthenticated, "token has no user id")
	}
	if len(userID) > MaxUserIDLen || len(email) > MaxEmailLen {
		return Identity{}, Errorf(KindUnauthenticated, "token claims too long")
	}
	return Identity{UserID: UserID(userID), Email: email}, nil
}

// DisplayName is what other participants see. The email is the only
// human-readable claim we carry.
func (i Identity) DisplayName() string {
	if i.Email != "" {
		return i.Email
	}
	return string(i.UserID)
}
