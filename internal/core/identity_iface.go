package core

import (
	"context"

	"github.com/dkeye/Meet/internal/domain"
)

// IdentityVerifier turns a bearer credential into an identity.
// Failures are domain errors of kind Unauthenticated or Unavailable.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}
