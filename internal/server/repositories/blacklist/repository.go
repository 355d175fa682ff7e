// Package blacklist stores revoked access tokens.
package blacklist

import (
	"context"
	"time"
)

// Repository is the revocation list. Tokens are compared as opaque strings.
type Repository interface {
	// Revoke records token. Revoking an already revoked token is a no-op.
	// expiresAt only decides when the entry may be pruned.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error

	// IsRevoked reports whether token has been revoked.
	IsRevoked(ctx context.Context, token string) (bool, error)

	// PruneExpired deletes entries whose expiresAt is before cutoff and
	// returns how many were removed.
	PruneExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
