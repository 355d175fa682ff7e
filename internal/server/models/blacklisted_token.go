package models

import "time"

// BlacklistedToken is a revoked access token. ExpiresAt is the token's own
// exp (or the revocation time when exp could not be read) and only drives
// pruning.
type BlacklistedToken struct {
	ID            int64
	Token         string
	BlacklistedOn time.Time
	ExpiresAt     time.Time
}
