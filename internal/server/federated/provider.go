// Package federated exchanges third-party login tokens for identities.
// Every failure, whatever its cause, is reported as common.ErrorUnauthorized
// so provider details never reach callers or token claims.
package federated

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
)

// Provider turns a provider-issued token into an identity.
type Provider interface {
	Exchange(ctx context.Context, providerToken string) (*auth.Identity, error)
}

func reject(provider string, cause any) error {
	return fmt.Errorf("%w: %s: %v", common.ErrorUnauthorized, provider, cause)
}
