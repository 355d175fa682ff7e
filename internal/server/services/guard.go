package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// SessionGuard resolves a bearer token into an identity. It is the only
// place where tokens are verified for protected operations.
type SessionGuard struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.TokenCodec
}

func NewSessionGuard(db *sql.DB, m repomanager.RepositoryManager, codec *auth.TokenCodec) *SessionGuard {
	return &SessionGuard{db: db, repomanager: m, codec: codec}
}

// Authenticate checks, in order: revocation, signature and expiry, subject.
// Every failure wraps common.ErrorUnauthorized except a failed revocation
// lookup, which keeps its storage error so it can be logged as such.
func (g *SessionGuard) Authenticate(ctx context.Context, token string) (*auth.Identity, error) {
	revoked, err := g.repomanager.Blacklist(g.db).IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error checking revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenRevoked)
	}

	claims, err := g.codec.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token without subject", common.ErrorUnauthorized)
	}

	return &auth.Identity{
		Email:       claims.Subject,
		DisplayName: claims.Name,
		FederatedID: claims.FederatedID,
	}, nil
}
