// Package services contains server-side business logic. This file implements
// AuthService, which registers users, checks passwords, exchanges federated
// tokens and revokes access tokens on logout.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/federated"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// AuthService issues access tokens. Register, Login and FederatedLogin all
// end in the same issuance step, so the SessionGuard never needs to know
// how a token was obtained.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.TokenCodec
	hasher      *auth.PasswordHasher
	providers   map[string]federated.Provider
	now         func() time.Time
}

// NewAuthService wires the service. providers is keyed by provider name
// ("facebook", "google"); a nil map disables federated login.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, codec *auth.TokenCodec,
	hasher *auth.PasswordHasher, providers map[string]federated.Provider) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		codec:       codec,
		hasher:      hasher,
		providers:   providers,
		now:         time.Now,
	}
}

// Register creates a password account and returns its first access token.
// An existing email yields common.ErrorConflict.
func (s *AuthService) Register(ctx context.Context, email, password string, fullName *string) (string, error) {
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			return common.ErrorConflict
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("error looking up user: %w", err)
		}

		if _, err := repo.Create(ctx, &models.User{Email: email, HashedPassword: &hashed, FullName: fullName}); err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return s.issue(auth.Identity{Email: email})
}

// Login checks email and password. Every credential mismatch, including an
// unknown email or a federated-only account, is common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("error looking up user: %w", err)
	}

	if user.HashedPassword == nil || !s.hasher.Verify(password, *user.HashedPassword) {
		return "", common.ErrorUnauthorized
	}

	return s.issue(auth.Identity{Email: user.Email})
}

// FederatedLogin exchanges providerToken with the named provider. The local
// users table is neither read nor written; the identity lives in the claims.
func (s *AuthService) FederatedLogin(ctx context.Context, provider, providerToken string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("%w: provider %q", common.ErrorNotFound, provider)
	}

	id, err := p.Exchange(ctx, providerToken)
	if err != nil {
		return "", err
	}

	return s.issue(*id)
}

// Logout revokes token whatever its state. Unparseable or expired strings
// are accepted and stored as they are.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	expiresAt, ok := auth.ExpiresAt(token)
	if !ok {
		expiresAt = s.now()
	}

	if err := s.repomanager.Blacklist(s.db).Revoke(ctx, token, expiresAt); err != nil {
		return fmt.Errorf("error revoking token: %w", err)
	}
	return nil
}

func (s *AuthService) issue(id auth.Identity) (string, error) {
	token, err := s.codec.Issue(id)
	if err != nil {
		return "", fmt.Errorf("error issuing token: %w", err)
	}
	return token, nil
}
