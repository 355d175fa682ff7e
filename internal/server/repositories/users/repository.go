// Package users declares and implements persistence for user accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the users table contract. Lookups by email are exact-match.
// Missing rows yield common.ErrorNotFound; unique email clashes yield
// common.ErrorConflict.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, email string, upd models.ProfileUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, email string, hashedPassword string) error
	UpdatePhotoURL(ctx context.Context, email string, photoURL string) (*models.User, error)
}
