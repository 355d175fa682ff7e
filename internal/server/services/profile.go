package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	// MaxPhotoSide bounds both dimensions of a stored profile photo.
	MaxPhotoSide = 1024

	// MaxSourcePixels bounds the decoded size of an uploaded image. The
	// header is checked before any pixel data is decoded.
	MaxSourcePixels = 40_000_000

	// MaxPhotoBytes caps the encoded upload.
	MaxPhotoBytes = 10 << 20
)

var photoFormats = map[imaging.Format]struct {
	ext         string
	contentType string
}{
	imaging.JPEG: {".jpg", "image/jpeg"},
	imaging.PNG:  {".png", "image/png"},
	imaging.GIF:  {".gif", "image/gif"},
	imaging.BMP:  {".bmp", "image/bmp"},
	imaging.TIFF: {".tiff", "image/tiff"},
}

// ProfileService reads and mutates the caller's own users row. The row is
// always selected by the identity's email.
type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	photos      PhotoStore
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher, photos PhotoStore) *ProfileService {
	return &ProfileService{db: db, repomanager: m, hasher: hasher, photos: photos}
}

// GetProfile returns the caller's row, creating it from the token claims
// when a federated user asks for the first time.
func (s *ProfileService) GetProfile(ctx context.Context, id *auth.Identity) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, id.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	user, err = repo.Create(ctx, &models.User{
		Email:      id.Email,
		FullName:   optional(id.DisplayName),
		FacebookID: optional(id.FederatedID),
		IsActive:   true,
	})
	if errors.Is(err, common.ErrorConflict) {
		// a concurrent request created it first
		user, err = repo.GetByEmail(ctx, id.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies upd to the caller's row. A missing row is
// common.ErrorNotFound; moving to an email already taken is
// common.ErrorConflict.
func (s *ProfileService) UpdateProfile(ctx context.Context, email string, upd models.ProfileUpdate) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	if upd.Empty() {
		return wrapUserErr(repo.GetByEmail(ctx, email))
	}
	return wrapUserErr(repo.UpdateProfile(ctx, email, upd))
}

// ChangePassword replaces the password hash after checking the current
// password. A missing row, a federated-only row and a wrong password all
// yield common.ErrorUnauthorized.
func (s *ProfileService) ChangePassword(ctx context.Context, email, current, next string) error {
	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error looking up user: %w", err)
		}
		if user.HashedPassword == nil || !s.hasher.Verify(current, *user.HashedPassword) {
			return common.ErrorUnauthorized
		}

		if err := repo.UpdatePassword(ctx, email, hashed); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		return nil
	})
}

// UpdatePhotoURL points the caller's photo at an arbitrary URL.
func (s *ProfileService) UpdatePhotoURL(ctx context.Context, email, photoURL string) (*models.User, error) {
	return wrapUserErr(s.repomanager.Users(s.db).UpdatePhotoURL(ctx, email, photoURL))
}

// UploadPhoto normalises an uploaded image (EXIF orientation applied,
// bounded to MaxPhotoSide, re-encoded in its original format or JPEG),
// stores it under a random key and records its URL.
// Input that does not decode as an image, or whose header declares more
// than MaxSourcePixels, is common.ErrorValidation.
func (s *ProfileService) UploadPhoto(ctx context.Context, email, filename string, r io.Reader) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	if _, err := repo.GetByEmail(ctx, email); err != nil {
		return wrapUserErr(nil, err)
	}

	raw, err := io.ReadAll(io.LimitReader(r, MaxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("error reading photo: %w", err)
	}
	if len(raw) > MaxPhotoBytes {
		return nil, fmt.Errorf("%w: photo larger than %d bytes", common.ErrorValidation, MaxPhotoBytes)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: not an image: %v", common.ErrorValidation, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: image %dx%d is too large", common.ErrorValidation, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: not an image: %v", common.ErrorValidation, err)
	}
	img = imaging.Fit(img, MaxPhotoSide, MaxPhotoSide, imaging.Lanczos)

	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.JPEG
	}
	meta := photoFormats[format]

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("error encoding photo: %w", err)
	}

	url, err := s.photos.Save(ctx, uuid.NewString()+meta.ext, meta.contentType, &buf)
	if err != nil {
		return nil, fmt.Errorf("error storing photo: %w", err)
	}

	return wrapUserErr(repo.UpdatePhotoURL(ctx, email, url))
}

func wrapUserErr(user *models.User, err error) (*models.User, error) {
	if err == nil {
		return user, nil
	}
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorConflict) {
		return nil, err
	}
	return nil, fmt.Errorf("error updating user: %w", err)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
