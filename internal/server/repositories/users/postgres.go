package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, email, hashed_password, full_name, bio, phone, photo_url, is_active, facebook_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (email, hashed_password, full_name, facebook_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, query, user.Email, user.HashedPassword, user.FullName, user.FacebookID)
	created, err := scanUser(row)
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT ` + userColumns + ` FROM users
		 WHERE email = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of upd in a single statement.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, email string, upd models.ProfileUpdate) (*models.User, error) {
	query :=
		`UPDATE users SET
		   full_name = COALESCE($2, full_name),
		   bio = COALESCE($3, bio),
		   phone = COALESCE($4, phone),
		   email = COALESCE($5, email)
		 WHERE email = $1
		 RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, query, email, upd.FullName, upd.Bio, upd.Phone, upd.Email)
	user, err := scanUser(row)
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, email string, hashedPassword string) error {
	query :=
		`UPDATE users SET hashed_password = $2
		 WHERE email = $1`

	res, err := r.db.ExecContext(ctx, query, email, hashedPassword)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdatePhotoURL(ctx context.Context, email string, photoURL string) (*models.User, error) {
	query :=
		`UPDATE users SET photo_url = $2
		 WHERE email = $1
		 RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email, photoURL))
	if err != nil {
		return nil, mapError(err)
	}
	return user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u                                                  models.User
		hashed, fullName, bio, phone, photoURL, facebookID sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &hashed, &fullName, &bio, &phone, &photoURL, &u.IsActive, &facebookID)
	if err != nil {
		return nil, err
	}
	u.HashedPassword = nullable(hashed)
	u.FullName = nullable(fullName)
	u.Bio = nullable(bio)
	u.Phone = nullable(phone)
	u.PhotoURL = nullable(photoURL)
	u.FacebookID = nullable(facebookID)
	return &u, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("db error: %w", err)
}
