package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

// PostgresRepository keeps the blacklist in the blacklisted_tokens table.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO blacklisted_tokens (token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE token = $1)
	`
	var revoked bool
	if err := r.db.QueryRowContext(ctx, query, token).Scan(&revoked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return revoked, nil
}

func (r *PostgresRepository) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM blacklisted_tokens
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
