// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/migrations"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DriverName is the database/sql driver registered by pgx/stdlib.
const DriverName = "pgx"

// PostgresRepositoryManager vends PostgreSQL-backed repositories. When a
// blacklist decorator is set, Blacklist wraps every repository with it.
type PostgresRepositoryManager struct {
	wrapBlacklist func(blacklist.Repository) blacklist.Repository
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// Blacklist returns a blacklist.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Blacklist(db dbx.DBTX) blacklist.Repository {
	var repo blacklist.Repository = blacklist.NewPostgresRepository(db)
	if m.wrapBlacklist != nil {
		repo = m.wrapBlacklist(repo)
	}
	return repo
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(DriverName); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// Option customises a PostgresRepositoryManager.
type Option func(*PostgresRepositoryManager)

// WithBlacklistDecorator wraps every blacklist repository, e.g. with
// blacklist.NewCached.
func WithBlacklistDecorator(wrap func(blacklist.Repository) blacklist.Repository) Option {
	return func(m *PostgresRepositoryManager) { m.wrapBlacklist = wrap }
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(opts ...Option) RepositoryManager {
	m := &PostgresRepositoryManager{}
	for _, o := range opts {
		o(m)
	}
	return m
}
