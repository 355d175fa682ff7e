package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so that services can
// run them either directly on the pool or inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Blacklist(db dbx.DBTX) blacklist.Repository
}
