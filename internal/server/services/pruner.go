package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// RevocationPruner periodically deletes blacklist entries whose token has
// expired on its own. Such tokens fail verification anyway, so removing
// them never makes a token valid again.
type RevocationPruner struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	interval    time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewRevocationPruner(db *sql.DB, m repomanager.RepositoryManager, interval time.Duration, logger logging.Logger) *RevocationPruner {
	return &RevocationPruner{
		db:          db,
		repomanager: m,
		interval:    interval,
		logger:      logger.With("module", "pruner"),
		now:         time.Now,
	}
}

// PruneOnce removes expired entries and returns how many were deleted.
func (p *RevocationPruner) PruneOnce(ctx context.Context) (int64, error) {
	return p.repomanager.Blacklist(p.db).PruneExpired(ctx, p.now())
}

// Run prunes every interval until ctx is done. Errors are logged and the
// loop continues.
func (p *RevocationPruner) Run(ctx context.Context) {
	if p.interval <= 0 {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info(ctx, "revocation pruner started", "interval", p.interval.String())
	for {
		select {
		case <-ctx.Done():
			p.logger.Info(ctx, "revocation pruner stopped")
			return
		case <-ticker.C:
			n, err := p.PruneOnce(ctx)
			if err != nil {
				p.logger.Error(ctx, "prune failed", "error", err)
				continue
			}
			if n > 0 {
				p.logger.Info(ctx, "pruned revoked tokens", "count", n)
			}
		}
	}
}
