package blacklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "gophauth:revoked:"

// redisClient is the part of *redis.Client the cache needs.
type redisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Cached puts a Redis read-through cache in front of another Repository.
// Only positive answers are cached, keyed by the token's SHA-256, and they
// live until the token itself would expire. Redis failures fall back to the
// wrapped store.
type Cached struct {
	next   Repository
	rdb    redisClient
	logger logging.Logger
	now    func() time.Time
}

func NewCached(next Repository, rdb redisClient, logger logging.Logger) *Cached {
	return &Cached{next: next, rdb: rdb, logger: logger.With("module", "blacklist_cache"), now: time.Now}
}

func (c *Cached) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if err := c.next.Revoke(ctx, token, expiresAt); err != nil {
		return err
	}
	c.remember(ctx, token, expiresAt)
	return nil
}

func (c *Cached) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := c.rdb.Exists(ctx, cacheKey(token)).Result()
	if err != nil {
		c.logger.Warn(ctx, "revocation cache read failed", "error", err)
	} else if n > 0 {
		return true, nil
	}

	revoked, err := c.next.IsRevoked(ctx, token)
	if err != nil {
		return false, err
	}
	if revoked {
		// exp is unknown here; a minute is enough to absorb bursts
		c.remember(ctx, token, c.now().Add(time.Minute))
	}
	return revoked, nil
}

func (c *Cached) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.next.PruneExpired(ctx, cutoff)
}

func (c *Cached) remember(ctx context.Context, token string, expiresAt time.Time) {
	ttl := expiresAt.Sub(c.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := c.rdb.Set(ctx, cacheKey(token), 1, ttl).Err(); err != nil {
		c.logger.Warn(ctx, "revocation cache write failed", "error", err)
	}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
