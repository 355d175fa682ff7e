//go:build integration

package repomanager

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgres_EndToEnd(t *testing.T) {
	ctx := context.Background()

	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("gophauth"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pg) })

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := dbx.Open(ctx, DriverName, dsn, 30*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := NewPostgresRepositoryManager()
	require.NoError(t, m.RunMigrations(ctx, db))

	hash := "hash"
	u, err := m.Users(db).Create(ctx, &models.User{Email: "a@x.com", HashedPassword: &hash})
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	_, err = m.Users(db).Create(ctx, &models.User{Email: "a@x.com"})
	assert.ErrorIs(t, err, common.ErrorConflict)

	bio := "hello"
	updated, err := m.Users(db).UpdateProfile(ctx, "a@x.com", models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello", *updated.Bio)
	assert.Equal(t, "hash", *updated.HashedPassword)

	bl := m.Blacklist(db)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, bl.Revoke(ctx, "tok", past))
	require.NoError(t, bl.Revoke(ctx, "tok", past))

	revoked, err := bl.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	n, err := bl.PruneExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
