package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/blacklist"
	usersrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

var errBoom = errors.New("boom")

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// memUsers is an in-memory users.Repository keyed by exact email.
type memUsers struct {
	mu     sync.Mutex
	rows   map[string]*models.User
	nextID int64

	getErr    error
	createErr error
	updateErr error
}

func newMemUsers(rows ...*models.User) *memUsers {
	m := &memUsers{rows: map[string]*models.User{}}
	for _, u := range rows {
		m.nextID++
		u.ID = m.nextID
		m.rows[u.Email] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.rows[u.Email]; ok {
		return nil, common.ErrorConflict
	}
	m.nextID++
	c := *u
	c.ID = m.nextID
	c.IsActive = true
	m.rows[u.Email] = &c
	return &c, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.rows[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, email string, upd models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	u, ok := m.rows[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.Email != nil && *upd.Email != email {
		if _, taken := m.rows[*upd.Email]; taken {
			return nil, common.ErrorConflict
		}
	}
	if upd.FullName != nil {
		u.FullName = upd.FullName
	}
	if upd.Bio != nil {
		u.Bio = upd.Bio
	}
	if upd.Phone != nil {
		u.Phone = upd.Phone
	}
	if upd.Email != nil {
		delete(m.rows, email)
		u.Email = *upd.Email
		m.rows[u.Email] = u
	}
	c := *u
	return &c, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, email, hashed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	u, ok := m.rows[email]
	if !ok {
		return common.ErrorNotFound
	}
	u.HashedPassword = &hashed
	return nil
}

func (m *memUsers) UpdatePhotoURL(_ context.Context, email, photoURL string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	u, ok := m.rows[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.PhotoURL = &photoURL
	c := *u
	return &c, nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// memBlacklist is an in-memory blacklist.Repository.
type memBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	err     error
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{entries: map[string]time.Time{}}
}

func (b *memBlacklist) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if _, ok := b.entries[token]; !ok {
		b.entries[token] = expiresAt
	}
	return nil
}

func (b *memBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return false, b.err
	}
	_, ok := b.entries[token]
	return ok, nil
}

func (b *memBlacklist) PruneExpired(_ context.Context, cutoff time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return 0, b.err
	}
	var n int64
	for tok, exp := range b.entries {
		if exp.Before(cutoff) {
			delete(b.entries, tok)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	users *memUsers
	bl    *memBlacklist
}

func newFakeRepoManager(rows ...*models.User) *fakeRepoManager {
	return &fakeRepoManager{users: newMemUsers(rows...), bl: newMemBlacklist()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository           { return m.users }
func (m *fakeRepoManager) Blacklist(dbx.DBTX) blacklist.Repository       { return m.bl }

func strPtr(s string) *string { return &s }
