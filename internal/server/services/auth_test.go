package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/federated"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeProvider struct {
	id    *auth.Identity
	err   error
	calls int
}

func (p *fakeProvider) Exchange(context.Context, string) (*auth.Identity, error) {
	p.calls++
	return p.id, p.err
}

func newTestCodec() *auth.TokenCodec {
	return auth.NewTokenCodec("test-secret", 30*time.Minute)
}

func newTestHasher() *auth.PasswordHasher {
	return auth.NewPasswordHasher(bcrypt.MinCost)
}

func newAuthService(t *testing.T, rm *fakeRepoManager, providers map[string]federated.Provider) (*AuthService, func(expectCommit bool)) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	s := NewAuthService(db, rm, newTestCodec(), newTestHasher(), providers)
	expectTx := func(commit bool) {
		mock.ExpectBegin()
		if commit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("sql expectations: %v", err)
		}
	})
	return s, expectTx
}

func TestRegisterThenLogin_SameSubject(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	s, expectTx := newAuthService(t, rm, nil)
	expectTx(true)
	ctx := context.Background()

	tokA, err := s.Register(ctx, "a@x.com", "p1", strPtr("Ann"))
	require.NoError(t, err)

	tokB, err := s.Login(ctx, "a@x.com", "p1")
	require.NoError(t, err)

	codec := newTestCodec()
	ca, err := codec.Verify(tokA)
	require.NoError(t, err)
	cb, err := codec.Verify(tokB)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", ca.Subject)
	assert.Equal(t, ca.Subject, cb.Subject)

	u, err := rm.users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, u.HashedPassword)
	assert.NotEqual(t, "p1", *u.HashedPassword)
	assert.Equal(t, "Ann", *u.FullName)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	s, expectTx := newAuthService(t, rm, nil)
	expectTx(true)
	expectTx(false)
	ctx := context.Background()

	_, err := s.Register(ctx, "a@x.com", "p1", nil)
	require.NoError(t, err)

	_, err = s.Register(ctx, "a@x.com", "other", nil)
	require.ErrorIs(t, err, common.ErrorConflict)
	assert.Equal(t, 1, rm.users.count())
}

func TestRegister_EmailIsCaseSensitive(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	s, expectTx := newAuthService(t, rm, nil)
	expectTx(true)
	expectTx(true)
	ctx := context.Background()

	_, err := s.Register(ctx, "a@x.com", "p1", nil)
	require.NoError(t, err)
	_, err = s.Register(ctx, "A@x.com", "p1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rm.users.count())
}

func TestRegister_LookupError(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	rm.users.getErr = errBoom
	s, expectTx := newAuthService(t, rm, nil)
	expectTx(false)

	_, err := s.Register(context.Background(), "a@x.com", "p1", nil)
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "error looking up user")
}

func TestRegister_CreateError(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	rm.users.createErr = errBoom
	s, expectTx := newAuthService(t, rm, nil)
	expectTx(false)

	_, err := s.Register(context.Background(), "a@x.com", "p1", nil)
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "error creating user")
}

func TestLogin_Failures(t *testing.T) {
	t.Parallel()

	hashed, err := newTestHasher().Hash("right")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "a@x.com", "wrong"},
		{"unknown email", "nobody@x.com", "right"},
		{"federated-only account", "fb@x.com", "right"},
		{"case differs", "A@x.com", "right"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rm := newFakeRepoManager(
				&models.User{Email: "a@x.com", HashedPassword: &hashed},
				&models.User{Email: "fb@x.com", FacebookID: strPtr("fb-1")},
			)
			s, _ := newAuthService(t, rm, nil)

			tok, err := s.Login(context.Background(), tt.email, tt.password)
			assert.Empty(t, tok)
			assert.True(t, errors.Is(err, common.ErrorUnauthorized), "got %v", err)
		})
	}
}

func TestLogin_StoreError(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	rm.users.getErr = errBoom
	s, _ := newAuthService(t, rm, nil)

	_, err := s.Login(context.Background(), "a@x.com", "p")
	require.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

func TestFederatedLogin_Success(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	p := &fakeProvider{id: &auth.Identity{Email: "fb@x.com", DisplayName: "Fay", FederatedID: "fb-9"}}
	s, _ := newAuthService(t, rm, map[string]federated.Provider{"facebook": p})

	tok, err := s.FederatedLogin(context.Background(), "facebook", "provider-token")
	require.NoError(t, err)

	claims, err := newTestCodec().Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "fb@x.com", claims.Subject)
	assert.Equal(t, "Fay", claims.Name)
	assert.Equal(t, "fb-9", claims.FederatedID)
	assert.Equal(t, 0, rm.users.count(), "federated login must not touch users")
}

func TestFederatedLogin_Rejected(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	p := &fakeProvider{err: fmtUnauthorized()}
	s, _ := newAuthService(t, rm, map[string]federated.Provider{"facebook": p})

	tok, err := s.FederatedLogin(context.Background(), "facebook", "bad")
	assert.Empty(t, tok)
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Equal(t, 0, rm.users.count())
}

func TestFederatedLogin_UnknownProvider(t *testing.T) {
	t.Parallel()

	s, _ := newAuthService(t, newFakeRepoManager(), nil)
	_, err := s.FederatedLogin(context.Background(), "google", "x")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLogout_RecordsTokenExpiry(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm, nil)
	tok, err := newTestCodec().Issue(auth.Identity{Email: "a@x.com"})
	require.NoError(t, err)
	exp, ok := auth.ExpiresAt(tok)
	require.True(t, ok)

	require.NoError(t, s.Logout(context.Background(), tok))
	require.NoError(t, s.Logout(context.Background(), tok), "revoking twice is not an error")

	assert.Equal(t, exp, rm.bl.entries[tok])
	assert.Len(t, rm.bl.entries, 1)
}

func TestLogout_AcceptsGarbage(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm, nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Logout(context.Background(), "not-a-token"))
	revoked, err := rm.bl.IsRevoked(context.Background(), "not-a-token")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, now, rm.bl.entries["not-a-token"])
}

func TestLogout_StoreError(t *testing.T) {
	t.Parallel()

	rm := newFakeRepoManager()
	rm.bl.err = errBoom
	s, _ := newAuthService(t, rm, nil)

	err := s.Logout(context.Background(), "t")
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "error revoking token")
}

func fmtUnauthorized() error {
	return errors.Join(common.ErrorUnauthorized, errors.New("facebook: 400"))
}
