package userdb

import (
	"context"
	"path/filepath"
	"testing"

	"blogpost/config"
	"blogpost/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "users.db") + "?_pragma=foreign_keys(1)"
	db, err := Open(context.Background(), "sqlite", dsn, zap.NewNop())
	require.NoError(t, err)
	db.cost = bcrypt.MinCost
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSeedAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	encoded, err := bcrypt.GenerateFromPassword([]byte("second"), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, db.Seed(ctx, config.AdminConfig{
		Username:        "admin",
		Password:        "secret",
		Roles:           []string{"ADMIN"},
		EncodedPassword: "{bcrypt}" + string(encoded),
	}))

	p, err := db.Authenticate(ctx, domain.Credential{Username: "admin", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Username)
	assert.True(t, p.HasRole(domain.RoleAdmin))

	p, err = db.Authenticate(ctx, domain.Credential{Username: "admin2", Password: "second"})
	require.NoError(t, err)
	assert.True(t, p.HasRole(domain.RoleAdmin))
}

func TestAuthenticateRejects(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.Seed(ctx, config.AdminConfig{Username: "admin", Password: "secret", Roles: []string{"ADMIN"}}))

	cases := map[string]domain.Credential{
		"wrong password": {Username: "admin", Password: "nope"},
		"unknown user":   {Username: "mallory", Password: "secret"},
		"empty password": {Username: "admin"},
		"empty":          {},
	}
	for name, cred := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := db.Authenticate(ctx, cred)
			assert.ErrorIs(t, err, domain.ErrBadCredentials)
			assert.False(t, p.Authenticated())
		})
	}

	require.NoError(t, db.SetEnabled(ctx, "admin", false))
	_, err := db.Authenticate(ctx, domain.Credential{Username: "admin", Password: "secret"})
	assert.ErrorIs(t, err, domain.ErrBadCredentials)

	assert.Error(t, db.SetEnabled(ctx, "ghost", true))
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.Seed(ctx, config.AdminConfig{Username: "admin", Password: "secret", Roles: []string{"ADMIN"}}))

	p, err := db.Lookup(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Username)
	assert.True(t, p.HasRole(domain.RoleAdmin))

	_, err = db.Lookup(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrBadCredentials)
	_, err = db.Lookup(ctx, "")
	assert.ErrorIs(t, err, domain.ErrBadCredentials)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.CreateUser(ctx, "admin", string(hash), []string{"USER"}))
	p, err = db.Lookup(ctx, "admin")
	require.NoError(t, err)
	assert.False(t, p.HasRole(domain.RoleAdmin))

	require.NoError(t, db.SetEnabled(ctx, "admin", false))
	p, err = db.Lookup(ctx, "admin")
	assert.ErrorIs(t, err, domain.ErrBadCredentials)
	assert.False(t, p.Authenticated())
}

func TestCreateUserReplacesRoles(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.CreateUser(ctx, "bob", string(hash), []string{"ADMIN", "USER"}))
	require.NoError(t, db.CreateUser(ctx, "bob", string(hash), []string{"USER"}))

	p, err := db.Authenticate(ctx, domain.Credential{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_USER"}, p.Roles)
	assert.False(t, p.HasRole(domain.RoleAdmin))
}

func TestSeedRejectsPlainEncodedPassword(t *testing.T) {
	db := openTestDB(t)
	err := db.Seed(context.Background(), config.AdminConfig{
		Username:        "admin",
		Password:        "secret",
		Roles:           []string{"ADMIN"},
		EncodedPassword: "not-a-hash",
	})
	assert.Error(t, err)
}

func TestReopenKeepsSchema(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "users.db")

	db, err := Open(ctx, "sqlite", dsn, zap.NewNop())
	require.NoError(t, err)
	db.cost = bcrypt.MinCost
	require.NoError(t, db.Seed(ctx, config.AdminConfig{Username: "admin", Password: "secret", Roles: []string{"ADMIN"}}))
	require.NoError(t, db.Close())

	db, err = Open(ctx, "sqlite", dsn, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Authenticate(ctx, domain.Credential{Username: "admin", Password: "secret"})
	assert.NoError(t, err)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "whatever", zap.NewNop())
	assert.Error(t, err)
}
