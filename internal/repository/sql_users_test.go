package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepo(t *testing.T) *SQLUserRepository {
	t.Helper()
	repo, err := OpenUsers(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLUserRepository_CreateAndLookup(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateUser(ctx, &User{Username: "peter", Email: "peter@dailybugle.com", PasswordHash: "$argon2id$hash"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, "peter")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, "$argon2id$hash", byName.PasswordHash)
	assert.WithinDuration(t, created.CreatedAt, byName.CreatedAt, 0)

	byEmail, err := repo.GetByEmail(ctx, "peter@dailybugle.com")
	require.NoError(t, err)
	assert.Equal(t, "peter", byEmail.Username)

	assert.NoError(t, repo.Ping(ctx))
}

func TestSQLUserRepository_DuplicateEmail(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, &User{Username: "bruce", Email: "bruce@wayne.com", PasswordHash: "h1"})
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, &User{Username: "batman", Email: "bruce@wayne.com", PasswordHash: "h2"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestSQLUserRepository_NotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRebind(t *testing.T) {
	pg := &SQLUserRepository{driver: DriverPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	lite := &SQLUserRepository{driver: DriverSQLite}
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
}

func TestOpenUsers_UnknownDriver(t *testing.T) {
	_, err := OpenUsers(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
}
