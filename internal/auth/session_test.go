package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	sess, err := store.Create(ctx, "diana", "diana@themyscira.org")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := store.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "diana", got.Username)
	assert.Equal(t, "diana@themyscira.org", got.Email)

	other, err := store.Create(ctx, "diana", "diana@themyscira.org")
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, other.ID)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Lookup(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Lookup(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.NoError(t, store.Delete(ctx, "does-not-exist"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sess, err := store.Create(context.Background(), "clark", "clark@planet.com")
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	_, err = store.Lookup(context.Background(), sess.ID)
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = store.Lookup(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(RedisOptions{Address: mr.Addr()}, time.Hour)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	exerciseStore(t, store)
}

func TestRedisStore_Expiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(RedisOptions{Address: mr.Addr()}, time.Minute)
	defer store.Close()

	sess, err := store.Create(context.Background(), "clark", "clark@planet.com")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+sess.ID))

	mr.FastForward(time.Minute)
	_, err = store.Lookup(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
