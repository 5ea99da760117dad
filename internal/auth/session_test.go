package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skip("Redis not available")
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisSessionStore(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisSessionStore(client)
	ctx := context.Background()

	t.Run("create then validate", func(t *testing.T) {
		id, err := store.Create(ctx, "user-a", time.Minute)
		require.NoError(t, err)

		uid, err := store.Validate(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "user-a", uid)
	})

	t.Run("revoke", func(t *testing.T) {
		id, err := store.Create(ctx, "user-b", time.Minute)
		require.NoError(t, err)

		require.NoError(t, store.Revoke(ctx, id))
		_, err = store.Validate(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("revoke all sessions of a user", func(t *testing.T) {
		first, err := store.Create(ctx, "user-c", time.Minute)
		require.NoError(t, err)
		second, err := store.Create(ctx, "user-c", time.Minute)
		require.NoError(t, err)

		require.NoError(t, store.RevokeUser(ctx, "user-c"))

		_, err = store.Validate(ctx, first)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = store.Validate(ctx, second)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("expires", func(t *testing.T) {
		id, err := store.Create(ctx, "user-d", 50*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(150 * time.Millisecond)
		_, err = store.Validate(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := store.Validate(ctx, "")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
