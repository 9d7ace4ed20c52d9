package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/caseflow/pkg/adapters/redis"
	"github.com/aretw0/caseflow/pkg/ports/tests"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore_Contract(t *testing.T) {
	store := redis.NewFromClient(newTestClient(t))
	tests.RunExecutionStoreContract(t, store)
}

func TestRedisLocker(t *testing.T) {
	client := newTestClient(t)
	locker := redis.NewLocker(client, "caseflow:")
	ctx := context.Background()

	t.Run("acquire and release", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "instance-1", time.Minute)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))

		// Released lock is immediately acquirable again.
		unlock2, err := locker.Lock(ctx, "instance-1", time.Minute)
		require.NoError(t, err)
		require.NoError(t, unlock2(ctx))
	})

	t.Run("held lock blocks until context cancel", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "instance-2", time.Minute)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		timeout, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(timeout, "instance-2", time.Minute)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("stale unlock does not release a newer lock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, "instance-3", time.Minute)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))

		unlock2, err := locker.Lock(ctx, "instance-3", time.Minute)
		require.NoError(t, err)

		// Re-running the first unlock is a no-op: the value no longer matches.
		require.NoError(t, unlock(ctx))

		timeout, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(timeout, "instance-3", time.Minute)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		require.NoError(t, unlock2(ctx))
	})
}
