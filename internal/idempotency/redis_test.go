package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker(t *testing.T) (*RedisChecker, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisChecker(client, "solid", "notify"), server
}

func TestRedisChecker_CheckAndSet(t *testing.T) {
	checker, server := newChecker(t)
	ctx := context.Background()

	isNew, err := checker.CheckAndSet(ctx, "abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, server.Exists("solid:idemp:notify:abc"))

	isNew, err = checker.CheckAndSet(ctx, "abc", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	server.FastForward(2 * time.Hour)
	isNew, err = checker.CheckAndSet(ctx, "abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestRedisChecker_Release(t *testing.T) {
	checker, _ := newChecker(t)
	ctx := context.Background()

	_, err := checker.CheckAndSet(ctx, "abc", time.Hour)
	require.NoError(t, err)
	require.NoError(t, checker.Release(ctx, "abc"))

	isNew, err := checker.CheckAndSet(ctx, "abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestRedisChecker_Errors(t *testing.T) {
	checker, server := newChecker(t)
	ctx := context.Background()

	_, err := checker.CheckAndSet(ctx, "", time.Hour)
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.ErrorIs(t, checker.Release(ctx, ""), ErrEmptyKey)

	server.Close()
	_, err = checker.CheckAndSet(ctx, "abc", time.Hour)
	assert.ErrorIs(t, err, ErrRedisSetFailed)
}
