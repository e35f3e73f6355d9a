package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCacheFromClient(client), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := setupRedis(t)
	ctx := context.Background()

	type payload struct {
		Count int64  `json:"count"`
		Name  string `json:"name"`
	}

	err := c.Set(ctx, "quota:usage:1:employees:2026-01", payload{Count: 9, Name: "employees"}, 5*time.Minute)
	require.NoError(t, err)

	var got payload
	found, err := c.Get(ctx, "quota:usage:1:employees:2026-01", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(9), got.Count)
	assert.Equal(t, "employees", got.Name)
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := setupRedis(t)

	var got map[string]any
	found, err := c.Get(context.Background(), "access:plan-modules:404", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", time.Minute))

	mr.FastForward(2 * time.Minute)

	var got string
	found, err := c.Get(ctx, "key", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_Forget(t *testing.T) {
	c, _ := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, c.Forget(ctx, "a", "b"))

	var got int
	found, err := c.Get(ctx, "a", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := setupRedis(t)

	require.NoError(t, mr.Set("bad", "{not json"))

	var got map[string]any
	found, err := c.Get(context.Background(), "bad", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache_ForgetNoKeys(t *testing.T) {
	c, _ := setupRedis(t)
	assert.NoError(t, c.Forget(context.Background()))
}
