package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			t.Skipf("Redis not available: %v", err)
		}
		return client, nil
	}

	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestRedisAdapter_GetMissingKey(t *testing.T) {
	client, _ := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "test:", 0)
	client.Del(ctx, "test:missing")

	value, ok, err := adapter.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestRedisAdapter_SetGetDelete(t *testing.T) {
	client, _ := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "test:", 0)

	require.NoError(t, adapter.Set(ctx, "cart-state", `{"lines":[]}`))

	// Verify the prefix is applied on the wire
	raw, err := client.Get(ctx, "test:cart-state").Result()
	require.NoError(t, err)
	assert.Equal(t, `{"lines":[]}`, raw)

	value, ok, err := adapter.Get(ctx, "cart-state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"lines":[]}`, value)

	require.NoError(t, adapter.Delete(ctx, "cart-state"))
	_, ok, err = adapter.Get(ctx, "cart-state")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAdapter_DefaultPrefix(t *testing.T) {
	client, _ := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "", 0)
	require.NoError(t, adapter.Set(ctx, "wishlist-state", "[]"))

	raw, err := client.Get(ctx, defaultKeyPrefix+"wishlist-state").Result()
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestRedisAdapter_TTL(t *testing.T) {
	client, mr := getRedisClient(t)
	defer client.Close()
	if mr == nil {
		t.Skip("TTL expiry is checked against miniredis only")
	}

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "test:", time.Hour)
	require.NoError(t, adapter.Set(ctx, "cart-state", "{}"))

	assert.Equal(t, time.Hour, mr.TTL("test:cart-state"))

	mr.FastForward(2 * time.Hour)
	_, ok, err := adapter.Get(ctx, "cart-state")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisAdapter_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	adapter := NewRedisAdapter(client, "test:", 0)
	mr.Close()

	_, _, err := adapter.Get(context.Background(), "cart-state")
	assert.Error(t, err)
	assert.Error(t, adapter.Set(context.Background(), "cart-state", "{}"))
}

func TestRedisAdapter_LastWriteWins(t *testing.T) {
	client, _ := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "test:", 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adapter.Set(ctx, "shared", "value"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, adapter.Set(ctx, "shared", "final"))
	value, ok, err := adapter.Get(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "final", value)
}
