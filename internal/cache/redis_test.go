package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ar2em/subscription-bot/internal/config"
	"github.com/ar2em/subscription-bot/internal/models"
)

func setupTestCache(t *testing.T) *Cache {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache
}

func TestSetAndGet(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	expected := models.Subscription{
		UserID:    42,
		Status:    models.StatusActive,
		ExpiresAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	err := cache.Set(ctx, "subscription:42", expected, time.Minute)
	require.NoError(t, err)

	var actual models.Subscription
	found, err := cache.Get(ctx, "subscription:42", &actual)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, expected.UserID, actual.UserID)
	assert.Equal(t, expected.Status, actual.Status)
	assert.True(t, expected.ExpiresAt.Equal(actual.ExpiresAt))
}

func TestGetNotFound(t *testing.T) {
	cache := setupTestCache(t)

	var out models.Subscription
	found, err := cache.Get(context.Background(), "no_such_key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidate(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	err := cache.Set(ctx, "key", "value", time.Minute)
	require.NoError(t, err)

	err = cache.Invalidate(ctx, "key")
	require.NoError(t, err)

	var out string
	found, err := cache.Get(ctx, "key", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetInvalidJSON(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	err := cache.Db.Set(ctx, "bad", []byte("not-json"), time.Minute).Err()
	require.NoError(t, err)

	var out models.Subscription
	found, err := cache.Get(ctx, "bad", &out)
	assert.False(t, found)
	assert.Error(t, err)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{AddressRedis: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}
	_, err := InitServer(context.Background(), cfg)
	assert.Error(t, err)
}
