package auth

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamloop/teamloop/pkg/types"
)

type memoryCache struct {
	entries map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	value, ok := m.entries[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryCache) SetEx(_ context.Context, key, value string, _ time.Duration) error {
	m.entries[key] = value
	return nil
}

func (m *memoryCache) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

func TestValidateTokenFromCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()

	meta := &types.UserTokenMeta{
		Appid:    "teamloop",
		UserID:   "u1",
		ExpireAt: time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, CacheTokenMeta(ctx, "tok-1", meta, time.Hour, cache))

	got, err := ValidateTokenFromCache(ctx, "tok-1", cache)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "teamloop", got.Appid)
}

func TestValidateTokenFromCache_RejectsExpiredMeta(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache()

	// 缓存条目尚未失效，但 token 本身的有效期已过
	meta := &types.UserTokenMeta{
		Appid:    "teamloop",
		UserID:   "u1",
		ExpireAt: time.Now().Add(-time.Minute).Unix(),
	}
	require.NoError(t, CacheTokenMeta(ctx, "tok-1", meta, time.Hour, cache))

	_, err := ValidateTokenFromCache(ctx, "tok-1", cache)
	assert.Error(t, err)
}

func TestValidateTokenFromCache_Miss(t *testing.T) {
	_, err := ValidateTokenFromCache(context.Background(), "unknown", newMemoryCache())
	assert.Error(t, err)

	_, err = ValidateTokenFromCache(context.Background(), "", newMemoryCache())
	assert.Error(t, err)
}
