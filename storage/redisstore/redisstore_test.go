package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-jobboard/storage"
	"github.com/goliatone/go-jobboard/storage/redisstore"
	"github.com/goliatone/go-jobboard/storage/storagetest"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *redisstore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := redisstore.NewConfig()
	cfg.Addr = mr.Addr()
	cfg.TTL = ttl
	s, err := redisstore.Connect(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func TestRedisStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		_, s := setupTestRedis(t, 0)
		return s
	})
}

func TestKeysArePrefixed(t *testing.T) {
	mr, s := setupTestRedis(t, 0)
	require.NoError(t, s.Set(context.Background(), "access_token", "tok"))

	v, err := mr.Get("jobboard:access_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
}

func TestClearKeepsForeignKeys(t *testing.T) {
	mr, s := setupTestRedis(t, 0)
	ctx := context.Background()
	require.NoError(t, mr.Set("other-app:session", "keep"))
	require.NoError(t, s.Set(ctx, "access_token", "t"))

	require.NoError(t, s.Clear(ctx))

	assert.False(t, mr.Exists("jobboard:access_token"))
	v, err := mr.Get("other-app:session")
	require.NoError(t, err)
	assert.Equal(t, "keep", v)
}

func TestEntriesExpireWithTTL(t *testing.T) {
	mr, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "access_token", "t"))

	mr.FastForward(59 * time.Minute)
	_, ok, err := s.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok, err = s.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewWithCustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := redisstore.New(client, "app-a:", 0)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set(context.Background(), "roles_name", `["candidat"]`))
	assert.True(t, mr.Exists("app-a:roles_name"))

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"roles_name"}, keys)
}

func TestConnectFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := redisstore.NewConfig()
	cfg.Addr = addr
	_, err := redisstore.Connect(context.Background(), cfg)
	assert.Error(t, err)
}
