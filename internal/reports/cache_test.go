package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "reports", "summary", "daily")
	require.NoError(t, err)

	calls := 0
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return map[string]string{"status": "fresh"}, nil
	}

	var first map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second map[string]string
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	require.Equal(t, 1, calls)
	require.Equal(t, first, second)
}

func TestCacheBumpInvalidatesKeys(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "reports", "summary", "daily")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "reports", "summary", "daily")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestCacheNilClientFallsThrough(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "reports", "summary", "daily")
	require.NoError(t, err)

	calls := 0
	var out map[string]int
	loader := func(ctx context.Context) (interface{}, error) {
		calls++
		return map[string]int{"n": calls}, nil
	}
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.NoError(t, cache.FetchJSON(ctx, key, &out, loader))
	require.Equal(t, 2, calls)

	require.NoError(t, cache.Bump(ctx))
}

func TestCacheFetchJSONRequiresLoader(t *testing.T) {
	cache := newTestCache(t)
	var out map[string]string
	err := cache.FetchJSON(context.Background(), "k", &out, nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, context.Canceled))
}
