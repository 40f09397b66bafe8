package rbac

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/brightwave-mkt/brightwave/testing"
)

func cacheWithRedis(t *testing.T) (*CatalogCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCatalogCache(client, 5*time.Minute), mr
}

func countingRoleLoader(roles []Role) (func(context.Context) ([]Role, error), *int) {
	calls := 0
	return func(ctx context.Context) ([]Role, error) {
		calls++
		return roles, nil
	}, &calls
}

func TestCatalogCacheMissThenHit(t *testing.T) {
	cache, _ := cacheWithRedis(t)
	loader, calls := countingRoleLoader([]Role{{ID: 1, Name: "editor", IsActive: true}})

	roles, err := cache.Roles(context.Background(), loader)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, 1, *calls)

	roles, err = cache.Roles(context.Background(), loader)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "editor", roles[0].Name)
	assert.Equal(t, 1, *calls, "second read serves from cache")
}

func TestCatalogCacheClearForcesReload(t *testing.T) {
	cache, _ := cacheWithRedis(t)
	loader, calls := countingRoleLoader([]Role{{ID: 1, Name: "editor"}})

	_, err := cache.Roles(context.Background(), loader)
	require.NoError(t, err)
	require.NoError(t, cache.Clear(context.Background()))

	_, err = cache.Roles(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}

func TestCatalogCacheTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCatalogCache(client, time.Minute)
	loader, calls := countingRoleLoader([]Role{{ID: 1, Name: "editor"}})

	_, err := cache.Roles(context.Background(), loader)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.Roles(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}

func TestCatalogCacheNilPassesThrough(t *testing.T) {
	var cache *CatalogCache
	loader, calls := countingRoleLoader([]Role{{ID: 1, Name: "editor"}})

	roles, err := cache.Roles(context.Background(), loader)
	require.NoError(t, err)
	require.Len(t, roles, 1)

	_, err = cache.Roles(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, 2, *calls, "nil cache forwards every read")

	require.NoError(t, cache.Clear(context.Background()))
}

func TestCatalogCacheLoaderError(t *testing.T) {
	cache, _ := cacheWithRedis(t)
	boom := errors.New("db down")

	_, err := cache.Roles(context.Background(), func(ctx context.Context) ([]Role, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCatalogCachePermissions(t *testing.T) {
	cache, _ := cacheWithRedis(t)
	calls := 0
	loader := func(ctx context.Context) ([]Permission, error) {
		calls++
		return []Permission{{ID: 10, Name: "view_user", IsActive: true}}, nil
	}

	perms, err := cache.Permissions(context.Background(), loader)
	require.NoError(t, err)
	require.Len(t, perms, 1)

	perms, err = cache.Permissions(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, "view_user", perms[0].Name)
	assert.Equal(t, 1, calls)
}

func TestCatalogCacheCorruptEntryRebuilds(t *testing.T) {
	cache, mr := cacheWithRedis(t)
	require.NoError(t, mr.Set(cacheKeyRoles, "{not json"))
	loader, calls := countingRoleLoader([]Role{{ID: 1, Name: "editor"}})

	roles, err := cache.Roles(context.Background(), loader)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, 1, *calls)
}
