package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Catalog cache keys.
const (
	cacheKeyRoles       = "rbac:catalog:roles"
	cacheKeyPermissions = "rbac:catalog:permissions"
)

// CatalogCache is a short-TTL cache for the role/permission catalogs.
// It caches static reference data only and never per-user closures:
// the per-request join stays authoritative. A nil cache is valid and
// forwards every read to the loader.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCatalogCache constructs a CatalogCache. The TTL should stay on the
// order of minutes; longer windows only delay catalog edits becoming
// visible in listings, never authorization decisions.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{client: client, ttl: ttl}
}

// Roles returns the cached role catalog, filling it via loader on miss.
func (c *CatalogCache) Roles(ctx context.Context, loader func(context.Context) ([]Role, error)) ([]Role, error) {
	var roles []Role
	if err := c.fetch(ctx, cacheKeyRoles, &roles, func(ctx context.Context) (any, error) {
		return loader(ctx)
	}); err != nil {
		return nil, err
	}
	return roles, nil
}

// Permissions returns the cached permission catalog, filling it via
// loader on miss.
func (c *CatalogCache) Permissions(ctx context.Context, loader func(context.Context) ([]Permission, error)) ([]Permission, error) {
	var perms []Permission
	if err := c.fetch(ctx, cacheKeyPermissions, &perms, func(ctx context.Context) (any, error) {
		return loader(ctx)
	}); err != nil {
		return nil, err
	}
	return perms, nil
}

// Clear drops both catalog entries. Called after any catalog mutation.
func (c *CatalogCache) Clear(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, cacheKeyRoles, cacheKeyPermissions).Err()
}

// fetch loads a cached JSON value or populates it under singleflight so
// concurrent misses issue one store query.
func (c *CatalogCache) fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("rbac: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return remarshal(value, dest)
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(raw, dest); unmarshalErr == nil {
			return nil
		}
		// Corrupt entry: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return err
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			return nil, err
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(result.([]byte), dest)
}

func remarshal(value, dest any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, dest)
}
