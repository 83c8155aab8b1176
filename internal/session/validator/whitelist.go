package validator

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Whitelist cache key prefixes; the suffix is the token jti. Values are
// presence markers with TTL equal to the token's remaining lifetime.
const (
	accessKeyPrefix  = "whitelist_accessToken:"
	refreshKeyPrefix = "whitelist_refreshToken:"
)

// AccessKey returns the whitelist key for an access token's jti.
func AccessKey(jti string) string { return accessKeyPrefix + jti }

// RefreshKey returns the whitelist key for a refresh token's jti.
func RefreshKey(jti string) string { return refreshKeyPrefix + jti }

// Whitelist is the key/value store mirroring session validity. Entries expire
// on their own; Remove exists so logout can purge them before natural expiry.
type Whitelist interface {
	Put(ctx context.Context, key string, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, keys ...string) error
}

// RedisWhitelist implements Whitelist backed by Redis.
type RedisWhitelist struct {
	client redis.UniversalClient
}

var _ Whitelist = (*RedisWhitelist)(nil)

// NewRedisWhitelist constructs a Redis-backed whitelist.
func NewRedisWhitelist(client redis.UniversalClient) *RedisWhitelist {
	return &RedisWhitelist{client: client}
}

// Put marks key as whitelisted for ttl.
func (w *RedisWhitelist) Put(ctx context.Context, key string, ttl time.Duration) error {
	return w.client.Set(ctx, key, true, ttl).Err()
}

// Has reports whether key is currently whitelisted.
func (w *RedisWhitelist) Has(ctx context.Context, key string) (bool, error) {
	_, err := w.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove purges the given keys. Missing keys are not an error.
func (w *RedisWhitelist) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := w.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
