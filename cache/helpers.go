package cache

import (
	"context"
	"fmt"

	"github.com/scrutinize/scout"
)

// GetTestCache ensures all scout keys are purged from the configured redis
// for testing purposes. It returns a Cache or panics if anything failed.
// For safety's sake it may ONLY be used if the configured key prefix is
// `scout-test` and will panic if it isn't.
func GetTestCache() *Cache {
	if scout.Config.Redis.KeyPrefix != "scout-test" {
		panic(fmt.Sprintf("Running tests requires using the scout-test key prefix (not %v)",
			scout.Config.Redis.KeyPrefix))
	}

	cache := NewCache()
	ctx := context.Background()
	keys, err := cache.client.Keys(ctx, cache.prefix+":*").Result()
	if err != nil {
		panic(fmt.Sprintf("Could not list test keys in local redis: %v", err))
	}
	if len(keys) > 0 {
		if err := cache.client.Del(ctx, keys...).Err(); err != nil {
			panic(fmt.Sprintf("Failed to clear test keys: %v", err))
		}
	}
	return cache
}
