// Package cache implements scout's distributed cache on Redis: the per-URL
// review locks that serialize dispatch across the fleet, the advisory page
// counters, and the fire-and-forget event publisher.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/scrutinize/scout"
)

// releaseScript deletes a lock key only while the caller's token still owns
// it, so a worker that outlived its TTL can't release somebody else's claim.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Cache is the production scout.Cache, backed by a Redis server.
//
// NewCache should be used to create one.
type Cache struct {
	client *redis.Client
	prefix string
}

// NewCache builds a Cache from the global redis config.
func NewCache() *Cache {
	return &Cache{
		client: redis.NewClient(&redis.Options{
			Addr:     scout.Config.Redis.Addr,
			Password: scout.Config.Redis.Password,
			DB:       scout.Config.Redis.DB,
		}),
		prefix: scout.Config.Redis.KeyPrefix,
	}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) lockKey(url string) string {
	return fmt.Sprintf("%s:next-job-lock:%s", c.prefix, url)
}

// TryLock attempts the atomic create-if-absent claim on a URL. The returned
// token is a fresh UUID on success, "" when another worker holds the URL.
// Any cache error also reports "" so dispatch stays fail-closed.
func (c *Cache) TryLock(url string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := c.client.SetNX(context.Background(), c.lockKey(url), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", scout.ErrCacheUnavailable, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock frees the URL's review slot if token still owns it.
func (c *Cache) ReleaseLock(url, token string) error {
	err := releaseScript.Run(context.Background(), c.client,
		[]string{c.lockKey(url)}, token).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("%w: %v", scout.ErrCacheUnavailable, err)
	}
	return nil
}

func (c *Cache) pageCountKey(domain string) string {
	if domain == "" {
		return c.prefix + ":page-count"
	}
	return fmt.Sprintf("%s:page-count:%s", c.prefix, domain)
}

// IncrementPageCount adds one to the global page counter, or to a domain's
// counter when domain is non-empty. Counters are advisory.
func (c *Cache) IncrementPageCount(domain string) error {
	err := c.client.IncrBy(context.Background(), c.pageCountKey(domain), 1).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", scout.ErrCacheUnavailable, err)
	}
	return nil
}

// IncrementNextJobsCount adds one to the dispatchable-page counter.
func (c *Cache) IncrementNextJobsCount() error {
	err := c.client.IncrBy(context.Background(), c.prefix+":next-jobs-count", 1).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", scout.ErrCacheUnavailable, err)
	}
	return nil
}

// PageCount reads the global ("") or per-domain page counter. A missing key
// reads as zero.
func (c *Cache) PageCount(domain string) (int64, error) {
	count, err := c.client.Get(context.Background(), c.pageCountKey(domain)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", scout.ErrCacheUnavailable, err)
	}
	return count, nil
}

// Publisher broadcasts scout events over a Redis Pub/Sub channel. Delivery
// is best-effort; failures are logged and dropped.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher builds a Publisher on the cache's Redis connection settings.
func NewPublisher() *Publisher {
	return &Publisher{
		client: redis.NewClient(&redis.Options{
			Addr:     scout.Config.Redis.Addr,
			Password: scout.Config.Redis.Password,
			DB:       scout.Config.Redis.DB,
		}),
		channel: scout.Config.Redis.EventsChannel,
	}
}

func (p *Publisher) Publish(message []byte) error {
	err := p.client.Publish(context.Background(), p.channel, message).Err()
	if err != nil {
		logrus.Errorf("Failed publishing event to %v: %v", p.channel, err)
		return fmt.Errorf("%w: %v", scout.ErrCacheUnavailable, err)
	}
	return nil
}
