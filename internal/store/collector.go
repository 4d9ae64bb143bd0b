package store

import (
	"context"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// VisitedCollector records every URL fetched for a project across audit
// runs. Redis is the shared backend when available, with an in-memory set
// as fallback; a Redis outage degrades to per-process bookkeeping instead
// of failing the crawl. It is observational only: the session-local
// frontier remains the source of truth for BFS correctness.
type VisitedCollector struct {
	redisClient *redis.Client
	memory      map[string]struct{}
	mu          sync.RWMutex
	redisKey    string
}

// NewVisitedCollector creates a collector writing to the given Redis set
// key. redisClient may be nil for memory-only operation.
func NewVisitedCollector(redisClient *redis.Client, redisKey string) *VisitedCollector {
	return &VisitedCollector{
		redisClient: redisClient,
		memory:      make(map[string]struct{}),
		redisKey:    redisKey,
	}
}

// NewRedisClient parses a Redis URL, connects and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	opt, err := redis.ParseURL(addr)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// Add records a URL. It returns true when the URL was new to this collector.
func (c *VisitedCollector) Add(ctx context.Context, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.memory[url]; exists {
		return false, nil
	}

	if c.redisClient != nil {
		added, err := c.redisClient.SAdd(ctx, c.redisKey, url).Result()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to record URL in Redis, keeping in-memory record only")
		} else if added == 0 {
			// Already present from an earlier run; remember locally so the
			// next lookup skips the round trip.
			c.memory[url] = struct{}{}
			return false, nil
		}
	}

	c.memory[url] = struct{}{}
	return true, nil
}

// Has checks whether a URL was recorded by this or an earlier run.
func (c *VisitedCollector) Has(ctx context.Context, url string) (bool, error) {
	c.mu.RLock()
	if _, exists := c.memory[url]; exists {
		c.mu.RUnlock()
		return true, nil
	}
	c.mu.RUnlock()

	if c.redisClient == nil {
		return false, nil
	}

	exists, err := c.redisClient.SIsMember(ctx, c.redisKey, url).Result()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to check URL in Redis, assuming not present")
		return false, nil
	}
	if exists {
		c.mu.Lock()
		c.memory[url] = struct{}{}
		c.mu.Unlock()
	}
	return exists, nil
}
