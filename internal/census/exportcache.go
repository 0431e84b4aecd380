package census

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EmpoweredVote/library-atlas/internal/metrics"
)

const exportTTL = time.Hour

// ExportCache keeps rendered CSV exports in Redis keyed by dataset
// fingerprint, metric and year. A nil *ExportCache is valid and caches
// nothing.
type ExportCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// OpenExportCache connects to url. An empty url returns nil.
func OpenExportCache(url string) (*ExportCache, error) {
	if url == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return &ExportCache{rc: redis.NewClient(opt), ttl: exportTTL}, nil
}

func exportKey(fingerprint, metric string, year int) string {
	return fmt.Sprintf("atlas:export:%s:%s:%d", fingerprint, metric, year)
}

// Get returns a cached export. Redis errors are logged and treated as a miss.
func (c *ExportCache) Get(ctx context.Context, fingerprint, metric string, year int) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	b, err := c.rc.Get(ctx, exportKey(fingerprint, metric, year)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[census] export cache get: %v", err)
			metrics.ExportCacheTotal.WithLabelValues("error").Inc()
			return nil, false
		}
		metrics.ExportCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.ExportCacheTotal.WithLabelValues("hit").Inc()
	return b, true
}

func (c *ExportCache) Set(ctx context.Context, fingerprint, metric string, year int, body []byte) {
	if c == nil {
		return
	}
	if err := c.rc.Set(ctx, exportKey(fingerprint, metric, year), body, c.ttl).Err(); err != nil {
		log.Printf("[census] export cache set: %v", err)
	}
}

// Purge deletes every cached export and returns how many keys were removed.
func (c *ExportCache) Purge(ctx context.Context) (int, error) {
	if c == nil {
		return 0, nil
	}
	n := 0
	iter := c.rc.Scan(ctx, 0, "atlas:export:*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rc.Del(ctx, iter.Val()).Err(); err != nil {
			return n, err
		}
		n++
	}
	return n, iter.Err()
}

func (c *ExportCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rc.Close()
}
