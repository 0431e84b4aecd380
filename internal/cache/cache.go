package cache

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/EmpoweredVote/library-atlas/internal/metrics"
)

// Policy decides when a cached parse of a file is stale. Two calls returning
// the same fingerprint mean the file can be served from cache.
type Policy interface {
	Fingerprint(path string) (string, error)
}

// racyWindow is how long after its last modification a file keeps being
// re-hashed even when its size and mtime look unchanged.
const racyWindow = 2 * time.Second

type hashed struct {
	size  int64
	mtime time.Time
	at    time.Time
	sum   string
}

// ContentHash fingerprints a file by hashing its bytes. The file is only read
// again when its size or modification time changed since the last hash, or
// when that hash was taken within racyWindow of the modification. The zero
// value is ready to use.
type ContentHash struct {
	mu   sync.Mutex
	seen map[string]hashed
}

func (p *ContentHash) Fingerprint(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	h, ok := p.seen[path]
	p.mu.Unlock()
	if ok && h.size == fi.Size() && h.mtime.Equal(fi.ModTime()) && h.at.Sub(h.mtime) > racyWindow {
		return h.sum, nil
	}

	at := time.Now()
	sum, err := hashFile(path)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	if p.seen == nil {
		p.seen = map[string]hashed{}
	}
	p.seen[path] = hashed{size: fi.Size(), mtime: fi.ModTime(), at: at, sum: sum}
	p.mu.Unlock()
	return sum, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

// ModTime fingerprints a file by size and modification time. Cheaper than
// ContentHash, but misses rewrites that keep both.
type ModTime struct{}

func (ModTime) Fingerprint(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", fi.Size(), fi.ModTime().UnixNano()), nil
}

// PolicyByName maps the CACHE_POLICY setting onto a Policy.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hash", "content":
		return &ContentHash{}, nil
	case "mtime", "modtime":
		return ModTime{}, nil
	}
	return nil, fmt.Errorf("unknown cache policy %q (want hash or mtime)", name)
}

type entry[T any] struct {
	fingerprint string
	value       T
}

// Cache holds parsed datasets keyed by name. A value is reused while the
// fingerprints of its source files are unchanged; concurrent misses for the
// same key and fingerprint share one load.
type Cache[T any] struct {
	name   string
	policy Policy

	mu      sync.RWMutex
	entries map[string]entry[T]
	group   singleflight.Group
}

func New[T any](name string, policy Policy) *Cache[T] {
	if policy == nil {
		policy = &ContentHash{}
	}
	return &Cache[T]{name: name, policy: policy, entries: map[string]entry[T]{}}
}

// Fingerprint combines the fingerprints of every path into one string.
func (c *Cache[T]) Fingerprint(paths ...string) (string, error) {
	parts := make([]string, len(paths))
	for i, p := range paths {
		fp, err := c.policy.Fingerprint(p)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", p, err)
		}
		parts[i] = fp
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, "|")), 16), nil
}

// Load returns the cached value for key when paths are unchanged, otherwise
// runs load and caches its result. Errors are never cached.
func (c *Cache[T]) Load(key string, paths []string, load func() (T, error)) (T, string, error) {
	var zero T
	fp, err := c.Fingerprint(paths...)
	if err != nil {
		return zero, "", err
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && e.fingerprint == fp {
		metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
		return e.value, fp, nil
	}

	v, err, _ := c.group.Do(key+"\x00"+fp, func() (any, error) {
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		start := time.Now()
		val, err := load()
		if err != nil {
			return nil, err
		}
		ms := time.Since(start).Milliseconds()
		metrics.DatasetLoadDurationMs.WithLabelValues(c.name).Observe(float64(ms))
		log.Printf("[cache] %s: loaded %s in %dms", c.name, key, ms)

		c.mu.Lock()
		c.entries[key] = entry[T]{fingerprint: fp, value: val}
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		return zero, "", err
	}
	return v.(T), fp, nil
}

// Invalidate drops one key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Purge drops every entry and returns how many there were.
func (c *Cache[T]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = map[string]entry[T]{}
	return n
}

func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[T]) Name() string { return c.name }
