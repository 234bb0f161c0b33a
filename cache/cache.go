package cache

import (
	"time"

	"github.com/isaackogan/YorkUChats/config"
	"github.com/isaackogan/YorkUChats/model"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// Cache wraps Ristretto for the course read path. Only course documents are
// cached; every hierarchy write invalidates its course so reads never serve
// a stale section or link list for long.
type Cache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

// New creates a new cache instance with the given configuration
func New(cfg config.CacheConfig) (*Cache, error) {
	// Convert MB to bytes
	maxCost := int64(cfg.MaxSizeMB) * 1024 * 1024

	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize),
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Msg("Course cache initialized")

	return &Cache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

// GetCourse retrieves a cached course document by code
func (c *Cache) GetCourse(code string) (model.Course, bool) {
	if c == nil || c.client == nil {
		return model.Course{}, false
	}
	value, found := c.client.Get(code)
	if !found {
		return model.Course{}, false
	}
	course, ok := value.(model.Course)
	return course, ok
}

// SetCourse stores a course document with the configured TTL
func (c *Cache) SetCourse(course model.Course) {
	if c == nil || c.client == nil {
		return
	}
	// Rough per-entry cost; exact sizing is not worth the marshal
	c.client.SetWithTTL(course.Code, course, 1024, c.ttl)
}

// InvalidateCourse drops a course document from the cache
func (c *Cache) InvalidateCourse(code string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(code)
}

// Close releases cache resources
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}
