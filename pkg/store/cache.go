package store

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/milestone"
)

var _ Store = (*Cache)(nil)

// Cache wraps a Store with a Redis read-through cache for List. Every
// mutation evicts the affected project before returning, so the next List
// observes the write.
type Cache struct {
	base  Store
	redis *redis.Client
	ttl   time.Duration
	log   *log.Logger
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
// A nil client or zero TTL disables caching.
func NewCache(base Store, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("store.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, log: logger}
}

func (c *Cache) List(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	if ms, ok := c.load(ctx, projectID); ok {
		return ms, nil
	}
	ms, err := c.base.List(ctx, projectID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, projectID, ms)
	return ms, nil
}

func (c *Cache) Get(ctx context.Context, id string) (milestone.Milestone, error) {
	return c.base.Get(ctx, id)
}

func (c *Cache) Create(ctx context.Context, projectID string, d milestone.Draft) (milestone.Milestone, error) {
	m, err := c.base.Create(ctx, projectID, d)
	if err != nil {
		return milestone.Milestone{}, err
	}
	c.evict(ctx, projectID)
	return m, nil
}

func (c *Cache) Update(ctx context.Context, id string, p milestone.Patch) (milestone.Milestone, error) {
	m, err := c.base.Update(ctx, id, p)
	if err != nil {
		return milestone.Milestone{}, err
	}
	c.evict(ctx, m.ProjectID)
	return m, nil
}

func (c *Cache) Remove(ctx context.Context, id string) error {
	existing, err := c.base.Get(ctx, id)
	switch {
	case err == nil:
	case isNotFound(err):
		return nil
	default:
		return err
	}
	if err := c.base.Remove(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, existing.ProjectID)
	return nil
}

func (c *Cache) load(ctx context.Context, projectID string) ([]milestone.Milestone, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, cacheKey(projectID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// Fall back to the backing store; a broken entry is dropped.
			c.log.WithError(err).Debug("store.cache.get")
			_ = c.redis.Del(ctx, cacheKey(projectID)).Err()
		}
		return nil, false
	}
	var ms []milestone.Milestone
	if err := sonic.ConfigStd.Unmarshal(data, &ms); err != nil {
		_ = c.redis.Del(ctx, cacheKey(projectID)).Err()
		return nil, false
	}
	if ms == nil {
		ms = []milestone.Milestone{}
	}
	return ms, true
}

func (c *Cache) store(ctx context.Context, projectID string, ms []milestone.Milestone) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.ConfigStd.Marshal(ms)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(projectID), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("store.cache.set")
	}
}

func (c *Cache) evict(ctx context.Context, projectID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, cacheKey(projectID)).Err(); err != nil {
		c.log.WithError(err).WithField("project", projectID).Warn("store.cache.evict")
	}
}

// Watch forwards change events from a watchable base store, dropping every
// cached project first since the event does not say which one changed.
func (c *Cache) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	w, ok := c.base.(Watcher)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	in, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan ChangeEvent, cap(in))
	go func() {
		defer close(out)
		for ev := range in {
			c.evictAll(ctx)
			select {
			case out <- ev:
			case <-ctx.Done():
				// Keep draining so the base watcher can shut down.
			}
		}
	}()
	return out, nil
}

func (c *Cache) evictAll(ctx context.Context) {
	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, cacheKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.WithError(err).Warn("store.cache.evict")
			return
		}
	}
	if err := iter.Err(); err != nil {
		c.log.WithError(err).Debug("store.cache.scan")
	}
}

func cacheKey(projectID string) string {
	return "milestones:" + projectID
}
