package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"tableflip.dev/pomo/pkg/milestone"
)

type countingStore struct {
	Store
	lists int
}

func (c *countingStore) List(ctx context.Context, projectID string) ([]milestone.Milestone, error) {
	c.lists++
	return c.Store.List(ctx, projectID)
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	base := &countingStore{Store: NewMemory()}
	return NewCache(base, client, ttl, log.New()), base, mr
}

func TestCacheReadThrough(t *testing.T) {
	c, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	if _, err := c.Create(ctx, "p1", milestone.Draft{Title: "Ship", DueDate: milestone.MustParseDate("2024-06-05")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		ms, err := c.List(ctx, "p1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(ms) != 1 || ms[0].DueDate.String() != "2024-06-05" {
			t.Fatalf("unexpected list %+v", ms)
		}
	}
	if base.lists != 1 {
		t.Fatalf("expected one backing list, got %d", base.lists)
	}
	if !mr.Exists(cacheKey("p1")) {
		t.Fatal("expected cached project key")
	}
	if ttl := mr.TTL(cacheKey("p1")); ttl != time.Minute {
		t.Fatalf("expected ttl of one minute, got %s", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := c.List(ctx, "p1"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if base.lists != 2 {
		t.Fatalf("expected expired entry to reload, got %d loads", base.lists)
	}
}

func TestCacheEvictsOnMutation(t *testing.T) {
	c, _, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	m, err := c.Create(ctx, "p1", milestone.Draft{Title: "Ship", DueDate: milestone.MustParseDate("2024-06-05")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := c.List(ctx, "p1"); err != nil {
		t.Fatalf("list: %v", err)
	}
	done := true
	if _, err := c.Update(ctx, m.ID, milestone.Patch{Completed: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if mr.Exists(cacheKey("p1")) {
		t.Fatal("update should evict the project")
	}
	ms, _ := c.List(ctx, "p1")
	if len(ms) != 1 || !ms[0].Completed {
		t.Fatalf("stale list after update: %+v", ms)
	}

	if err := c.Remove(ctx, m.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if mr.Exists(cacheKey("p1")) {
		t.Fatal("remove should evict the project")
	}
	ms, _ = c.List(ctx, "p1")
	if len(ms) != 0 {
		t.Fatalf("stale list after remove: %+v", ms)
	}
}

func TestCacheFallsBackWhenRedisDown(t *testing.T) {
	c, base, mr := newTestCache(t, time.Minute)
	ctx := context.Background()
	if _, err := c.Create(ctx, "p1", milestone.Draft{Title: "Ship", DueDate: milestone.MustParseDate("2024-06-05")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	mr.Close()

	ms, err := c.List(ctx, "p1")
	if err != nil {
		t.Fatalf("list with redis down: %v", err)
	}
	if len(ms) != 1 || base.lists != 1 {
		t.Fatalf("expected backing store read, got %+v (%d loads)", ms, base.lists)
	}
}

func TestCacheDropsCorruptEntry(t *testing.T) {
	c, base, mr := newTestCache(t, time.Minute)
	if err := mr.Set(cacheKey("p1"), "{broken"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ms, err := c.List(context.Background(), "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ms) != 0 || base.lists != 1 {
		t.Fatalf("expected fallback to base, got %+v (%d loads)", ms, base.lists)
	}
}

func TestCacheWatchEvictsEverything(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	dev, _ := openDevice(t)
	c := NewCache(dev, client, time.Minute, log.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := c.List(ctx, "p1"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if _, err := c.List(ctx, "p2"); err != nil {
		t.Fatalf("list: %v", err)
	}
	ch, err := c.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	// A second handle stands in for another process writing the file.
	other, err := NewDevice(dev.BasePath(), log.New())
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	if _, err := other.Create(ctx, "p1", milestone.Draft{Title: "Ship", DueDate: milestone.MustParseDate("2024-06-05")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
	if mr.Exists(cacheKey("p1")) || mr.Exists(cacheKey("p2")) {
		t.Fatal("expected all cached projects evicted")
	}
	ms, err := c.List(ctx, "p1")
	if err != nil || len(ms) != 1 {
		t.Fatalf("expected fresh read, got %+v, %v", ms, err)
	}
}

func TestCacheWatchUnsupported(t *testing.T) {
	c, _, _ := newTestCache(t, time.Minute)
	if _, err := c.Watch(context.Background()); err != ErrWatchUnsupported {
		t.Fatalf("expected unsupported, got %v", err)
	}
}
