package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type countingTitles struct {
	titles map[string]string
	calls  int
}

func (c *countingTitles) ResolveTitle(_ context.Context, id string) (string, bool, error) {
	c.calls++
	t, ok := c.titles[id]
	return t, ok, nil
}

// unreachable returns a client whose every command fails fast.
func unreachable(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestTitleCacheFallsBackWhenRedisIsDown(t *testing.T) {
	src := &countingTitles{titles: map[string]string{"r1": "Week 1 Reading"}}
	cache := NewTitleCache(unreachable(t), src, time.Minute, nil)
	ctx := context.Background()

	title, ok, err := cache.ResolveTitle(ctx, "r1")
	if err != nil || !ok || title != "Week 1 Reading" {
		t.Fatalf("got %q, %v, %v", title, ok, err)
	}

	title, ok, err = cache.ResolveTitle(ctx, "gone")
	if err != nil || ok || title != "" {
		t.Fatalf("expected a miss for removed content, got %q, %v, %v", title, ok, err)
	}
	if src.calls != 2 {
		t.Fatalf("expected both lookups to reach the source, got %d", src.calls)
	}
}

func TestNewTitleCacheDefaultTTL(t *testing.T) {
	cache := NewTitleCache(unreachable(t), &countingTitles{}, 0, nil)
	if cache.ttl != DefaultTitleTTL {
		t.Fatalf("ttl = %v, want %v", cache.ttl, DefaultTitleTTL)
	}
	if err := cache.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate with no ids: %v", err)
	}
}
