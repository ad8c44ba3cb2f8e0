package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](4, 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, 0)

	got, ok := c.Get(ctx, "a")
	if !ok || got != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", got, ok)
	}

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New[string, int](4, 0)
	defer c.Close()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "gas", 30, 12*time.Second)

	if _, ok := c.Get(ctx, "gas"); !ok {
		t.Fatal("expected hit before ttl")
	}

	now = now.Add(13 * time.Second)
	if _, ok := c.Get(ctx, "gas"); ok {
		t.Error("expected miss after ttl")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after expired read", c.Len())
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](2, 0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, 1, 1, 0)
	c.Set(ctx, 2, 2, 0)
	c.Get(ctx, 1)
	c.Set(ctx, 3, 3, 0)

	if _, ok := c.Get(ctx, 2); ok {
		t.Error("expected key 2 evicted")
	}
	if _, ok := c.Get(ctx, 1); !ok {
		t.Error("expected key 1 retained")
	}
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New[string, string](1, time.Millisecond)
	c.Close()
	c.Close()
}
