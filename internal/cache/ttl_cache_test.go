package cache

import (
	"testing"
	"time"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[string, int]()
	c.now = func() time.Time { return now }

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected cached value, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to expire")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatalf("expected non-expiring entry to survive")
	}
}

func TestNilTTLCacheMisses(t *testing.T) {
	var c *TTLCache[string, string]
	c.Set("a", "b", time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss on nil cache")
	}
}

func TestVariantCacheIgnoresBlankKeys(t *testing.T) {
	c := NewVariantCache()
	c.SetVariant(" ", "v1")
	c.SetVariant("p1", "")
	if _, ok := c.GetVariant(" "); ok {
		t.Fatalf("expected blank key to miss")
	}
	if _, ok := c.GetVariant("p1"); ok {
		t.Fatalf("expected blank variant not to be stored")
	}

	c.SetVariant("p1", "v1")
	if v, ok := c.GetVariant("p1"); !ok || v != "v1" {
		t.Fatalf("expected v1, got %q", v)
	}
	c.Forget("p1")
	if _, ok := c.GetVariant("p1"); ok {
		t.Fatalf("expected forgotten entry to miss")
	}
}

func TestNoopCache(t *testing.T) {
	var c Cache[string, int] = NoopCache[string, int]{}
	c.Set("a", 1, 0)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("noop cache must miss")
	}
}
