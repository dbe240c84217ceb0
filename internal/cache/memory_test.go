package cache

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemoryBasic(t *testing.T) {
	c := NewMemory(100)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get() on empty cache reported a hit")
	}
	if err := c.Put("a", []byte("hello")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	v, ok := c.Get("a")
	if !ok || string(v) != "hello" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}

	if err := c.Put("a", []byte("hi")); err != nil {
		t.Fatal(err)
	}
	stats := c.Stats()
	if stats.Size != 2 || stats.Items != 1 {
		t.Errorf("after overwrite size = %d items = %d, want 2 and 1", stats.Size, stats.Items)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits = %d misses = %d, want 1 and 1", stats.Hits, stats.Misses)
	}
	if stats.HitRate() != 0.5 {
		t.Errorf("HitRate() = %v, want 0.5", stats.HitRate())
	}
}

func TestMemoryLRUEviction(t *testing.T) {
	c := NewMemory(30)
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Put(k, bytes.Repeat([]byte{1}, 10)); err != nil {
			t.Fatal(err)
		}
	}

	// touch a so b becomes the oldest
	c.Get("a")
	if err := c.Put("d", bytes.Repeat([]byte{2}, 10)); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestMemoryItemTooLarge(t *testing.T) {
	c := NewMemory(4)
	if err := c.Put("big", []byte("too big")); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("Put() error = %v, want ErrItemTooLarge", err)
	}
}

func TestStatsHitRateEmpty(t *testing.T) {
	if got := (Stats{}).HitRate(); got != 0 {
		t.Errorf("HitRate() = %v, want 0", got)
	}
}
