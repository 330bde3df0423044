package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New[string](3, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Fatal("empty cache should miss")
	}

	c.Set("a", "um")
	got, found := c.Get("a")
	if !found || got != "um" {
		t.Fatalf("got %q found=%v", got, found)
	}

	c.Set("a", "dois")
	if got, _ := c.Get("a"); got != "dois" {
		t.Fatalf("overwrite should win, got %q", got)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Set("c", 3)

	if _, found := c.Get("b"); found {
		t.Fatal("least recently used entry should be evicted")
	}
	if _, found := c.Get("a"); !found {
		t.Fatal("recently used entry should survive")
	}
	if _, found := c.Get("c"); !found {
		t.Fatal("new entry should be present")
	}
}

func TestDelete(t *testing.T) {
	c := New[int](2, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a") // idempotent
	if _, found := c.Get("a"); found {
		t.Fatal("deleted entry should miss")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := New[int](2, 10*time.Millisecond)
	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, found := c.Get("a"); found {
		t.Fatal("expired entry should miss")
	}
}

func TestPrune(t *testing.T) {
	c := New[int](10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	if removed := c.Prune(); removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}

func TestJanitorStop(t *testing.T) {
	c := New[int](2, time.Minute)
	c.StartJanitor(time.Millisecond)
	c.Stop()
	c.Stop() // safe twice
}
