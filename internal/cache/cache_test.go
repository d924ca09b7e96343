package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/marqueehq/marquee/internal/model"
)

func records(ids ...string) []model.DatasetRecord {
	out := make([]model.DatasetRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.DatasetRecord{ID: id})
	}
	return out
}

func TestGet_MissingKey(t *testing.T) {
	t.Parallel()

	c := New(0)
	if _, ok := c.Get("acme/main"); ok {
		t.Fatal("expected miss for empty cache")
	}
}

func TestPut_OverwritesExistingEntry(t *testing.T) {
	t.Parallel()

	c := New(0)
	c.Put("acme/main", records("a"))
	c.Put("acme/main", records("b", "c"))

	entry, ok := c.Get("acme/main")
	if !ok {
		t.Fatal("expected entry after put")
	}
	if got := len(entry.Data); got != 2 {
		t.Fatalf("entry data len = %d, want 2 (replaced, not merged)", got)
	}
	if c.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", c.Len())
	}
}

func TestFresh_RespectsTTLWindow(t *testing.T) {
	t.Parallel()

	fetched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := Entry{FetchedAt: fetched}

	if !entry.Fresh(fetched.Add(59*time.Second), time.Minute) {
		t.Fatal("entry inside TTL window reported stale")
	}
	if entry.Fresh(fetched.Add(time.Minute), time.Minute) {
		t.Fatal("entry exactly at TTL boundary reported fresh")
	}
	if entry.Fresh(fetched.Add(2*time.Minute), time.Minute) {
		t.Fatal("entry past TTL reported fresh")
	}
}

func TestInvalidate_DropsEntry(t *testing.T) {
	t.Parallel()

	c := New(0)
	c.Put("acme/main", records("a"))
	c.Invalidate("acme/main")

	if _, ok := c.Get("acme/main"); ok {
		t.Fatal("expected miss after invalidate")
	}
	// Invalidating an absent key is a no-op.
	c.Invalidate("acme/other")
}

func TestPut_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := New(2)
	c.Put("t/a", records("1"))
	c.Put("t/b", records("2"))

	// Touch t/a so t/b becomes the eviction candidate.
	if _, ok := c.Get("t/a"); !ok {
		t.Fatal("expected t/a present")
	}

	c.Put("t/c", records("3"))

	if _, ok := c.Get("t/b"); ok {
		t.Fatal("expected t/b evicted as least recently used")
	}
	if _, ok := c.Get("t/a"); !ok {
		t.Fatal("expected t/a retained")
	}
	if _, ok := c.Get("t/c"); !ok {
		t.Fatal("expected t/c present")
	}
}

func TestPut_UnboundedWithoutLimit(t *testing.T) {
	t.Parallel()

	c := New(0)
	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("t/%d", i), records("x"))
	}
	if got := c.Len(); got != 50 {
		t.Fatalf("cache len = %d, want 50", got)
	}
}
