package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func mustSet(t *testing.T, c Cache, key, value string, ttl time.Duration) {
	t.Helper()
	if err := c.Set(key, []byte(value), ttl); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func expectHit(t *testing.T, c Cache, key, want string) {
	t.Helper()
	got, ok := c.Get(key)
	if !ok {
		t.Fatalf("expected cache hit for %q", key)
	}
	if string(got) != want {
		t.Errorf("Get(%q) = %q, want %q", key, got, want)
	}
}

func expectMiss(t *testing.T, c Cache, key string) {
	t.Helper()
	if _, ok := c.Get(key); ok {
		t.Errorf("expected cache miss for %q", key)
	}
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("summary", "mistral", "doc text")
	b := CacheKey("summary", "mistral", "doc text")
	if a != b {
		t.Errorf("keys differ for equal input: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "legalyze:v1:summary:") {
		t.Errorf("unexpected key prefix: %s", a)
	}

	if a == CacheKey("insights", "mistral", "doc text") {
		t.Error("operation should change the key")
	}
	if CacheKey("x", "ab", "c") == CacheKey("x", "a", "bc") {
		t.Error("part boundaries should change the key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	expectMiss(t, c, "missing")

	mustSet(t, c, "k", "v", 0)
	expectHit(t, c, "k", "v")
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	expectMiss(t, c, "k")

	mustSet(t, c, "a", "1", 0)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	mustSet(t, c, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	expectMiss(t, c, "k")
}

func TestDiskCache_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey("summary", "doc")

	mustSet(t, c, key, "cached summary", 0)
	expectHit(t, c, key, "cached summary")

	// a fresh instance sees the persisted entry
	expectHit(t, NewDiskCache(dir, time.Hour), key, "cached summary")
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	mustSet(t, c, "k", "v", time.Minute)

	now = now.Add(30 * time.Second)
	expectHit(t, c, "k", "v")

	now = now.Add(time.Minute)
	expectMiss(t, c, "k")

	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestDiskCache_NegativeTTLNeverExpires(t *testing.T) {
	c := NewDiskCache(t.TempDir(), -1)
	now := time.Now()
	c.now = func() time.Time { return now }

	mustSet(t, c, "k", "v", 0)
	now = now.Add(100 * 365 * 24 * time.Hour)

	expectHit(t, c, "k", "v")
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	expectMiss(t, c, "k")
}

func TestDiskCache_DeleteMissing(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Delete("never-set"); err != nil {
		t.Errorf("Delete of a missing key failed: %v", err)
	}
}

func TestDiskCache_Prune(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Now()
	c.now = func() time.Time { return now }

	mustSet(t, c, "old", "1", time.Minute)
	mustSet(t, c, "new", "2", 2*time.Hour)

	now = now.Add(time.Hour)
	removed, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned entry, got %d", removed)
	}

	expectHit(t, c, "new", "2")
}

func TestDiskCache_PruneMissingDir(t *testing.T) {
	c := NewDiskCache(filepath.Join(t.TempDir(), "absent"), time.Hour)
	removed, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected nothing pruned, got %d", removed)
	}
}

func TestDiskCache_ConcurrentWrites(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Set("shared", []byte("value"), 0); err != nil {
				t.Errorf("concurrent Set failed: %v", err)
			}
		}()
	}
	wg.Wait()

	expectHit(t, c, "shared", "value")
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	mustSet(t, disk, "k", "from disk", 0)

	memory := NewMemoryCache(time.Hour, time.Minute)
	c := NewLayered(memory, disk)

	expectHit(t, c, "k", "from disk")
	// disk hits are promoted to memory
	expectHit(t, memory, "k", "from disk")

	_, _ = c.Get("k")
	_, _ = c.Get("missing")

	if got, want := c.Stats(), (Stats{MemoryHits: 1, DiskHits: 1, Misses: 1}); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestLayeredCache_SetDeleteClear(t *testing.T) {
	c := NewLayeredCache(time.Hour, t.TempDir(), time.Hour)

	mustSet(t, c, "k", "v", 0)
	expectHit(t, c, "k", "v")

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	expectMiss(t, c, "k")

	mustSet(t, c, "a", "1", 0)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	expectMiss(t, c, "a")
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	mustSet(t, c, "k", "v", time.Hour)
	expectMiss(t, c, "k")
}
