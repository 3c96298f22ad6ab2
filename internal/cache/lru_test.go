package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](maxSize, ttl)
	c.now = clock.now
	return c, clock
}

// TestLRUCacheEviction tests size-based eviction
func TestLRUCacheEviction(t *testing.T) {
	cache, _ := newTestCache(3, time.Hour)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	cache.Set("key3", "value3")
	cache.Get("key1")           // key2 is now least recently used
	cache.Set("key4", "value4") // Should evict key2

	if _, found := cache.Get("key2"); found {
		t.Error("key2 should have been evicted")
	}
	for _, key := range []string{"key1", "key3", "key4"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("%s should still exist", key)
		}
	}
	if cache.Size() != 3 {
		t.Errorf("Size = %d, want 3", cache.Size())
	}
}

// TestLRUCacheTTLExpiration tests time-based expiration
func TestLRUCacheTTLExpiration(t *testing.T) {
	cache, clock := newTestCache(100, time.Minute)

	cache.Set("key1", "value1")
	if _, found := cache.Get("key1"); !found {
		t.Error("key1 should exist immediately")
	}

	clock.t = clock.t.Add(61 * time.Second)
	if _, found := cache.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	if cache.Size() != 0 {
		t.Error("expired entry should be removed on read")
	}
}

func TestLRUCacheSetRefreshesTTL(t *testing.T) {
	cache, clock := newTestCache(10, time.Minute)

	cache.Set("key1", "old")
	clock.t = clock.t.Add(50 * time.Second)
	cache.Set("key1", "new")
	clock.t = clock.t.Add(50 * time.Second)

	got, found := cache.Get("key1")
	if !found || got != "new" {
		t.Errorf("Get = %q, %v; want new, true", got, found)
	}
}

// TestLRUCacheCleanExpired tests the cleanup mechanism
func TestLRUCacheCleanExpired(t *testing.T) {
	cache, clock := newTestCache(100, time.Minute)

	cache.Set("key1", "value1")
	cache.Set("key2", "value2")
	clock.t = clock.t.Add(30 * time.Second)
	cache.Set("key3", "value3")
	clock.t = clock.t.Add(45 * time.Second)

	if removed := cache.CleanExpired(); removed != 2 {
		t.Errorf("Expected 2 items cleaned, got %d", removed)
	}
	if _, found := cache.Get("key3"); !found {
		t.Error("key3 should survive cleanup")
	}
}

func TestLRUCacheStats(t *testing.T) {
	cache, _ := newTestCache(10, time.Hour)

	cache.Set("a", "1")
	cache.Get("a")
	cache.Get("a")
	cache.Get("b")
	cache.Delete("a")

	want := Stats{Size: 0, Hits: 2, Misses: 1}
	if got := cache.Stats(); got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}
}

func TestNewLRUCache_MinimumSize(t *testing.T) {
	cache := NewLRUCache[int](0, time.Hour)
	cache.Set("a", 1)
	cache.Set("b", 2)
	if cache.Size() != 1 {
		t.Errorf("Size = %d, want 1", cache.Size())
	}
}

func TestKey(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("part boundaries must change the key")
	}
	if Key("diego", "csv") != Key("diego", "csv") {
		t.Error("Key must be deterministic")
	}
	if len(Key("x")) != 64 {
		t.Errorf("Key length = %d, want 64", len(Key("x")))
	}
}

func TestManagerCleanNow(t *testing.T) {
	a, clock := newTestCache(10, time.Minute)
	b, _ := newTestCache(10, time.Hour)
	b.now = clock.now

	a.Set("x", "1")
	b.Set("y", "2")
	clock.t = clock.t.Add(2 * time.Minute)

	m := NewManager()
	m.Register(a)
	m.Register(b)
	if n := m.CleanNow(); n != 1 {
		t.Errorf("CleanNow = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
}

// BenchmarkLRUCache benchmarks a read-heavy workload
func BenchmarkLRUCache(b *testing.B) {
	cache := NewLRUCache[string](1000, time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%10 == 0 {
			cache.Set("bench-key", "value")
		} else {
			cache.Get("bench-key")
		}
	}
}
