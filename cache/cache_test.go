package cache_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/momentics/hioload-frames/api"
	"github.com/momentics/hioload-frames/cache"
	"github.com/momentics/hioload-frames/fake"
	"github.com/momentics/hioload-frames/frame"
)

var cacheShape = api.ShapeDescriptor{Width: 320, Height: 240, Format: api.FormatRGBA8}

func newCachedFrame(t *testing.T, dev *fake.Device) *frame.Frame {
	t.Helper()
	backing, err := dev.CreateFrameBacking(cacheShape)
	if err != nil {
		t.Fatalf("create backing: %v", err)
	}
	return frame.New(cacheShape, backing)
}

func TestCache_GetPut(t *testing.T) {
	dev := fake.NewDevice()
	c, err := cache.New(4)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache must miss")
	}

	f := newCachedFrame(t, dev)
	c.Put("a", f)
	got, ok := c.Get("a")
	if !ok || got != f {
		t.Error("cache must return the registered frame")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", stats.Hits, stats.Misses)
	}
	if c.HitRate() != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", c.HitRate())
	}
}

func TestCache_StrictLRUEviction(t *testing.T) {
	dev := fake.NewDevice()
	c, err := cache.New(cache.DefaultCapacity)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	// 101 distinct keys into a capacity-100 cache: the first-inserted key
	// is the eviction victim.
	for i := 0; i <= cache.DefaultCapacity; i++ {
		c.Put(fmt.Sprintf("key-%d", i), newCachedFrame(t, dev))
	}
	if c.Len() != cache.DefaultCapacity {
		t.Fatalf("len = %d, want %d", c.Len(), cache.DefaultCapacity)
	}
	if _, ok := c.Get("key-0"); ok {
		t.Error("oldest key must be evicted")
	}
	if _, ok := c.Get("key-1"); !ok {
		t.Error("second-oldest key must survive")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("evictions = %d, want 1", got)
	}
}

func TestCache_GetProtectsFromEviction(t *testing.T) {
	dev := fake.NewDevice()
	c, err := cache.New(3)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	for _, k := range []string{"a", "b", "c"} {
		c.Put(k, newCachedFrame(t, dev))
	}
	// Touch the oldest entry, then insert: the victim must be "b".
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit on a")
	}
	c.Put("d", newCachedFrame(t, dev))

	if _, ok := c.Get("a"); !ok {
		t.Error("recently accessed key must survive eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used key must be evicted")
	}
}

func TestCache_PutReplacesAndRefreshes(t *testing.T) {
	dev := fake.NewDevice()
	c, err := cache.New(2)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	f1 := newCachedFrame(t, dev)
	f2 := newCachedFrame(t, dev)
	c.Put("a", f1)
	c.Put("b", newCachedFrame(t, dev))
	c.Put("a", f2) // replace refreshes recency; "b" becomes LRU
	c.Put("c", newCachedFrame(t, dev))

	if got, ok := c.Get("a"); !ok || got != f2 {
		t.Error("replaced key must return the new frame")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("replace must refresh recency, making b the eviction victim")
	}
}

func TestCache_RemoveAndClearLeaveStorageAlone(t *testing.T) {
	dev := fake.NewDevice()
	c, err := cache.New(4)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	c.Put("a", newCachedFrame(t, dev))
	c.Put("b", newCachedFrame(t, dev))

	if !c.Remove("a") {
		t.Error("remove of present key must report true")
	}
	if c.Remove("a") {
		t.Error("remove of absent key must report false")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("len = %d after clear, want 0", c.Len())
	}
	// Dropping cache references never touches pool storage.
	if dev.LiveCount() != 2 {
		t.Errorf("live backings = %d, want 2 (cache must not destroy frames)", dev.LiveCount())
	}
}

func TestCache_DefaultCapacity(t *testing.T) {
	c, err := cache.New(0)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	if c.Capacity() != cache.DefaultCapacity {
		t.Errorf("capacity = %d, want %d", c.Capacity(), cache.DefaultCapacity)
	}
	if _, err := cache.New(-1); err == nil {
		t.Error("negative capacity must be rejected")
	}
}

func TestKeys_StableAndDistinct(t *testing.T) {
	k1 := cache.SourceKey("clip.mp4", 40*time.Millisecond)
	k2 := cache.SourceKey("clip.mp4", 40*time.Millisecond)
	if k1 != k2 {
		t.Error("equal inputs must produce equal source keys")
	}
	if cache.SourceKey("clip.mp4", 40*time.Millisecond) == cache.SourceKey("clip.mp4", 80*time.Millisecond) {
		t.Error("distinct timestamps must produce distinct keys")
	}
	if cache.SourceKey("a.mp4", time.Second) == cache.SourceKey("b.mp4", time.Second) {
		t.Error("distinct media must produce distinct keys")
	}

	e1 := cache.EffectKey("blur", "radius=4", "sigma=1.5")
	e2 := cache.EffectKey("blur", "radius=4", "sigma=1.5")
	if e1 != e2 {
		t.Error("equal inputs must produce equal effect keys")
	}
	if cache.EffectKey("blur", "a", "b") == cache.EffectKey("blur", "b", "a") {
		t.Error("parameter order must be significant")
	}
	if cache.EffectKey("blur") == cache.SourceKey("blur", 0) {
		t.Error("key namespaces must not collide")
	}
}
