package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/timmy/recipeclip/internal/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type countingCompute struct {
	calls  atomic.Int32
	result []string
}

func (c *countingCompute) fn(_ context.Context, _ string) []string {
	c.calls.Add(1)
	return c.result
}

func TestGetOrComputeBlankQuery(t *testing.T) {
	c := NewSuggestionCache(10, 300*time.Second)
	compute := &countingCompute{result: []string{"x"}}

	for _, q := range []string{"", "   ", "\t\n"} {
		got := c.GetOrCompute(context.Background(), q, compute.fn)
		if got == nil || len(got) != 0 {
			t.Fatalf("GetOrCompute(%q) = %#v, want empty non-nil slice", q, got)
		}
	}
	if compute.calls.Load() != 0 {
		t.Fatalf("compute called %d times for blank queries", compute.calls.Load())
	}
	if c.Len() != 0 {
		t.Fatalf("blank queries created %d entries", c.Len())
	}
}

func TestGetOrComputeFreshness(t *testing.T) {
	clock := newFakeClock()
	c := NewSuggestionCache(10, 300*time.Second, WithClock(clock.Now))
	compute := &countingCompute{result: []string{"Pasta Primavera"}}
	ctx := context.Background()

	c.GetOrCompute(ctx, "pas", compute.fn)

	clock.Advance(299 * time.Second)
	compute.result = []string{"changed"}
	got := c.GetOrCompute(ctx, "pas", compute.fn)
	if compute.calls.Load() != 1 || got[0] != "Pasta Primavera" {
		t.Fatalf("at T+299 got %v after %d computes, want cached value", got, compute.calls.Load())
	}

	clock.Advance(2 * time.Second)
	got = c.GetOrCompute(ctx, "pas", compute.fn)
	if compute.calls.Load() != 2 || got[0] != "changed" {
		t.Fatalf("at T+301 got %v after %d computes, want recomputed value", got, compute.calls.Load())
	}

	clock.Advance(299 * time.Second)
	got = c.GetOrCompute(ctx, "pas", compute.fn)
	if compute.calls.Load() != 2 || got[0] != "changed" {
		t.Fatalf("recomputed entry was not stored with a fresh timestamp")
	}
}

func TestGetOrComputeNormalizesKey(t *testing.T) {
	c := NewSuggestionCache(10, time.Minute)
	compute := &countingCompute{result: []string{"a"}}
	ctx := context.Background()

	var keys []string
	record := func(ctx context.Context, key string) []string {
		keys = append(keys, key)
		return compute.fn(ctx, key)
	}

	c.GetOrCompute(ctx, "  PaS ", record)
	c.GetOrCompute(ctx, "pas", record)
	c.GetOrCompute(ctx, "Pas", record)

	if compute.calls.Load() != 1 {
		t.Fatalf("compute called %d times, want 1", compute.calls.Load())
	}
	if keys[0] != "pas" {
		t.Fatalf("compute received key %q, want normalized %q", keys[0], "pas")
	}
}

func TestGetOrComputeReturnsCopies(t *testing.T) {
	c := NewSuggestionCache(10, time.Minute)
	compute := &countingCompute{result: []string{"a", "b"}}
	ctx := context.Background()

	first := c.GetOrCompute(ctx, "q", compute.fn)
	first[0] = "mutated"
	compute.result[1] = "mutated"

	second := c.GetOrCompute(ctx, "q", compute.fn)
	if second[0] != "a" || second[1] != "b" {
		t.Fatalf("cached value was mutated: %v", second)
	}
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c := NewSuggestionCache(10, time.Minute)
	release := make(chan struct{})
	var calls atomic.Int32
	slow := func(context.Context, string) []string {
		calls.Add(1)
		<-release
		return []string{"shared"}
	}

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetOrCompute(context.Background(), "pasta", slow)
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("compute ran %d times, want 1", calls.Load())
	}
	for i, r := range results {
		if len(r) != 1 || r[0] != "shared" {
			t.Fatalf("caller %d got %v", i, r)
		}
	}
}

func TestGetOrComputeSurvivesCancelledCaller(t *testing.T) {
	c := NewSuggestionCache(10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := c.GetOrCompute(ctx, "q", func(ctx context.Context, _ string) []string {
		if ctx.Err() != nil {
			return nil
		}
		return []string{"ok"}
	})
	if len(got) != 1 || got[0] != "ok" {
		t.Fatalf("GetOrCompute() = %v, want computation to ignore caller cancellation", got)
	}
}

func TestSuggestionCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewSuggestionCache(2, time.Minute)
	compute := &countingCompute{result: []string{"x"}}
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.SuggestionCacheEvictions)

	c.GetOrCompute(ctx, "a", compute.fn)
	c.GetOrCompute(ctx, "b", compute.fn)
	c.GetOrCompute(ctx, "a", compute.fn) // touch a
	c.GetOrCompute(ctx, "c", compute.fn) // evicts b

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if got := testutil.ToFloat64(metrics.SuggestionCacheEvictions) - before; got != 1 {
		t.Fatalf("evictions = %v, want 1", got)
	}

	calls := compute.calls.Load()
	c.GetOrCompute(ctx, "a", compute.fn)
	if compute.calls.Load() != calls {
		t.Fatal("recently used key a was evicted")
	}
	c.GetOrCompute(ctx, "b", compute.fn)
	if compute.calls.Load() != calls+1 {
		t.Fatal("least recently used key b was not evicted")
	}
}

type fakeBackend struct {
	mu      sync.Mutex
	entries map[string]Entry
	getErr  error
	sets    int
}

func (f *fakeBackend) Get(_ context.Context, key string) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return Entry{}, false, f.getErr
	}
	e, ok := f.entries[key]
	return e, ok, nil
}

func (f *fakeBackend) Set(_ context.Context, key string, e Entry, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = e
	f.sets++
	return nil
}

func TestSharedBackendTier(t *testing.T) {
	clock := newFakeClock()
	backend := &fakeBackend{entries: map[string]Entry{
		"fresh": {Suggestions: []string{"from redis"}, ComputedAt: clock.Now().Add(-time.Minute)},
		"stale": {Suggestions: []string{"old"}, ComputedAt: clock.Now().Add(-10 * time.Minute)},
	}}
	c := NewSuggestionCache(10, 5*time.Minute, WithClock(clock.Now), WithBackend(backend))
	compute := &countingCompute{result: []string{"computed"}}
	ctx := context.Background()

	if got := c.GetOrCompute(ctx, "fresh", compute.fn); got[0] != "from redis" {
		t.Fatalf("fresh shared entry: got %v", got)
	}
	if compute.calls.Load() != 0 {
		t.Fatal("fresh shared entry triggered a computation")
	}

	if got := c.GetOrCompute(ctx, "stale", compute.fn); got[0] != "computed" {
		t.Fatalf("stale shared entry: got %v", got)
	}
	if backend.sets != 1 || backend.entries["stale"].Suggestions[0] != "computed" {
		t.Fatalf("recomputed entry was not written back: %+v", backend.entries["stale"])
	}

	backend.getErr = errors.New("connection refused")
	if got := c.GetOrCompute(ctx, "other", compute.fn); got[0] != "computed" {
		t.Fatalf("backend failure should fall through to compute, got %v", got)
	}
}

func TestLRUGetDropsStaleEntries(t *testing.T) {
	clock := newFakeClock()
	lru := NewLRU[int](4, time.Second, clock.Now)
	lru.PutAt("k", 1, clock.Now())

	if v, ok := lru.Get("k"); !ok || v != 1 {
		t.Fatalf("Get() = %d, %v", v, ok)
	}
	clock.Advance(time.Second)
	if _, ok := lru.Get("k"); ok {
		t.Fatal("entry older than ttl was returned")
	}
	if lru.Len() != 0 {
		t.Fatalf("stale entry kept after read, Len() = %d", lru.Len())
	}
}

func TestGetOrComputeStampsRequestTime(t *testing.T) {
	clock := newFakeClock()
	c := NewSuggestionCache(10, 300*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	var calls atomic.Int32
	slow := func(context.Context, string) []string {
		calls.Add(1)
		clock.Advance(10 * time.Second)
		return []string{"pasta salad"}
	}

	c.GetOrCompute(ctx, "pas", slow)

	// 290s after compute returned is 300s after the lookup started.
	clock.Advance(290 * time.Second)
	c.GetOrCompute(ctx, "pas", slow)
	if calls.Load() != 2 {
		t.Fatalf("compute ran %d times; entry should expire 300s after the request, not after compute", calls.Load())
	}
}
