package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestService(enabled bool) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, enabled, nil), store
}

func TestGetOrCompute_FreshHitServesCachedValue(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return "payload", nil
	}

	first, err := svc.GetOrCompute(ctx, "w", time.Minute, fn)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if first.FromCache {
		t.Errorf("Expected first call to compute, got from_cache=true")
	}

	second, err := svc.GetOrCompute(ctx, "w", time.Minute, fn)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !second.FromCache {
		t.Errorf("Expected second call served from cache")
	}
	if second.Value != "payload" {
		t.Errorf("Expected identical cached value, got %v", second.Value)
	}
	if calls != 1 {
		t.Errorf("Expected exactly one computation, got %d", calls)
	}
}

func TestGetOrCompute_ExpiredEntryRecomputes(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, err := svc.GetOrCompute(ctx, "w", time.Minute, fn); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Advance the clock past the TTL.
	now = now.Add(2 * time.Minute)
	res, err := svc.GetOrCompute(ctx, "w", time.Minute, fn)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.FromCache {
		t.Errorf("Expected expired entry to recompute, got from_cache=true")
	}
	if calls != 2 {
		t.Errorf("Expected 2 computations, got %d", calls)
	}
}

func TestGetOrCompute_ConcurrentCallersComputeOnce(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fn := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]Result, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.GetOrCompute(ctx, "w", time.Minute, fn)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			results[i] = res
		}(i)
	}

	// Give every caller a chance to pile onto the flight, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly one computation under concurrency, got %d", got)
	}
	for i, res := range results {
		if res.Value != "shared" {
			t.Errorf("Worker %d got value %v, expected shared", i, res.Value)
		}
	}
}

func TestGetOrCompute_StaleServedOnFailure(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return now }

	fn := func(ctx context.Context) (any, error) { return "good", nil }
	if _, err := svc.GetOrCompute(ctx, "w", time.Minute, fn); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Entry expires, then the recompute fails.
	now = now.Add(5 * time.Minute)
	boom := errors.New("backend down")
	failing := func(ctx context.Context) (any, error) { return nil, boom }

	res, err := svc.GetOrCompute(ctx, "w", time.Minute, failing)
	if !errors.Is(err, boom) {
		t.Errorf("Expected the compute error surfaced, got %v", err)
	}
	if res.Value != "good" {
		t.Errorf("Expected the stale value preserved, got %v", res.Value)
	}
	if !res.FromCache {
		t.Errorf("Expected stale serve reported as from_cache")
	}
}

func TestGetOrCompute_FailureWithoutPriorValue(t *testing.T) {
	svc, _ := newTestService(true)
	boom := errors.New("no data source")

	res, err := svc.GetOrCompute(context.Background(), "w", time.Minute, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected the compute error, got %v", err)
	}
	if res.Value != nil {
		t.Errorf("Expected no value with nothing cached, got %v", res.Value)
	}
}

func TestGetOrCompute_PanicBecomesComputeFailure(t *testing.T) {
	svc, _ := newTestService(true)

	_, err := svc.GetOrCompute(context.Background(), "w", time.Minute, func(ctx context.Context) (any, error) {
		panic("widget bug")
	})
	if !errors.Is(err, ErrComputeFailure) {
		t.Errorf("Expected ErrComputeFailure from a panic, got %v", err)
	}
}

func TestGetOrCompute_TimeoutClassified(t *testing.T) {
	svc, _ := newTestService(true)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	_, err := svc.GetOrCompute(ctx, "w", time.Minute, func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	if !errors.Is(err, ErrComputeTimeout) {
		t.Errorf("Expected ErrComputeTimeout, got %v", err)
	}
}

func TestGetOrCompute_DisabledAlwaysComputes(t *testing.T) {
	svc, store := newTestService(false)
	ctx := context.Background()

	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	for i := 0; i < 3; i++ {
		res, err := svc.GetOrCompute(ctx, "w", time.Minute, fn)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if res.FromCache {
			t.Errorf("Expected disabled cache to always compute")
		}
	}
	if calls != 3 {
		t.Errorf("Expected 3 computations with caching disabled, got %d", calls)
	}
	if _, ok := store.Get("w"); ok {
		t.Errorf("Expected nothing stored with caching disabled")
	}
}

func TestInvalidate(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	svc.GetOrCompute(ctx, "a", time.Minute, fn)
	svc.GetOrCompute(ctx, "b", time.Minute, fn)

	svc.Invalidate("a")
	res, _ := svc.GetOrCompute(ctx, "a", time.Minute, fn)
	if res.FromCache {
		t.Errorf("Expected invalidated key to recompute")
	}
	res, _ = svc.GetOrCompute(ctx, "b", time.Minute, fn)
	if !res.FromCache {
		t.Errorf("Expected untouched key still cached")
	}

	svc.InvalidateAll()
	res, _ = svc.GetOrCompute(ctx, "b", time.Minute, fn)
	if res.FromCache {
		t.Errorf("Expected flush to clear every key")
	}
}

func TestKey_ParamOrderIndependence(t *testing.T) {
	a := Key("widget", map[string]string{"site": "ber", "role": "core"})
	b := Key("widget", map[string]string{"role": "core", "site": "ber"})
	if a != b {
		t.Errorf("Expected identical keys regardless of param order: %q vs %q", a, b)
	}
	if a != "widget|role=core|site=ber" {
		t.Errorf("Unexpected canonical key %q", a)
	}

	if got := Key("widget", nil); got != "widget" {
		t.Errorf("Expected bare widget name without params, got %q", got)
	}

	// Different parameter values are different cache identities.
	c := Key("widget", map[string]string{"site": "muc"})
	if a == c {
		t.Errorf("Expected different params to produce different keys")
	}
}

func TestEntry_Expired(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{CreatedAt: created, TTL: time.Minute}

	if e.Expired(created.Add(30 * time.Second)) {
		t.Errorf("Expected entry fresh before TTL")
	}
	if !e.Expired(created.Add(time.Minute)) {
		t.Errorf("Expected entry expired exactly at TTL")
	}
}
