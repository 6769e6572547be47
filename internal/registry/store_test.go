package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linctx/linctx/internal/workspace"
)

func countingFetch(calls *atomic.Int64) FetchFunc {
	return func(ctx context.Context) (*workspace.Snapshot, error) {
		calls.Add(1)
		return testSnapshot(), nil
	}
}

// --- Lifecycle ---

func TestStore_LazyBuildAndReuse(t *testing.T) {
	var calls atomic.Int64
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT"}, countingFetch(&calls))
	ctx := context.Background()

	first, err := store.Get(ctx, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if first.Generation() != 1 {
		t.Errorf("first build generation = %d, want 1", first.Generation())
	}

	second, err := store.Get(ctx, "session-1")
	if err != nil {
		t.Fatal(err)
	}
	if second != first {
		t.Error("repeat Get should reuse the cached registry")
	}
	if calls.Load() != 1 {
		t.Errorf("fetch called %d times, want 1", calls.Load())
	}
}

func TestStore_SessionsIsolated(t *testing.T) {
	var calls atomic.Int64
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT"}, countingFetch(&calls))
	ctx := context.Background()

	a, err := store.Get(ctx, "session-a")
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Get(ctx, "session-b")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("distinct sessions must get distinct registries")
	}
	if calls.Load() != 2 {
		t.Errorf("fetch called %d times, want 2", calls.Load())
	}
}

func TestStore_ForceRefreshBumpsGeneration(t *testing.T) {
	var calls atomic.Int64
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT"}, countingFetch(&calls))
	ctx := context.Background()

	first, err := store.Get(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	refreshed, err := store.ForceRefresh(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if refreshed == first {
		t.Error("ForceRefresh returned the stale registry")
	}
	if refreshed.Generation() != first.Generation()+1 {
		t.Errorf("generation = %d, want %d", refreshed.Generation(), first.Generation()+1)
	}
	if calls.Load() != 2 {
		t.Errorf("fetch called %d times, want 2", calls.Load())
	}
}

func TestStore_FetchErrorPropagates(t *testing.T) {
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT"}, func(ctx context.Context) (*workspace.Snapshot, error) {
		return nil, fmt.Errorf("api down")
	})
	if _, err := store.Get(context.Background(), "s"); err == nil {
		t.Error("fetch error should propagate")
	}
}

// --- TTL ---

func TestStore_TTLExpiry(t *testing.T) {
	var calls atomic.Int64
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT", TTL: 10 * time.Millisecond}, countingFetch(&calls))
	ctx := context.Background()

	first, err := store.Get(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	second, err := store.Get(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Error("expired registry was reused")
	}
	if second.Generation() != 2 {
		t.Errorf("rebuild generation = %d, want 2", second.Generation())
	}
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	var calls atomic.Int64
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT"}, countingFetch(&calls))
	ctx := context.Background()

	first, _ := store.Get(ctx, "s")
	time.Sleep(5 * time.Millisecond)
	second, _ := store.Get(ctx, "s")
	if second != first {
		t.Error("zero TTL should never expire a registry")
	}
}

func TestStore_Sweep(t *testing.T) {
	var calls atomic.Int64
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT", TTL: 10 * time.Millisecond}, countingFetch(&calls))
	ctx := context.Background()

	if _, err := store.Get(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if n := store.Sweep(); n != 0 {
		t.Errorf("fresh registries swept: %d", n)
	}
	time.Sleep(20 * time.Millisecond)
	if n := store.Sweep(); n != 2 {
		t.Errorf("Sweep evicted %d, want 2", n)
	}
}

func TestStore_Clear(t *testing.T) {
	var calls atomic.Int64
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT"}, countingFetch(&calls))
	ctx := context.Background()

	first, _ := store.Get(ctx, "s")
	store.Clear("s")
	second, _ := store.Get(ctx, "s")
	if second == first {
		t.Error("Clear should drop the cached registry")
	}
	if second.Generation() != 1 {
		t.Errorf("cleared session restarts generations, got %d", second.Generation())
	}
}

// --- Concurrency ---

func TestStore_ConcurrentFirstUseFetchesOnce(t *testing.T) {
	var calls atomic.Int64
	gate := make(chan struct{})
	store := NewStore(StoreConfig{DefaultTeamKey: "SQT"}, func(ctx context.Context) (*workspace.Snapshot, error) {
		<-gate
		calls.Add(1)
		return testSnapshot(), nil
	})
	ctx := context.Background()

	const n = 16
	regs := make([]*Registry, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			regs[i], errs[i] = store.Get(ctx, "shared")
		}(i)
	}
	time.Sleep(10 * time.Millisecond) // let the goroutines pile onto the flight
	close(gate)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if regs[i] != regs[0] {
			t.Errorf("goroutine %d got a different registry", i)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("fetch called %d times under concurrency, want 1", calls.Load())
	}
}
