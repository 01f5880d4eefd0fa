package dispatch

import (
	"sync"
	"testing"
	"time"
)

func TestRateLimiterAdmitsUpToLimit(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(30, 60*time.Second)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 30; i++ {
		if !rl.Acquire() {
			t.Fatalf("acquire %d should succeed within window", i+1)
		}
	}
	if rl.Acquire() {
		t.Fatal("31st acquire within the same window should fail")
	}
}

func TestRateLimiterSlotFreesAfterWindow(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3, 60*time.Second)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		if !rl.Acquire() {
			t.Fatalf("warmup acquire %d failed", i)
		}
		clock = clock.Add(time.Second)
	}
	if rl.Acquire() {
		t.Fatal("limiter should be saturated")
	}

	// The oldest call was 3s ago; its slot opens when the window passes it.
	want := 57 * time.Second
	if got := rl.TimeUntilNextSlot(); got != want {
		t.Fatalf("time until next slot: got %v, want %v", got, want)
	}

	clock = clock.Add(57 * time.Second)
	if !rl.Acquire() {
		t.Fatal("slot should free once the oldest call ages out")
	}
}

func TestRateLimiterZeroWaitWhenFree(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	if got := rl.TimeUntilNextSlot(); got != 0 {
		t.Fatalf("expected zero wait on fresh limiter, got %v", got)
	}
}

func TestRateLimiterConcurrentNoDoubleAdmission(t *testing.T) {
	rl := NewRateLimiter(50, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Acquire() {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Fatalf("expected exactly 50 admissions, got %d", admitted)
	}
}
