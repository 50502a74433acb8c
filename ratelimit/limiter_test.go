package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAllowDebounce(t *testing.T) {
	base := time.Unix(1000, 0)

	cases := []struct {
		name   string
		second time.Duration
		want   bool
	}{
		{"within interval", 500 * time.Millisecond, false},
		{"exactly at interval", 600 * time.Millisecond, true},
		{"past interval", 700 * time.Millisecond, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := New(600 * time.Millisecond)
			if !l.Allow(1, base) {
				t.Fatal("first message must always be allowed")
			}
			if got := l.Allow(1, base.Add(tc.second)); got != tc.want {
				t.Fatalf("second message at +%v: got %v, want %v", tc.second, got, tc.want)
			}
		})
	}
}

func TestRejectionDoesNotAdvanceTimestamp(t *testing.T) {
	base := time.Unix(1000, 0)
	l := New(600 * time.Millisecond)

	l.Allow(1, base)
	l.Allow(1, base.Add(500*time.Millisecond)) // rejected

	// 700ms after the accepted message; the rejected one must not count.
	if !l.Allow(1, base.Add(700*time.Millisecond)) {
		t.Fatal("rejected message must not reset the debounce window")
	}
}

func TestUsersAreIndependent(t *testing.T) {
	base := time.Unix(1000, 0)
	l := New(600 * time.Millisecond)

	if !l.Allow(1, base) {
		t.Fatal("user 1 first message must be allowed")
	}
	if !l.Allow(2, base) {
		t.Fatal("user 2 must not be affected by user 1")
	}
}

func TestConcurrentSameUserAdmitsOne(t *testing.T) {
	l := New(600 * time.Millisecond)
	now := time.Unix(1000, 0)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(42, now) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 1 {
		t.Fatalf("expected exactly 1 racing message admitted, got %d", got)
	}
}

func TestCleanupStale(t *testing.T) {
	base := time.Unix(1000, 0)
	l := New(600 * time.Millisecond)

	l.Allow(1, base)
	l.Allow(2, base.Add(2*time.Hour))

	removed := l.CleanupStale(time.Hour, base.Add(2*time.Hour))
	if removed != 1 {
		t.Fatalf("expected 1 stale entry removed, got %d", removed)
	}
	if l.Size() != 1 {
		t.Fatalf("expected 1 entry left, got %d", l.Size())
	}
}
