package parallel

import (
	"fmt"
	"sync/atomic"
	"testing"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	for _, items := range []int{1, 7, 100, 1001} {
		t.Run(fmt.Sprintf("items=%d", items), func(t *testing.T) {
			hits := make([]int32, items)
			err := Parallelize(items, 4, func(start, end int) error {
				for i := start; i < end; i++ {
					atomic.AddInt32(&hits[i], 1)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestParallelizeReturnsError(t *testing.T) {
	want := fmt.Errorf("row 3 failed")
	err := Parallelize(10, 3, func(start, end int) error {
		if start <= 3 && 3 < end {
			return want
		}
		return nil
	})
	if err != want {
		t.Errorf("Parallelize() error = %v, want %v", err, want)
	}
}

func TestParallelizeWithThreshold(t *testing.T) {
	var calls int32
	err := ParallelizeWithThreshold(50, 100, 8, func(start, end int) error {
		atomic.AddInt32(&calls, 1)
		if start != 0 || end != 50 {
			t.Errorf("sequential path should get full range, got [%d,%d)", start, end)
		}
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("expected one sequential call, got %d (err=%v)", calls, err)
	}

	calls = 0
	_ = ParallelizeWithThreshold(50, 10, 5, func(start, end int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if calls != 5 {
		t.Errorf("expected 5 chunks above threshold, got %d", calls)
	}

	if err := Parallelize(0, 4, func(int, int) error { return fmt.Errorf("never") }); err != nil {
		t.Errorf("zero items should not call fn: %v", err)
	}
}

func TestWorkers(t *testing.T) {
	if got := Workers(3, 8); got != 3 {
		t.Errorf("Workers(3, 8) = %d, want 3", got)
	}
	if got := Workers(100, 4); got != 4 {
		t.Errorf("Workers(100, 4) = %d, want 4", got)
	}
	if got := Workers(100, 0); got < 1 {
		t.Errorf("Workers(100, 0) = %d, want >= 1", got)
	}
}
