package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelizeCoversEveryItemOnce(t *testing.T) {
	for _, items := range []int{0, 1, 7, 1000, 4099} {
		seen := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, n := range seen {
			if n != 1 {
				t.Fatalf("items=%d: index %d visited %d times", items, i, n)
			}
		}
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		if start != 0 || end != 10 {
			t.Errorf("got range [%d,%d), want [0,10)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("expected one sequential call, got %d", calls)
	}
}

func TestForEachRangeReturnsLowestError(t *testing.T) {
	errLow := errors.New("low")
	errHigh := errors.New("high")

	err := ForEachRange(10000, 10, func(start, end int) error {
		if start == 0 {
			return errLow
		}
		if end == 10000 {
			return errHigh
		}
		return nil
	})
	if !errors.Is(err, errLow) {
		t.Errorf("ForEachRange error = %v, want %v", err, errLow)
	}

	if err := ForEachRange(50, 10, func(int, int) error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
