// Package parallel splits row-wise work across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultThreshold is the row count below which work runs on the calling
// goroutine.
const DefaultThreshold = 1000

// chunks returns the [start, end) ranges that cover items, one per worker.
func chunks(items int) [][2]int {
	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	out := make([][2]int, 0, numWorkers)
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// Parallelize runs fn over disjoint ranges of [0, items) concurrently and
// waits for all of them.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	var wg sync.WaitGroup
	for _, c := range chunks(items) {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(c[0], c[1])
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items <= threshold and
// through Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}

// ForEachRange is ParallelizeWithThreshold for fallible work. It returns the
// error of the lowest-indexed failing range so results are deterministic
// regardless of scheduling.
func ForEachRange(items, threshold int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}
	if items <= threshold {
		return fn(0, items)
	}

	ranges := chunks(items)
	errs := make([]error, len(ranges))
	var wg sync.WaitGroup
	for i, c := range ranges {
		wg.Add(1)
		go func(i, s, e int) {
			defer wg.Done()
			errs[i] = fn(s, e)
		}(i, c[0], c[1])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
