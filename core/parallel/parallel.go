package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Parallelize divides items into contiguous ranges, one per worker, and runs
// fn for each range on its own goroutine. It returns the first error any
// range reported. Ranges never overlap, so fn may write results[start:end]
// without locking.
func Parallelize(items, workers int, fn func(start, end int) error) error {
	if items == 0 {
		return nil
	}

	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		s, e := start, end
		g.Go(func() error {
			return fn(s, e)
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold, and through Parallelize otherwise.
// A negative threshold always runs sequentially.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int) error) error {
	if threshold < 0 || items <= threshold {
		return fn(0, items)
	}
	return Parallelize(items, workers, fn)
}

// Workers reports how many goroutines Parallelize would use for items.
func Workers(items, workers int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		return items
	}
	return workers
}
