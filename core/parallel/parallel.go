package parallel

import (
	"runtime"
	"sync"

	"github.com/YuminosukeSato/lgbm/pkg/errors"
)

// Workers resolves a requested thread count: values <= 0 mean all CPUs.
func Workers(requested int) int {
	if requested <= 0 {
		return runtime.NumCPU()
	}
	return requested
}

// ParallelizeN splits [0, items) into one contiguous range per worker and
// calls fn for each range concurrently. Ranges are disjoint, so fn may write
// to per-index slots without locking.
//
// A panic in a worker goroutine is recovered and re-raised on the calling
// goroutine as an *errors.PanicError once every worker has returned, so a
// deferred errors.Recover in the caller sees it.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	workers = Workers(workers)
	if workers > items {
		workers = items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	// ceiling division
	chunkSize := (items + workers - 1) / workers

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			err := errors.SafeExecute("parallel worker", func() error {
				fn(s, e)
				return nil
			})
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(start, end)
	}
	wg.Wait()
	if firstErr != nil {
		panic(firstErr)
	}
}

// ParallelizeWithThreshold runs fn sequentially when items <= threshold and
// with ParallelizeN otherwise.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	ParallelizeN(items, workers, fn)
}
