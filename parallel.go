package meanshift

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Executor runs index-range work across a bounded number of goroutines. It
// is the execution context handed to every parallel phase of Fit; there is
// no package-level pool, so concurrent fits with different worker counts do
// not interfere.
type Executor struct {
	workers int
}

// NewExecutor returns an Executor using up to workers goroutines.
// workers <= 0 means runtime.NumCPU().
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Executor{workers: workers}
}

// Workers returns the configured degree of parallelism.
func (e *Executor) Workers() int { return e.workers }

// Map calls fn(i) for every i in [0, n) and waits for all calls to finish.
// Rows are split into contiguous ranges, one per worker, and at most
// min(workers, n) goroutines run. Each call must write only to its own
// output slot; no synchronization is provided for writes. The first error
// returned by any call is returned after all workers stop.
func (e *Executor) Map(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	workers := min(e.workers, n)
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)

	rowsPerWorker := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		startRow := w * rowsPerWorker
		endRow := min(startRow+rowsPerWorker, n)
		if startRow >= n {
			break
		}

		g.Go(func() error {
			for i := startRow; i < endRow; i++ {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
