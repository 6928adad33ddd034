package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool runs the tasks of one page with bounded parallelism.
type Pool struct {
	limit int
}

// NewPool returns a pool running at most limit tasks at once.
func NewPool(limit int) *Pool {
	if limit <= 0 {
		limit = 1
	}
	return &Pool{limit: limit}
}

// Limit reports the maximum number of tasks in flight.
func (p *Pool) Limit() int {
	return p.limit
}

// Run submits task for indices 0..n-1 and blocks until every submitted task
// has returned. A free slot is taken before stop is consulted, so a task
// waiting for a slot never starts once stop reports true. When stop is true
// or ctx is done, nothing more is submitted. Tasks already running still
// finish. Run returns the number of submitted tasks.
func (p *Pool) Run(ctx context.Context, n int, stop func() bool, task func(ctx context.Context, i int)) int {
	var g errgroup.Group
	slots := semaphore.NewWeighted(int64(p.limit))

	submitted := 0
	for i := 0; i < n; i++ {
		if err := slots.Acquire(ctx, 1); err != nil {
			break
		}
		if ctx.Err() != nil || (stop != nil && stop()) {
			slots.Release(1)
			break
		}
		i := i
		g.Go(func() error {
			defer slots.Release(1)
			task(ctx, i)
			return nil
		})
		submitted++
	}
	_ = g.Wait()
	return submitted
}
