package usecase

import (
	"context"
	"time"
)

// SequentialQueue runs tasks one at a time with a configurable pause between
// items. Batch pacing lives here as a parameter instead of inline sleeps so
// backpressure is explicit and testable.
type SequentialQueue struct {
	Delay time.Duration
}

// Run executes fn for indexes [0,n) strictly in order, pausing Delay between
// items. A context cancellation stops the queue and reports the remaining
// indexes via the returned slice.
func (q SequentialQueue) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) (unprocessed []int) {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			for j := i; j < n; j++ {
				unprocessed = append(unprocessed, j)
			}
			return unprocessed
		}
		fn(ctx, i)
		if q.Delay > 0 && i < n-1 {
			select {
			case <-time.After(q.Delay):
			case <-ctx.Done():
			}
		}
	}
	return nil
}
