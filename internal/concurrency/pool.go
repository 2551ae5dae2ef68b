// Package concurrency runs a batch of task closures with bounded
// parallelism (§4.1): if there are fewer tasks than the limit they all run
// at once, otherwise at most limit run concurrently. Results come back
// indexed by submission order regardless of completion order; the first
// failing task cancels the rest and its error is returned.
package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work submitted to the pool.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes tasks with at most limit running concurrently and returns
// their results in submission order. No task is ever started twice; the
// pool holds no state beyond the single call.
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) ([]T, error) {
	if limit <= 0 {
		limit = 1
	}

	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			result, err := task(gctx)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
