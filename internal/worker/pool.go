package worker

import (
	"context"
	"sync"
)

// Task is one unit of work producing a T
type Task[T any] func(ctx context.Context) (T, error)

// Pool bounds how many tasks run concurrently
type Pool struct {
	workers int
}

// NewPool creates a pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Workers is the concurrency bound
func (p *Pool) Workers() int { return p.workers }

// Run executes tasks on at most p.Workers() goroutines and returns the results
// in task order. The first failure cancels tasks that have not started yet and
// is returned instead of the results.
func Run[T any](ctx context.Context, p *Pool, tasks []Task[T]) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]T, len(tasks))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < min(p.workers, len(tasks)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				r, err := tasks[i](ctx)
				if err != nil {
					fail(err)
					continue
				}
				results[i] = r
			}
		}()
	}

feed:
	for i := range tasks {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
