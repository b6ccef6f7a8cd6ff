package utils

import (
	"context"
	"os"
	"strconv"
	"sync"
)

// DefaultSemaphoreLimit is the worker count used when none is configured.
const DefaultSemaphoreLimit = 4

// GetSemaphoreLimit returns SEMAPHORE_LIMIT from the environment, or
// DefaultSemaphoreLimit.
func GetSemaphoreLimit() int {
	limit, err := strconv.Atoi(os.Getenv("SEMAPHORE_LIMIT"))
	if err != nil || limit <= 0 {
		return DefaultSemaphoreLimit
	}
	return limit
}

// Worker processes one item of a WorkerPool.
type Worker[T any, R any] func(ctx context.Context, item T) (R, error)

// WorkerPool runs a worker over a slice of items with bounded concurrency.
// Results and errors are returned in item order. Panics in the worker are
// recovered as *PanicError. Items not started before ctx is cancelled get
// ctx.Err().
//
//	pool := NewWorkerPool(4, func(ctx context.Context, batch []*types.Record) (int, error) {
//		return len(batch), d.Upsert(ctx, batch...)
//	})
//	counts, errs := pool.ProcessItems(ctx, Batch(records, 500))
type WorkerPool[T any, R any] struct {
	numWorkers int
	worker     Worker[T, R]
}

// NewWorkerPool creates a pool. numWorkers of zero or less uses
// GetSemaphoreLimit.
func NewWorkerPool[T any, R any](numWorkers int, worker Worker[T, R]) *WorkerPool[T, R] {
	if numWorkers <= 0 {
		numWorkers = GetSemaphoreLimit()
	}
	return &WorkerPool[T, R]{numWorkers: numWorkers, worker: worker}
}

// ProcessItems blocks until every item is processed or skipped.
func (wp *WorkerPool[T, R]) ProcessItems(ctx context.Context, items []T) ([]R, []error) {
	if len(items) == 0 {
		return nil, nil
	}

	indexes := make(chan int, len(items))
	for i := range items {
		indexes <- i
	}
	close(indexes)

	results := make([]R, len(items))
	errs := make([]error, len(items))
	var wg sync.WaitGroup

	for w := 0; w < min(wp.numWorkers, len(items)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				func() {
					defer RecoverWithCallback(func(err error) { errs[i] = err })
					results[i], errs[i] = wp.worker(ctx, items[i])
				}()
			}
		}()
	}

	wg.Wait()
	return results, errs
}

// Batch splits items into consecutive slices of at most batchSize.
func Batch[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = 10
	}

	var batches [][]T
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}
