package concurrent

import (
	"context"
	"sync"

	"github.com/lintang-b-s/graphcut/pkg/util"
)

// JobFunc processes one job. Each call runs on a single worker goroutine.
type JobFunc[T any, G any] func(ctx context.Context, job T) G

// Indexed carries the position of a job so results can be put back in input order.
type Indexed[T any] struct {
	Index int
	Value T
}

type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan Indexed[T]
	results    chan Indexed[G]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan Indexed[T], jobQueueSize),
		results:    make(chan Indexed[G], jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(ctx context.Context, jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		if util.StopConcurrentOperation(ctx) {
			// drain the queue so the producer is never blocked
			continue
		}
		wp.results <- Indexed[G]{Index: job.Index, Value: jobFunc(ctx, job.Value)}
	}
}

func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, jobFunc)
	}
}

// Wait blocks until every worker returned and closes the result channel.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(index int, job T) {
	wp.jobQueue <- Indexed[T]{Index: index, Value: job}
}

func (wp *WorkerPool[T, G]) CollectResults() <-chan Indexed[G] {
	return wp.results
}

// Close signals that no more jobs will be added.
func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}
