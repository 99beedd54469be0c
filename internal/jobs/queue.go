package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// workQueue fans submitted job IDs out to a fixed pool of pipeline workers.
type workQueue struct {
	run     func(ctx context.Context, id uuid.UUID)
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan uuid.UUID
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*workQueue)

func WithWorkers(n int) QueueOption {
	return func(q *workQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *workQueue) {
		if n > 0 {
			q.ch = make(chan uuid.UUID, n)
		}
	}
}

func WithJobTimeout(d time.Duration) QueueOption {
	return func(q *workQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func newWorkQueue(run func(ctx context.Context, id uuid.UUID), logger *slog.Logger, opts ...QueueOption) *workQueue {
	q := &workQueue{
		run:     run,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan uuid.UUID, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *workQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for id := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					q.run(ctx, id)
					cancel()
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *workQueue) enqueue(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", id)
		return
	}
	select {
	case q.ch <- id:
		q.logger.Info("queued job for processing", "job_id", id)
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", id)
		q.ch <- id
	}
}

func (q *workQueue) shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
