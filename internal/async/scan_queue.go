package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/ashwini-cargo/internal/common"
	"github.com/joseph-ayodele/ashwini-cargo/internal/metrics"
)

// ScanQueue runs submitted scans on a fixed pool of workers.
type ScanQueue struct {
	proc    Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// quit wakes blocked senders; ch is closed only after they have left.
	quit    chan struct{}
	sending sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

type Option func(*ScanQueue)

func WithWorkers(n int) Option {
	return func(q *ScanQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ScanQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds each scan; zero leaves scans unbounded.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ScanQueue) {
		if d >= 0 {
			q.timeout = d
		}
	}
}

func NewScanQueue(proc Processor, logger *slog.Logger, opts ...Option) *ScanQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ScanQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 2 * time.Minute,
		ch:      make(chan Job, 64),
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ScanQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("scan worker started", "worker_id", workerID)

				for job := range q.ch {
					metrics.QueueDepth(len(q.ch))
					q.run(workerID, job)
				}

				q.logger.Info("scan worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ScanQueue) run(workerID int, job Job) {
	ctx := common.WithRequestID(context.Background(), job.RequestID)
	ctx, cancel := common.WithTimeout(ctx, q.timeout)
	defer cancel()

	scan, err := q.proc.Process(ctx, job.ScanID, job.Input)
	if err != nil {
		q.logger.Error("scan processing failed",
			"worker_id", workerID,
			"scan_id", job.ScanID,
			"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
			"error", err,
		)
		return
	}
	q.logger.Info("scan processed",
		"worker_id", workerID,
		"scan_id", job.ScanID,
		"status", scan.Status,
		"needs_review", scan.NeedsReview,
	)
}

// Enqueue hands a job to the workers. It blocks while the queue is full
// until ctx is done, and fails once Shutdown has begun.
func (q *ScanQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return q.closedErr(job)
	}
	q.sending.Add(1)
	q.mu.RUnlock()
	defer q.sending.Done()

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("scan queue full, applying backpressure", "scan_id", job.ScanID)
		select {
		case q.ch <- job:
		case <-q.quit:
			return q.closedErr(job)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	metrics.QueueDepth(len(q.ch))
	q.logger.Info("queued scan for processing", "scan_id", job.ScanID)
	return nil
}

func (q *ScanQueue) closedErr(job Job) error {
	q.logger.Warn("cannot enqueue: queue is shutting down", "scan_id", job.ScanID)
	return common.NewAppError(common.CodeUnavailable, "scan queue is shutting down", common.ErrQueueClosed)
}

// Shutdown stops accepting jobs and waits for queued scans to drain or ctx to end.
func (q *ScanQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.quit)
	q.mu.Unlock()

	q.sending.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("scan queue shutdown interrupted by context")
	case <-done:
		q.logger.Info("scan queue drained, shutdown complete")
	}
}
