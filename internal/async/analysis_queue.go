package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/statuscert/internal/entity"
)

// Analyzer is the unit of work run by each worker.
type Analyzer interface {
	Analyze(ctx context.Context, doc entity.Document) (entity.ExtractionResult, error)
}

// ResultHandler receives outcomes. It is called from worker goroutines and
// must be safe for concurrent use.
type ResultHandler func(Outcome)

type AnalysisQueue struct {
	analyzer Analyzer
	handle   ResultHandler
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	// mu is read-held by senders; Shutdown takes it exclusively to close ch.
	mu          sync.RWMutex
	closed      bool
	closing     chan struct{}
	closingOnce sync.Once
}

var _ Queue = (*AnalysisQueue)(nil)

type Option func(*AnalysisQueue)

func WithWorkers(n int) Option {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *AnalysisQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *AnalysisQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewAnalysisQueue(analyzer Analyzer, handle ResultHandler, logger *slog.Logger, opts ...Option) *AnalysisQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if handle == nil {
		handle = func(Outcome) {}
	}
	q := &AnalysisQueue{
		analyzer: analyzer,
		handle:   handle,
		logger:   logger,
		workers:  2,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 64),
		closing:  make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *AnalysisQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *AnalysisQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	res, err := q.analyzer.Analyze(ctx, job.Doc)
	out := Outcome{Job: job, Result: res, Err: err, Elapsed: time.Since(start)}

	if err != nil {
		q.logger.Error("async.job.failed", "worker_id", workerID, "job_id", job.ID, "file", job.Doc.Name, "error", err)
	} else {
		q.logger.Info("async.job.ok",
			"worker_id", workerID,
			"job_id", job.ID,
			"file", job.Doc.Name,
			"degraded", res.Degraded(),
			"elapsed_ms", out.Elapsed.Milliseconds(),
		)
	}
	q.handle(out)
}

// Enqueue blocks while the queue is full, until ctx is done or Shutdown begins.
func (q *AnalysisQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "job_id", job.ID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.enqueue.ok", "job_id", job.ID, "file", job.Doc.Name)
		return nil
	default:
	}
	q.logger.Warn("async.enqueue.backpressure", "job_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closing:
		q.logger.Warn("async.enqueue.closed", "job_id", job.ID)
		return ErrQueueClosed
	}
}

// Shutdown stops intake and waits for queued jobs to finish or ctx to end.
func (q *AnalysisQueue) Shutdown(ctx context.Context) {
	q.closingOnce.Do(func() { close(q.closing) })
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
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
