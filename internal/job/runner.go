package job

import (
	"context"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Submitter is what services see: enqueue a job, or fail fast when the
// queue is saturated.
type Submitter interface {
	Submit(job Job) error
}

// Runner is a fixed-size worker pool with a bounded queue. Request
// handlers enqueue indexing work here and return immediately; the
// workers absorb the embedding load.
type Runner struct {
	queue   chan Job
	workers int
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func NewRunner(workers, queueSize int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Runner{
		queue:   make(chan Job, queueSize),
		workers: workers,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(ctx)
	}
}

// Submit never blocks: a full queue is ErrTooMany and the caller
// decides how to surface it. A request that races shutdown gets the
// same answer instead of a send on the closed queue.
func (r *Runner) Submit(job Job) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return appErr.ErrTooMany
	}
	select {
	case r.queue <- job:
		return nil
	default:
		return appErr.ErrTooMany
	}
}

// Stop drains queued jobs and waits for workers to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.stopped {
		r.stopped = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()
	for job := range r.queue {
		logger := logutil.GetLogger(ctx).With(zap.String("job", job.Name()))
		start := time.Now()
		logger.Info("job started")
		err := job.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
			continue
		}
		logger.Info("job finished", zap.Duration("duration", elapsed))
	}
}
