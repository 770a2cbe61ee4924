package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Enqueue before Start or after Stop.
var ErrQueueClosed = errors.New("jobs: queue closed")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ResultHook observes job outcomes. final is true when no further attempt will be made.
type ResultHook func(job Job, err error, final bool)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers      int
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	DrainTimeout time.Duration
	OnResult     ResultHook
	Logger       *zap.Logger
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines. Failed jobs are retried
// after RetryDelay up to MaxRetries times; buffered jobs are drained on Stop.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	retries sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new jobs, lets workers finish what is buffered within DrainTimeout and waits for them.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	q.retries.Wait()
	close(q.jobs)
	q.workers.Wait()
	q.logger.Info("queue stopped")
}

// Pending reports how many jobs are buffered and not yet picked up.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Enqueue pushes a job onto the queue, assigning an ID when none is set.
func (q *Queue) Enqueue(job Job) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started || q.closed {
		return "", fmt.Errorf("%w: %s", ErrQueueClosed, q.name)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		return job.ID, nil
	default:
		return "", fmt.Errorf("jobs: queue %s full", q.name)
	}
}

func (q *Queue) worker() {
	defer q.workers.Done()
	for job := range q.jobs {
		q.run(job)
	}
}

func (q *Queue) run(job Job) {
	ctx := q.ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), q.cfg.DrainTimeout)
		defer cancel()
	}

	err := q.handler(ctx, job)
	if err == nil {
		q.report(job, nil, true)
		return
	}
	q.handleFailure(job, err)
}

func (q *Queue) handleFailure(job Job, err error) {
	if job.Attempt >= q.cfg.MaxRetries || q.ctx.Err() != nil {
		q.logger.Error("job failed permanently",
			zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))
		q.report(job, err, true)
		return
	}
	q.report(job, err, false)
	job.Attempt++
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err))

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.logger.Warn("retry dropped on shutdown", zap.String("job_id", j.ID), zap.String("type", j.Type))
			q.report(j, err, true)
		case <-timer.C:
			if _, rerr := q.Enqueue(j); rerr != nil {
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(rerr))
				q.report(j, rerr, true)
			}
		}
	}(job)
}

func (q *Queue) report(job Job, err error, final bool) {
	if q.cfg.OnResult != nil {
		q.cfg.OnResult(job, err, final)
	}
}
