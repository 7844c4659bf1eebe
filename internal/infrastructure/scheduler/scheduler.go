package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Submission and startup failures.
var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	ErrInvalidConfig       = errors.New("scheduler needs at least one worker")
)

// Job is one rollup run for a single calendar day.
type Job struct {
	ID         uuid.UUID
	Day        time.Time
	Attempts   int
	MaxRetries int
	LastError  error
}

// NewJob creates a job for day that may be retried maxRetries times.
func NewJob(day time.Time, maxRetries int) *Job {
	return &Job{ID: uuid.New(), Day: day, MaxRetries: maxRetries}
}

// Key identifies the day the job covers; one job per key is queued at a time.
func (j *Job) Key() string {
	return j.Day.Format(time.DateOnly)
}

func (j *Job) retryable() bool {
	return j.Attempts <= j.MaxRetries
}

// JobExecutor runs one job.
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// SchedulerConfig sizes the worker pool and its retry policy.
type SchedulerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	// RetryAttempts is the default MaxRetries for jobs the runner creates.
	RetryAttempts int
	// RetryDelay grows linearly with each failed attempt.
	RetryDelay time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Workers:       2,
		QueueSize:     32,
		JobTimeout:    2 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    30 * time.Second,
	}
}

// SchedulerConfigFrom maps the rollup settings onto a scheduler config
func SchedulerConfigFrom(cfg config.RollupConfig) SchedulerConfig {
	out := DefaultSchedulerConfig()
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.JobTimeout > 0 {
		out.JobTimeout = cfg.JobTimeout
	}
	if cfg.RetryAttempts >= 0 {
		out.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		out.RetryDelay = cfg.RetryDelay
	}
	return out
}

// Scheduler runs day jobs on a fixed worker pool. A day that is already
// queued or running is not queued again.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger
	jobs     chan *Job

	mu      sync.Mutex
	running bool
	pending map[string]struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultSchedulerConfig().QueueSize
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *Job, config.QueueSize),
		pending:  make(map[string]struct{}),
	}
}

// Start launches the workers. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if s.config.Workers <= 0 {
		return ErrInvalidConfig
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	for id := range s.config.Workers {
		s.wg.Add(1)
		go s.work(ctx, id)
	}

	s.logger.Info("Scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels the workers and waits for in-flight jobs until ctx ends.
// Queued jobs that have not started are dropped.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	clear(s.pending)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether workers are active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SubmitJob queues job without blocking. A job for a day that is already
// pending is dropped and reported as accepted.
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrSchedulerNotRunning
	}
	key := job.Key()
	if _, dup := s.pending[key]; dup {
		s.logger.Debug("Rollup already pending", zap.String("date", key))
		return nil
	}

	select {
	case s.jobs <- job:
		s.pending[key] = struct{}{}
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) work(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.run(ctx, job, id)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job, worker int) {
	jobCtx := ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	job.Attempts++
	job.LastError = s.executor.Execute(jobCtx, job)
	fields := []zap.Field{
		zap.Int("worker_id", worker),
		zap.String("job_id", job.ID.String()),
		zap.String("date", job.Key()),
		zap.Int("attempt", job.Attempts),
	}
	if job.LastError == nil {
		s.release(job)
		s.logger.Debug("Job completed", fields...)
		return
	}

	s.logger.Error("Job failed", append(fields, zap.Error(job.LastError))...)
	if !job.retryable() || ctx.Err() != nil {
		s.release(job)
		return
	}
	delay := s.config.RetryDelay * time.Duration(job.Attempts)
	time.AfterFunc(delay, func() { s.requeue(job) })
}

// requeue puts a retry back on the queue; its day stays pending meanwhile.
func (s *Scheduler) requeue(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	select {
	case s.jobs <- job:
	default:
		delete(s.pending, job.Key())
		s.logger.Warn("Dropped rollup retry, queue full", zap.String("date", job.Key()))
	}
}

func (s *Scheduler) release(job *Job) {
	s.mu.Lock()
	delete(s.pending, job.Key())
	s.mu.Unlock()
}
