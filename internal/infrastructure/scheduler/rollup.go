package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/report"
	"github.com/pos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const rollupLockPrefix = "pos:rollup:"

// OrderLister is the read side of the order repository the rollup needs.
type OrderLister interface {
	List(ctx context.Context, filter order.Filter) ([]order.Order, error)
}

// RollupExecutor recomputes one day of the daily sales summary from live orders.
type RollupExecutor struct {
	orders    OrderLister
	summaries report.SummaryRepository
	locker    Locker
	lockTTL   time.Duration
	loc       *time.Location
	logger    *zap.Logger
}

// NewRollupExecutor creates a RollupExecutor
func NewRollupExecutor(orders OrderLister, summaries report.SummaryRepository, locker Locker, lockTTL time.Duration, loc *time.Location, logger *zap.Logger) *RollupExecutor {
	if loc == nil {
		loc = time.UTC
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &RollupExecutor{
		orders:    orders,
		summaries: summaries,
		locker:    locker,
		lockTTL:   lockTTL,
		loc:       loc,
		logger:    logger,
	}
}

// Execute runs the job under a per-day lock. A day already being rolled up
// elsewhere is skipped.
func (e *RollupExecutor) Execute(ctx context.Context, job *Job) error {
	key := rollupLockPrefix + report.DateKey(job.Day, e.loc)
	lock, err := e.locker.Obtain(ctx, key, e.lockTTL)
	if errors.Is(err, ErrLockHeld) {
		e.logger.Debug("Rollup already running elsewhere", zap.String("lock", key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("obtain rollup lock: %w", err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn("Failed to release rollup lock", zap.String("lock", key), zap.Error(err))
		}
	}()

	_, err = e.RollupDay(ctx, job.Day)
	return err
}

// RollupDay writes the summary row for the calendar day containing day.
func (e *RollupExecutor) RollupDay(ctx context.Context, day time.Time) (report.DailySalesSummary, error) {
	from, to := report.StartOfDay(day, e.loc), report.EndOfDay(day, e.loc)
	orders, err := e.orders.List(ctx, order.Filter{From: &from, To: &to})
	if err != nil {
		return report.DailySalesSummary{}, fmt.Errorf("list orders for rollup: %w", err)
	}

	summary := report.LiveDailyTotals(day, orders, e.loc)
	if err := e.summaries.Upsert(ctx, summary); err != nil {
		return report.DailySalesSummary{}, fmt.Errorf("upsert daily summary: %w", err)
	}

	e.logger.Info("Daily summary rolled up",
		zap.String("date", summary.Date.Format(time.DateOnly)),
		zap.Int("orders", summary.TotalOrders),
		zap.String("revenue", summary.TotalRevenue.StringFixed(2)),
	)
	return summary, nil
}

// RollupRunner periodically refreshes today's and yesterday's summaries.
type RollupRunner struct {
	interval   time.Duration
	maxRetries int
	loc        *time.Location
	scheduler  *Scheduler
	logger     *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRollupRunner creates a RollupRunner over an executor
func NewRollupRunner(cfg config.RollupConfig, executor JobExecutor, loc *time.Location, logger *zap.Logger) *RollupRunner {
	if loc == nil {
		loc = time.UTC
	}
	schedCfg := SchedulerConfigFrom(cfg)
	return &RollupRunner{
		interval:   cfg.Interval,
		maxRetries: schedCfg.RetryAttempts,
		loc:        loc,
		scheduler:  NewScheduler(schedCfg, executor, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Start launches the worker pool and the ticker. The first rollup is queued immediately.
func (r *RollupRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}
	if r.interval <= 0 {
		return ErrInvalidConfig
	}
	if err := r.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx)
	r.logger.Info("Rollup runner started", zap.Duration("interval", r.interval))
	return nil
}

// Stop halts the ticker and drains the worker pool
func (r *RollupRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return r.scheduler.Stop(ctx)
}

func (r *RollupRunner) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.scheduleRecent()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.scheduleRecent()
		}
	}
}

// scheduleRecent queues yesterday and today. Yesterday is refreshed so
// late edits around midnight still land.
func (r *RollupRunner) scheduleRecent() {
	today := report.StartOfDay(r.now(), r.loc)
	yesterday := report.StartOfDay(today.Add(-12*time.Hour), r.loc)
	for _, day := range []time.Time{yesterday, today} {
		if err := r.scheduler.SubmitJob(NewJob(day, r.maxRetries)); err != nil {
			r.logger.Warn("Failed to queue rollup job",
				zap.String("date", report.DateKey(day, r.loc)),
				zap.Error(err),
			)
		}
	}
}
