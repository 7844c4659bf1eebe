package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	apporder "github.com/pos/backend/internal/application/order"
	"github.com/pos/backend/internal/domain/order"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/infrastructure/cache"
	"github.com/pos/backend/internal/infrastructure/config"
	"github.com/pos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Refresh triggers
const (
	TriggerStart      = "start"
	TriggerPoll       = "poll"
	TriggerPush       = "push"
	TriggerRemote     = "remote"
	TriggerInvalidate = "invalidate"
)

// ErrAlreadyRunning is returned by Start on a running synchronizer
var ErrAlreadyRunning = errors.New("synchronizer already running")

// OrderQuerier is the read side the synchronizer re-reads on every signal
type OrderQuerier interface {
	ListOrders(ctx context.Context, filter apporder.OrderFilter) ([]apporder.OrderResponse, error)
	CountPending(ctx context.Context) (int64, error)
}

// RemoteChanges delivers order changes made by other instances. Subscribe
// blocks until ctx is done.
type RemoteChanges interface {
	Subscribe(ctx context.Context, onChange func(cache.ChangeMessage)) error
}

// Synchronizer keeps the OrderStore current. Every signal, pushed or polled,
// leads to the same full re-read. Signals that arrive while a refresh runs
// collapse into one follow-up refresh.
type Synchronizer struct {
	store    *OrderStore
	orders   OrderQuerier
	interval time.Duration
	limit    int
	logger   *zap.Logger
	metrics  *telemetry.POSMetrics

	bus    shared.EventSubscriber
	remote RemoteChanges

	signals chan string
	refresh sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	handler *busHandler
	wg      sync.WaitGroup
}

// NewSynchronizer creates a synchronizer polling at interval, clamped to
// the allowed window.
func NewSynchronizer(store *OrderStore, orders OrderQuerier, interval time.Duration, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		store:    store,
		orders:   orders,
		interval: config.ClampPollInterval(interval),
		logger:   logger.Named("order-sync"),
		signals:  make(chan string, 1),
	}
}

// SetEventSubscriber enables push signals from the in-process event bus
func (s *Synchronizer) SetEventSubscriber(bus shared.EventSubscriber) {
	s.bus = bus
}

// SetRemoteChanges enables push signals from other instances
func (s *Synchronizer) SetRemoteChanges(remote RemoteChanges) {
	s.remote = remote
}

// SetMetrics sets the business metrics recorder
func (s *Synchronizer) SetMetrics(m *telemetry.POSMetrics) {
	s.metrics = m
}

// SetListLimit caps the number of orders held in the snapshot; 0 keeps all.
func (s *Synchronizer) SetListLimit(n int) {
	s.limit = n
}

// Interval returns the effective poll interval
func (s *Synchronizer) Interval() time.Duration {
	return s.interval
}

// Store returns the store the synchronizer writes
func (s *Synchronizer) Store() *OrderStore {
	return s.store
}

// Start performs an initial refresh and begins listening for signals. The
// loop ends on Stop or when ctx is done.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	if s.bus != nil {
		s.handler = &busHandler{sync: s}
		s.bus.Subscribe(s.handler, order.EventTypes()...)
	}

	s.Trigger(TriggerStart)

	s.wg.Add(1)
	go s.loop(runCtx)

	if s.remote != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := s.remote.Subscribe(runCtx, func(msg cache.ChangeMessage) {
				s.logger.Debug("Remote order change",
					zap.String("kind", string(msg.Kind)),
					zap.String("order_id", msg.OrderID.String()),
				)
				s.Trigger(TriggerRemote)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("Remote change subscription ended, polling only", zap.Error(err))
			}
		}()
	}

	s.logger.Info("Order synchronizer started",
		zap.Duration("poll_interval", s.interval),
		zap.Bool("bus", s.bus != nil),
		zap.Bool("remote", s.remote != nil),
	)
	return nil
}

// Stop cancels the poll ticker and every subscription, then waits for the
// loop to exit. Calling Stop on a stopped synchronizer is a no-op.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	if s.bus != nil && s.handler != nil {
		s.bus.Unsubscribe(s.handler)
		s.handler = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Order synchronizer stopped")
}

// IsRunning reports whether the loop is active
func (s *Synchronizer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Trigger asks for a refresh without waiting for it. If one is already
// pending the signal is absorbed by it.
func (s *Synchronizer) Trigger(trigger string) {
	select {
	case s.signals <- trigger:
	default:
	}
}

// Invalidate discards the optimistic view by forcing a full re-read
func (s *Synchronizer) Invalidate() {
	s.Trigger(TriggerInvalidate)
}

// Refresh re-reads the order list and pending count and publishes the
// result. Concurrent calls are serialized.
func (s *Synchronizer) Refresh(ctx context.Context, trigger string) error {
	s.refresh.Lock()
	defer s.refresh.Unlock()

	orders, err := s.orders.ListOrders(ctx, apporder.OrderFilter{Limit: s.limit})
	if err != nil {
		return err
	}
	pending, err := s.orders.CountPending(ctx)
	if err != nil {
		return err
	}

	snap := s.store.publish(Snapshot{
		Orders:       orders,
		PendingCount: pending,
		RefreshedAt:  time.Now(),
	})
	s.metrics.RecordResync(ctx, trigger)
	s.logger.Debug("Order snapshot refreshed",
		zap.String("trigger", trigger),
		zap.Uint64("version", snap.Version),
		zap.Int("orders", len(orders)),
		zap.Int64("pending", pending),
	)
	return nil
}

// applyLocal publishes an optimistic edit of the current snapshot.
func (s *Synchronizer) applyLocal(fn func(*Snapshot)) {
	s.refresh.Lock()
	defer s.refresh.Unlock()
	s.store.edit(func(snap *Snapshot) {
		fn(snap)
		snap.Optimistic = true
	})
}

func (s *Synchronizer) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case trigger := <-s.signals:
			s.runRefresh(ctx, trigger)
		case <-ticker.C:
			s.runRefresh(ctx, TriggerPoll)
		}
	}
}

func (s *Synchronizer) runRefresh(ctx context.Context, trigger string) {
	if err := s.Refresh(ctx, trigger); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Order refresh failed, retrying on next signal",
			zap.String("trigger", trigger),
			zap.Error(err),
		)
	}
}

// busHandler turns order events on the bus into push signals.
type busHandler struct {
	sync *Synchronizer
}

func (h *busHandler) Handle(_ context.Context, _ shared.DomainEvent) error {
	h.sync.Trigger(TriggerPush)
	return nil
}

func (h *busHandler) EventTypes() []string {
	return order.EventTypes()
}
