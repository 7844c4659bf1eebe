package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pos/backend/internal/domain/order"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultReservationTTL outlives the day an order number belongs to.
	DefaultReservationTTL = 24 * time.Hour
	orderNumberKeyPrefix  = "pos:order-number:"
)

// RedisOrderNumberReserver claims order numbers with SETNX so that every
// instance sharing the redis server sees the same reservations.
type RedisOrderNumberReserver struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisOrderNumberReserver creates a reserver on an existing client.
// The caller keeps ownership of the client.
func NewRedisOrderNumberReserver(client *redis.Client, ttl time.Duration) *RedisOrderNumberReserver {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &RedisOrderNumberReserver{client: client, keyPrefix: orderNumberKeyPrefix, ttl: ttl}
}

// Reserve returns true if the number was free and is now taken
func (r *RedisOrderNumberReserver) Reserve(ctx context.Context, number string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.keyPrefix+number, "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve order number: %w", err)
	}
	return ok, nil
}

// InMemoryOrderNumberReserver keeps reservations in process memory.
// Expired entries are swept periodically.
type InMemoryOrderNumberReserver struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	ttl       time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryOrderNumberReserver creates a reserver and starts its sweeper.
func NewInMemoryOrderNumberReserver(ttl time.Duration) *InMemoryOrderNumberReserver {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	r := &InMemoryOrderNumberReserver{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	r.wg.Add(1)
	go r.sweepLoop(5 * time.Minute)
	return r
}

// Reserve returns true if the number was free and is now taken
func (r *InMemoryOrderNumberReserver) Reserve(_ context.Context, number string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if expiresAt, ok := r.entries[number]; ok && now.Before(expiresAt) {
		return false, nil
	}
	r.entries[number] = now.Add(r.ttl)
	return true, nil
}

// Size returns the number of live and not yet swept entries
func (r *InMemoryOrderNumberReserver) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the sweeper. Safe to call more than once.
func (r *InMemoryOrderNumberReserver) Close() error {
	r.closeOnce.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
	})
	return nil
}

func (r *InMemoryOrderNumberReserver) sweepLoop(every time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *InMemoryOrderNumberReserver) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for number, expiresAt := range r.entries {
		if !now.Before(expiresAt) {
			delete(r.entries, number)
		}
	}
}

// NewOrderNumberReserver picks the redis reserver when a client is given and
// falls back to process memory otherwise.
func NewOrderNumberReserver(client *redis.Client, logger *zap.Logger) order.NumberReserver {
	if client != nil {
		logger.Info("using redis order number reservations")
		return NewRedisOrderNumberReserver(client, DefaultReservationTTL)
	}
	logger.Warn("redis not configured, order numbers are only unique within this process")
	return NewInMemoryOrderNumberReserver(DefaultReservationTTL)
}

var (
	_ order.NumberReserver = (*RedisOrderNumberReserver)(nil)
	_ order.NumberReserver = (*InMemoryOrderNumberReserver)(nil)
)
