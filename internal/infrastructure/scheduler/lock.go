package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld means another run owns the lock for the key.
var ErrLockHeld = errors.New("rollup lock held elsewhere")

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out named, expiring locks.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker shares locks across instances through redis.
type RedisLocker struct {
	client *redislock.Client
}

// NewRedisLocker creates a RedisLocker
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(client)}
}

// Obtain tries once and returns ErrLockHeld when the key is taken
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockHeld
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// LocalLocker serializes within one process when redis is absent.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocalLocker creates a LocalLocker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

// Obtain returns ErrLockHeld while an unexpired lock exists for key
func (l *LocalLocker) Obtain(_ context.Context, key string, ttl time.Duration) (Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.held[key]; ok && now.Before(expires) {
		return nil, ErrLockHeld
	}
	expires := now.Add(ttl)
	l.held[key] = expires
	return &localLock{owner: l, key: key, expires: expires}, nil
}

type localLock struct {
	owner   *LocalLocker
	key     string
	expires time.Time
}

func (k *localLock) Release(context.Context) error {
	k.owner.mu.Lock()
	defer k.owner.mu.Unlock()
	// a lock that expired and was re-obtained belongs to someone else
	if k.owner.held[k.key].Equal(k.expires) {
		delete(k.owner.held, k.key)
	}
	return nil
}

// NewLocker picks the redis locker when a client is available.
func NewLocker(client *redis.Client) Locker {
	if client == nil {
		return NewLocalLocker()
	}
	return NewRedisLocker(client)
}
