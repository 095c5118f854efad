package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/dental-scheduling/internal/metrics"
)

var ErrLockNotAcquired = errors.New("calendar lock not acquired")

// Locker serializes mutations on one dentist's calendar. The critical
// section spans the orchestrator's whole read-check-write sequence, so two
// concurrent bookings cannot both pass the conflict check against a stale
// view. Different dentists lock independently.
type Locker interface {
	WithCalendarLock(ctx context.Context, dentistID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisCalendarLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisCalendarLocker creates a locker backed by a per-dentist Redis
// key. Acquisition retries until wait elapses, so the loser of a race
// re-checks real state instead of failing blind; ttl bounds how long a
// crashed holder can wedge a calendar.
func NewRedisCalendarLocker(client *redis.Client, ttl, wait time.Duration) Locker {
	return &redisCalendarLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
	}
}

func (l *redisCalendarLocker) WithCalendarLock(ctx context.Context, dentistID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:dentist:%s", dentistID.String())
	token := uuid.NewString()

	start := time.Now()
	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}
	metrics.ObserveLockWait(time.Since(start))

	defer func() {
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisCalendarLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire calendar lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisCalendarLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release calendar lock: %w", err)
	}
	return nil
}

// LocalLocker serializes calendars with in-process mutexes. It backs tests
// and single-node deployments that run without Redis; the guarantee is the
// same as the Redis locker but scoped to one process.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *LocalLocker) WithCalendarLock(ctx context.Context, dentistID uuid.UUID, fn func(ctx context.Context) error) error {
	m := l.lockFor(dentistID)
	m.Lock()
	defer m.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (l *LocalLocker) lockFor(dentistID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[dentistID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[dentistID] = m
	}
	return m
}
