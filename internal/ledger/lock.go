package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tallyform/tallyform/internal/shared"
)

// Locker serializes the read-then-write section of an upsert per
// period. Acquire blocks for a bounded wait and fails with
// shared.ErrLockTimeout on contention beyond the budget.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const lockPollInterval = 50 * time.Millisecond

// RedisLocker implements Locker with SET NX and a token-checked
// release, so only the holder can free the lock and a crashed holder's
// lock expires after ttl.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker constructs a RedisLocker. ttl bounds how long a dead
// holder can block writers; wait bounds how long Acquire blocks.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: acquire %s: %v", shared.ErrTransientIO, key, err)
		}
		if ok {
			release := func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_, _ = unlockScript.Run(ctx, l.client, []string{key}, token).Result()
			}
			return release, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", shared.ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// LocalLocker is an in-process Locker for tests and single-node runs.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	wait  time.Duration
}

// NewLocalLocker constructs a LocalLocker with the given wait budget.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{locks: map[string]*sync.Mutex{}, wait: wait}
}

func (l *LocalLocker) forKey(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	m := l.forKey(key)
	deadline := time.Now().Add(l.wait)
	for {
		if m.TryLock() {
			return m.Unlock, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", shared.ErrLockTimeout, key)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}
