package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tallyform/tallyform/internal/shared"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute, 100*time.Millisecond)

	release, err := locker.Acquire(context.Background(), "ledger:test:2025-06:lock")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	// Released lock is immediately reacquirable.
	release2, err := locker.Acquire(context.Background(), "ledger:test:2025-06:lock")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release2()
}

func TestRedisLocker_ContentionTimesOut(t *testing.T) {
	client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute, 120*time.Millisecond)

	release, err := locker.Acquire(context.Background(), "ledger:test:2025-06:lock")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	_, err = locker.Acquire(context.Background(), "ledger:test:2025-06:lock")
	if !errors.Is(err, shared.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

func TestRedisLocker_IndependentKeysDoNotContend(t *testing.T) {
	client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute, 100*time.Millisecond)

	releaseA, err := locker.Acquire(context.Background(), "ledger:test:2025-06:lock")
	if err != nil {
		t.Fatalf("Acquire june: %v", err)
	}
	defer releaseA()

	releaseB, err := locker.Acquire(context.Background(), "ledger:test:2025-07:lock")
	if err != nil {
		t.Fatalf("Acquire july: %v", err)
	}
	releaseB()
}

func TestLocalLocker_Timeout(t *testing.T) {
	locker := NewLocalLocker(50 * time.Millisecond)
	release, err := locker.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	_, err = locker.Acquire(context.Background(), "k")
	if !errors.Is(err, shared.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}
