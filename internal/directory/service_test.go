package directory

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tallyform/tallyform/internal/shared"
)

type fakeRoster struct {
	entries []ActiveIdentity
	err     error
	calls   atomic.Int64
}

func (f *fakeRoster) List(ctx context.Context) ([]ActiveIdentity, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeRoster) Add(ctx context.Context, id ActiveIdentity) error    { return nil }
func (f *fakeRoster) Deactivate(ctx context.Context, key string) error    { return nil }

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestGate_FiltersAndDedupes(t *testing.T) {
	roster := &fakeRoster{entries: []ActiveIdentity{
		{Key: "a@x.com", DisplayName: "First A", Active: true},
		{Key: "a@x.com", DisplayName: "Second A", Active: true},
		{Key: "b@x.com", DisplayName: "B", Active: false},
		{Key: "c@x.com", DisplayName: "C", Active: true},
	}}
	gate := NewGate(roster, time.Minute, testLogger())

	active, err := gate.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active identities, got %d", len(active))
	}
	if active["a@x.com"].DisplayName != "First A" {
		t.Fatalf("first occurrence should win, got %q", active["a@x.com"].DisplayName)
	}
	if _, ok := active["b@x.com"]; ok {
		t.Fatal("inactive identity leaked through the gate")
	}
}

func TestGate_CachesWithinTTL(t *testing.T) {
	roster := &fakeRoster{entries: []ActiveIdentity{{Key: "a@x.com", Active: true}}}
	gate := NewGate(roster, time.Minute, testLogger())

	for i := 0; i < 5; i++ {
		if _, err := gate.ListActive(context.Background()); err != nil {
			t.Fatalf("ListActive: %v", err)
		}
	}
	if got := roster.calls.Load(); got != 1 {
		t.Fatalf("expected single roster read, got %d", got)
	}
}

func TestGate_InvalidateForcesReload(t *testing.T) {
	roster := &fakeRoster{entries: []ActiveIdentity{{Key: "a@x.com", Active: true}}}
	gate := NewGate(roster, time.Minute, testLogger())

	if _, err := gate.ListActive(context.Background()); err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	gate.Invalidate()
	if _, err := gate.ListActive(context.Background()); err != nil {
		t.Fatalf("ListActive after invalidate: %v", err)
	}
	if got := roster.calls.Load(); got != 2 {
		t.Fatalf("expected reload after invalidate, got %d reads", got)
	}
}

func TestGate_ExpiredSnapshotReloads(t *testing.T) {
	roster := &fakeRoster{entries: []ActiveIdentity{{Key: "a@x.com", Active: true}}}
	gate := NewGate(roster, time.Minute, testLogger())
	current := time.Now()
	gate.now = func() time.Time { return current }

	if _, err := gate.ListActive(context.Background()); err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	current = current.Add(2 * time.Minute)
	if _, err := gate.ListActive(context.Background()); err != nil {
		t.Fatalf("ListActive after expiry: %v", err)
	}
	if got := roster.calls.Load(); got != 2 {
		t.Fatalf("expected reload after expiry, got %d reads", got)
	}
}

func TestGate_RosterFailureIsFatal(t *testing.T) {
	roster := &fakeRoster{err: shared.ErrDirectoryUnavailable}
	gate := NewGate(roster, time.Minute, testLogger())

	if _, err := gate.IsActive(context.Background(), "a@x.com"); !errors.Is(err, shared.ErrDirectoryUnavailable) {
		t.Fatalf("expected ErrDirectoryUnavailable, got %v", err)
	}
}

func TestGate_IsActive(t *testing.T) {
	roster := &fakeRoster{entries: []ActiveIdentity{{Key: "a@x.com", Active: true}}}
	gate := NewGate(roster, time.Minute, testLogger())

	ok, err := gate.IsActive(context.Background(), "a@x.com")
	if err != nil || !ok {
		t.Fatalf("expected active, got ok=%v err=%v", ok, err)
	}
	ok, err = gate.IsActive(context.Background(), "nobody@x.com")
	if err != nil || ok {
		t.Fatalf("expected inactive, got ok=%v err=%v", ok, err)
	}
}
