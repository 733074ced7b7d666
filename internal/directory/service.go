package directory

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type snapshot struct {
	byKey   map[string]ActiveIdentity
	expires time.Time
}

// Gate resolves which identities are currently permitted to write.
// Roster reads are cached in an atomically swapped snapshot for a
// bounded window; concurrent refreshes are collapsed via singleflight.
type Gate struct {
	roster Roster
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
	snap   atomic.Pointer[snapshot]
	now    func() time.Time
}

// NewGate constructs the directory gate. ttl bounds how long a roster
// snapshot may be served before a re-read.
func NewGate(roster Roster, ttl time.Duration, logger *slog.Logger) *Gate {
	return &Gate{roster: roster, ttl: ttl, logger: logger, now: time.Now}
}

// ListActive returns the active roster keyed by identity. Duplicates are
// deduplicated keeping the first occurrence; inactive entries are
// filtered out. Callers must not mutate the returned map.
func (g *Gate) ListActive(ctx context.Context) (map[string]ActiveIdentity, error) {
	if snap := g.snap.Load(); snap != nil && g.now().Before(snap.expires) {
		return snap.byKey, nil
	}

	v, err, _ := g.group.Do("roster", func() (any, error) {
		entries, err := g.roster.List(ctx)
		if err != nil {
			return nil, err
		}
		byKey := make(map[string]ActiveIdentity, len(entries))
		for _, e := range entries {
			if !e.Active {
				continue
			}
			if _, seen := byKey[e.Key]; seen {
				continue
			}
			byKey[e.Key] = e
		}
		snap := &snapshot{byKey: byKey, expires: g.now().Add(g.ttl)}
		g.snap.Store(snap)
		return byKey, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]ActiveIdentity), nil
}

// IsActive reports whether the identity may submit. A roster read
// failure is fatal for the submission path and is returned as-is.
func (g *Gate) IsActive(ctx context.Context, key string) (bool, error) {
	active, err := g.ListActive(ctx)
	if err != nil {
		return false, err
	}
	_, ok := active[key]
	return ok, nil
}

// Lookup returns the roster entry for an active identity.
func (g *Gate) Lookup(ctx context.Context, key string) (ActiveIdentity, bool, error) {
	active, err := g.ListActive(ctx)
	if err != nil {
		return ActiveIdentity{}, false, err
	}
	id, ok := active[key]
	return id, ok, nil
}

// Invalidate drops the cached snapshot. Called whenever the roster is
// mutated so the next read observes the change.
func (g *Gate) Invalidate() {
	g.snap.Store(nil)
}

// Refresh forces a roster re-read, used by the warmup job.
func (g *Gate) Refresh(ctx context.Context) error {
	g.Invalidate()
	_, err := g.ListActive(ctx)
	return err
}
