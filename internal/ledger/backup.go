package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyform/tallyform/internal/shared"
)

// BackupRecord is an immutable snapshot of a row's prior contents,
// taken before any overwrite of a non-empty submission. The store is
// append-only: records are never deleted. SubmittedAt carries the raw
// submitted_at cell text (RFC3339, or empty for rows written before
// the column existed) and is stored as text, not a timestamp.
type BackupRecord struct {
	ID          uuid.UUID         `json:"id"`
	Period      string            `json:"period"`
	Identity    string            `json:"identity"`
	SubmittedAt string            `json:"submitted_at"`
	PriorStatus Status            `json:"prior_status"`
	Cells       map[string]string `json:"cells"`
	CreatedAt   time.Time         `json:"created_at"`
}

// BackupStore persists row snapshots.
type BackupStore interface {
	Append(ctx context.Context, rec BackupRecord) error
	ListByIdentity(ctx context.Context, period shared.Period, identity string) ([]BackupRecord, error)
}

// MemoryBackupStore is an in-memory BackupStore for tests.
type MemoryBackupStore struct {
	mu   sync.Mutex
	recs []BackupRecord
}

// NewMemoryBackupStore constructs an empty store.
func NewMemoryBackupStore() *MemoryBackupStore {
	return &MemoryBackupStore{}
}

func (s *MemoryBackupStore) Append(ctx context.Context, rec BackupRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *MemoryBackupStore) ListByIdentity(ctx context.Context, period shared.Period, identity string) ([]BackupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []BackupRecord
	for _, rec := range s.recs {
		if rec.Period == period.String() && rec.Identity == identity {
			out = append(out, rec)
		}
	}
	return out, nil
}

// PGBackupStore persists snapshots in Postgres with jsonb cells.
type PGBackupStore struct {
	pool *pgxpool.Pool
}

// NewPGBackupStore constructs the store.
func NewPGBackupStore(pool *pgxpool.Pool) *PGBackupStore {
	return &PGBackupStore{pool: pool}
}

func (s *PGBackupStore) Append(ctx context.Context, rec BackupRecord) error {
	cells, err := json.Marshal(rec.Cells)
	if err != nil {
		return fmt.Errorf("marshal backup cells: %w", err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO ledger_backups (id, period, identity, submitted_at, prior_status, cells, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Period, rec.Identity, rec.SubmittedAt, string(rec.PriorStatus), cells, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: append backup: %v", shared.ErrLedgerUnavailable, err)
	}
	return nil
}

func (s *PGBackupStore) ListByIdentity(ctx context.Context, period shared.Period, identity string) ([]BackupRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, period, identity, submitted_at, prior_status, cells, created_at
FROM ledger_backups WHERE period = $1 AND identity = $2 ORDER BY created_at ASC`, period.String(), identity)
	if err != nil {
		return nil, fmt.Errorf("%w: list backups: %v", shared.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	var out []BackupRecord
	for rows.Next() {
		var rec BackupRecord
		var status string
		var cells []byte
		if err := rows.Scan(&rec.ID, &rec.Period, &rec.Identity, &rec.SubmittedAt, &status, &cells, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan backup: %v", shared.ErrLedgerUnavailable, err)
		}
		rec.PriorStatus = Status(status)
		if err := json.Unmarshal(cells, &rec.Cells); err != nil {
			return nil, fmt.Errorf("unmarshal backup cells: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list backups: %v", shared.ErrLedgerUnavailable, err)
	}
	return out, nil
}
