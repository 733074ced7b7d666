package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tallyform/tallyform/internal/shared"
)

// ActiveChecker gates upserts on the identity directory.
type ActiveChecker interface {
	IsActive(ctx context.Context, key string) (bool, error)
}

// UpsertResult reports the outcome of one upsert attempt.
type UpsertResult struct {
	OK       bool       `json:"ok"`
	Dropped  bool       `json:"dropped"`
	Created  bool       `json:"created"`
	Identity string     `json:"identity"`
	Status   Status     `json:"status,omitempty"`
	Row      int        `json:"-"`
	BackupID *uuid.UUID `json:"backup_id,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// Engine performs the status-governed idempotent upsert of submission
// rows. All ledger mutation goes through here, under a period-scoped
// lock spanning the find-row through overwrite steps.
type Engine struct {
	gate     ActiveChecker
	workbook Workbook
	backups  BackupStore
	locker   Locker
	lockRoot string
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine wires the upsert engine. lockRoot scopes lock keys to one
// deployment's ledger root.
func NewEngine(gate ActiveChecker, workbook Workbook, backups BackupStore, locker Locker, lockRoot string, logger *slog.Logger) *Engine {
	return &Engine{
		gate:     gate,
		workbook: workbook,
		backups:  backups,
		locker:   locker,
		lockRoot: lockRoot,
		logger:   logger,
		now:      time.Now,
	}
}

// Upsert inserts or overwrites the identity's row for the period.
// Inactive identities are silently dropped. Approved rows are immutable.
// Any overwrite of a non-empty row appends a backup snapshot first; the
// row overwrite itself is a single batched write and the last possible
// failure point.
func (e *Engine) Upsert(ctx context.Context, period shared.Period, identity, displayName string, fields map[string]string) (UpsertResult, error) {
	active, err := e.gate.IsActive(ctx, identity)
	if err != nil {
		return UpsertResult{Identity: identity}, err
	}
	if !active {
		// Deliberate silent skip so roster membership does not leak.
		// Logged distinctly from other no-ops.
		e.logger.Info("submission dropped",
			slog.String("reason", "identity_inactive"),
			slog.String("identity", identity),
			slog.String("period", period.String()))
		return UpsertResult{OK: true, Dropped: true, Identity: identity, Message: "submission dropped"}, nil
	}

	release, err := e.locker.Acquire(ctx, shared.SubmissionLockKey(e.lockRoot, period))
	if err != nil {
		return UpsertResult{Identity: identity}, err
	}
	defer release()

	grid, err := e.workbook.Open(ctx, period)
	if err != nil {
		return UpsertResult{Identity: identity}, err
	}
	positions, err := EnsureHeaders(ctx, grid)
	if err != nil {
		return UpsertResult{Identity: identity}, err
	}

	row, found, err := FindRowByIdentity(ctx, grid, positions[HeaderIdentity], identity)
	if err != nil {
		return UpsertResult{Identity: identity}, err
	}

	merged := make(map[string]string, len(fields)+4)
	for name, value := range fields {
		merged[name] = value
	}
	merged[HeaderIdentity] = identity
	merged[HeaderDisplayName] = displayName
	merged[HeaderSubmittedAt] = e.now().UTC().Format(time.RFC3339)

	if !found {
		merged[HeaderStatus] = string(StatusSubmitted)
		newRow, err := grid.AppendRow(ctx, rowCells(positions, merged))
		if err != nil {
			return UpsertResult{Identity: identity}, err
		}
		return UpsertResult{OK: true, Created: true, Identity: identity, Status: StatusSubmitted, Row: newRow}, nil
	}

	current, err := grid.ReadRow(ctx, row)
	if err != nil {
		return UpsertResult{Identity: identity}, err
	}
	cellAt := func(col int) string {
		if col >= 0 && col < len(current) {
			return current[col]
		}
		return ""
	}

	prior := Status(cellAt(positions[HeaderStatus]))
	next, err := NextOnUpsert(prior)
	if err != nil {
		return UpsertResult{
			Identity: identity,
			Status:   prior,
			Row:      row,
			Message:  "already approved — contact an administrator",
		}, err
	}

	var backupID *uuid.UUID
	if prior != "" {
		// Snapshot the full row before anything is overwritten.
		snapshot := make(map[string]string, len(positions))
		for name, col := range positions {
			snapshot[name] = cellAt(col)
		}
		rec := BackupRecord{
			ID:          uuid.New(),
			Period:      period.String(),
			Identity:    identity,
			SubmittedAt: cellAt(positions[HeaderSubmittedAt]),
			PriorStatus: prior,
			Cells:       snapshot,
			CreatedAt:   e.now().UTC(),
		}
		if err := e.backups.Append(ctx, rec); err != nil {
			return UpsertResult{Identity: identity}, fmt.Errorf("backup before overwrite: %w", err)
		}
		backupID = &rec.ID
	}

	merged[HeaderStatus] = string(next)
	if err := WriteRow(ctx, grid, positions, merged, row); err != nil {
		return UpsertResult{Identity: identity}, err
	}
	return UpsertResult{OK: true, Identity: identity, Status: next, Row: row, BackupID: backupID}, nil
}

// SetStatus applies a collaborator transition (approve or reject) to an
// existing row. The upsert immutability check is what guards APPROVED;
// this only validates that the row is in a reviewable state.
func (e *Engine) SetStatus(ctx context.Context, period shared.Period, identity string, target Status) error {
	if target != StatusApproved && target != StatusRejected {
		return fmt.Errorf("%w: status %s not reviewable", shared.ErrValidation, target)
	}

	release, err := e.locker.Acquire(ctx, shared.SubmissionLockKey(e.lockRoot, period))
	if err != nil {
		return err
	}
	defer release()

	grid, err := e.workbook.Open(ctx, period)
	if err != nil {
		return err
	}
	positions, err := HeaderPositions(ctx, grid)
	if err != nil {
		return err
	}
	statusCol, ok := positions[HeaderStatus]
	if !ok {
		return fmt.Errorf("%w: ledger %s has no status column", shared.ErrNotFound, period)
	}
	identityCol, ok := positions[HeaderIdentity]
	if !ok {
		return fmt.Errorf("%w: ledger %s has no identity column", shared.ErrNotFound, period)
	}

	row, found, err := FindRowByIdentity(ctx, grid, identityCol, identity)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: no submission for %s in %s", shared.ErrNotFound, identity, period)
	}

	current, err := grid.ReadRow(ctx, row)
	if err != nil {
		return err
	}
	var prior Status
	if statusCol < len(current) {
		prior = Status(current[statusCol])
	}
	if prior == target {
		return nil
	}
	if !CanReview(prior) {
		if prior == StatusApproved {
			return fmt.Errorf("%w", shared.ErrImmutableRecord)
		}
		return fmt.Errorf("%w: cannot move %s submission to %s", shared.ErrValidation, prior, target)
	}
	return grid.WriteCells(ctx, row, map[int]string{statusCol: string(target)})
}

// Row returns the identity's row for the period keyed by header name,
// with its status, or found=false when no submission exists.
func (e *Engine) Row(ctx context.Context, period shared.Period, identity string) (map[string]string, Status, bool, error) {
	grid, err := e.workbook.Open(ctx, period)
	if err != nil {
		return nil, "", false, err
	}
	positions, err := HeaderPositions(ctx, grid)
	if err != nil {
		return nil, "", false, err
	}
	identityCol, ok := positions[HeaderIdentity]
	if !ok {
		return nil, "", false, nil
	}
	row, found, err := FindRowByIdentity(ctx, grid, identityCol, identity)
	if err != nil || !found {
		return nil, "", false, err
	}
	current, err := grid.ReadRow(ctx, row)
	if err != nil {
		return nil, "", false, err
	}
	out := make(map[string]string, len(positions))
	for name, col := range positions {
		if col < len(current) {
			out[name] = current[col]
		} else {
			out[name] = ""
		}
	}
	return out, Status(out[HeaderStatus]), true, nil
}

// Backups lists the identity's snapshots for the period, oldest first.
func (e *Engine) Backups(ctx context.Context, period shared.Period, identity string) ([]BackupRecord, error) {
	return e.backups.ListByIdentity(ctx, period, identity)
}

// IsImmutableRecord reports whether err is the approved-row failure.
func IsImmutableRecord(err error) bool {
	return errors.Is(err, shared.ErrImmutableRecord)
}
