package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyform/tallyform/internal/shared"
)

// Roster reads and mutates the flat identity roster.
type Roster interface {
	List(ctx context.Context) ([]ActiveIdentity, error)
	Add(ctx context.Context, id ActiveIdentity) error
	Deactivate(ctx context.Context, key string) error
}

type pgRoster struct {
	pool *pgxpool.Pool
}

// NewRoster constructs a Postgres-backed roster.
func NewRoster(pool *pgxpool.Pool) Roster {
	return &pgRoster{pool: pool}
}

// List returns roster entries in insertion order. Duplicate keys are
// possible at this layer; the gate keeps the first occurrence.
func (r *pgRoster) List(ctx context.Context) ([]ActiveIdentity, error) {
	rows, err := r.pool.Query(ctx, `SELECT identity_key, display_name, active FROM identities ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list roster: %v", shared.ErrDirectoryUnavailable, err)
	}
	defer rows.Close()

	var out []ActiveIdentity
	for rows.Next() {
		var id ActiveIdentity
		if err := rows.Scan(&id.Key, &id.DisplayName, &id.Active); err != nil {
			return nil, fmt.Errorf("%w: scan roster: %v", shared.ErrDirectoryUnavailable, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read roster: %v", shared.ErrDirectoryUnavailable, err)
	}
	return out, nil
}

func (r *pgRoster) Add(ctx context.Context, id ActiveIdentity) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO identities (identity_key, display_name, active)
VALUES ($1, $2, $3)`, id.Key, id.DisplayName, id.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: identity %s", shared.ErrDuplicate, id.Key)
		}
		return fmt.Errorf("%w: add identity: %v", shared.ErrDirectoryUnavailable, err)
	}
	return nil
}

func (r *pgRoster) Deactivate(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE identities SET active = FALSE WHERE identity_key = $1`, key)
	if err != nil {
		return fmt.Errorf("%w: deactivate identity: %v", shared.ErrDirectoryUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: identity %s", shared.ErrNotFound, key)
	}
	return nil
}
