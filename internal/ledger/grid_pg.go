package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyform/tallyform/internal/platform/db"
	"github.com/tallyform/tallyform/internal/shared"
)

// PGWorkbook stores grids in Postgres: one ledger_sheets row per period,
// cells in ledger_cells keyed by (period, row, col).
type PGWorkbook struct {
	pool *pgxpool.Pool
}

// NewPGWorkbook constructs a Postgres-backed workbook.
func NewPGWorkbook(pool *pgxpool.Pool) *PGWorkbook {
	return &PGWorkbook{pool: pool}
}

// Open never touches the database; the sheet row is created by the
// first write so status reads cannot leave empty sheets behind.
func (w *PGWorkbook) Open(ctx context.Context, period shared.Period) (Grid, error) {
	return &pgGrid{pool: w.pool, period: period.String()}, nil
}

type pgGrid struct {
	pool   *pgxpool.Pool
	period string
}

func (g *pgGrid) RowCount(ctx context.Context) (int, error) {
	var count int
	err := g.pool.QueryRow(ctx, `SELECT COALESCE(MAX(row_idx) + 1, 0) FROM ledger_cells WHERE period = $1`, g.period).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: row count: %v", shared.ErrLedgerUnavailable, err)
	}
	return count, nil
}

func (g *pgGrid) ReadRow(ctx context.Context, row int) ([]string, error) {
	rows, err := g.pool.Query(ctx, `SELECT col_idx, value FROM ledger_cells WHERE period = $1 AND row_idx = $2 ORDER BY col_idx`, g.period, row)
	if err != nil {
		return nil, fmt.Errorf("%w: read row %d: %v", shared.ErrLedgerUnavailable, row, err)
	}
	defer rows.Close()

	cells := map[int]string{}
	width := 0
	for rows.Next() {
		var col int
		var value string
		if err := rows.Scan(&col, &value); err != nil {
			return nil, fmt.Errorf("%w: scan row %d: %v", shared.ErrLedgerUnavailable, row, err)
		}
		cells[col] = value
		if col+1 > width {
			width = col + 1
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read row %d: %v", shared.ErrLedgerUnavailable, row, err)
	}
	out := make([]string, width)
	for col, value := range cells {
		out[col] = value
	}
	return out, nil
}

func (g *pgGrid) ReadColumn(ctx context.Context, col int) ([]string, error) {
	height, err := g.RowCount(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := g.pool.Query(ctx, `SELECT row_idx, value FROM ledger_cells WHERE period = $1 AND col_idx = $2 ORDER BY row_idx`, g.period, col)
	if err != nil {
		return nil, fmt.Errorf("%w: read column %d: %v", shared.ErrLedgerUnavailable, col, err)
	}
	defer rows.Close()

	out := make([]string, height)
	for rows.Next() {
		var row int
		var value string
		if err := rows.Scan(&row, &value); err != nil {
			return nil, fmt.Errorf("%w: scan column %d: %v", shared.ErrLedgerUnavailable, col, err)
		}
		if row < height {
			out[row] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read column %d: %v", shared.ErrLedgerUnavailable, col, err)
	}
	return out, nil
}

func (g *pgGrid) ensureSheet(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `INSERT INTO ledger_sheets (period) VALUES ($1) ON CONFLICT (period) DO NOTHING`, g.period)
	return err
}

func (g *pgGrid) WriteCells(ctx context.Context, row int, cells map[int]string) error {
	err := db.WithTx(ctx, g.pool, func(tx pgx.Tx) error {
		if err := g.ensureSheet(ctx, tx); err != nil {
			return err
		}
		for col, value := range cells {
			_, err := tx.Exec(ctx, `INSERT INTO ledger_cells (period, row_idx, col_idx, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (period, row_idx, col_idx) DO UPDATE SET value = EXCLUDED.value`, g.period, row, col, value)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: write row %d: %v", shared.ErrLedgerUnavailable, row, err)
	}
	return nil
}

func (g *pgGrid) AppendRow(ctx context.Context, cells map[int]string) (int, error) {
	var row int
	err := db.WithTx(ctx, g.pool, func(tx pgx.Tx) error {
		if err := g.ensureSheet(ctx, tx); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(row_idx) + 1, 0) FROM ledger_cells WHERE period = $1`, g.period).Scan(&row); err != nil {
			return err
		}
		for col, value := range cells {
			_, err := tx.Exec(ctx, `INSERT INTO ledger_cells (period, row_idx, col_idx, value)
VALUES ($1, $2, $3, $4)`, g.period, row, col, value)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: append row: %v", shared.ErrLedgerUnavailable, err)
	}
	return row, nil
}
