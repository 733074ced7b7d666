// Package ledger implements the monthly submission ledger: a tabular
// document per period with one row per submitting identity, a dynamic
// name-addressed header schema, an append-only backup store, and the
// status-governed upsert engine that ties them together.
package ledger

import (
	"context"

	"github.com/tallyform/tallyform/internal/shared"
)

// Grid is one period's tabular document. Row 0 holds header names; data
// rows start at 1. Cells are strings; absent cells read as "".
type Grid interface {
	// RowCount returns the number of rows including the header row.
	RowCount(ctx context.Context) (int, error)
	// ReadRow returns the cells of one row, left to right.
	ReadRow(ctx context.Context, row int) ([]string, error)
	// ReadColumn returns one column's cells, top to bottom.
	ReadColumn(ctx context.Context, col int) ([]string, error)
	// WriteCells writes the given column→value cells of one row as a
	// single batch.
	WriteCells(ctx context.Context, row int, cells map[int]string) error
	// AppendRow appends a row with the given cells and returns its index.
	AppendRow(ctx context.Context, cells map[int]string) (int, error)
}

// Workbook resolves the grid for a period. Open must not mutate the
// backing store; the sheet is materialized by the grid's first write,
// so status reads against unknown periods leave nothing behind.
// Implementations return errors wrapping shared.ErrLedgerUnavailable
// when the backing document store is unreachable.
type Workbook interface {
	Open(ctx context.Context, period shared.Period) (Grid, error)
}
