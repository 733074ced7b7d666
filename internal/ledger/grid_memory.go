package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/tallyform/tallyform/internal/shared"
)

// MemoryWorkbook keeps grids in memory, one per period. Used in tests
// and as the reference implementation of Grid semantics.
type MemoryWorkbook struct {
	mu     sync.Mutex
	sheets map[string]*MemoryGrid
}

// NewMemoryWorkbook constructs an empty workbook.
func NewMemoryWorkbook() *MemoryWorkbook {
	return &MemoryWorkbook{sheets: map[string]*MemoryGrid{}}
}

// Open never materializes the sheet; the backing grid is created by
// the first write, so read-only access leaves the workbook untouched.
func (w *MemoryWorkbook) Open(ctx context.Context, period shared.Period) (Grid, error) {
	return &memorySheet{wb: w, key: period.String()}, nil
}

// Periods lists the periods that have a materialized sheet.
func (w *MemoryWorkbook) Periods() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.sheets))
	for key := range w.sheets {
		out = append(out, key)
	}
	return out
}

// memorySheet is a lazy view over one period of a MemoryWorkbook.
type memorySheet struct {
	wb  *MemoryWorkbook
	key string
}

func (s *memorySheet) grid(create bool) *MemoryGrid {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	g, ok := s.wb.sheets[s.key]
	if !ok && create {
		g = &MemoryGrid{}
		s.wb.sheets[s.key] = g
	}
	return g
}

func (s *memorySheet) RowCount(ctx context.Context) (int, error) {
	g := s.grid(false)
	if g == nil {
		return 0, nil
	}
	return g.RowCount(ctx)
}

func (s *memorySheet) ReadRow(ctx context.Context, row int) ([]string, error) {
	g := s.grid(false)
	if g == nil {
		return nil, fmt.Errorf("%w: row %d out of range", shared.ErrNotFound, row)
	}
	return g.ReadRow(ctx, row)
}

func (s *memorySheet) ReadColumn(ctx context.Context, col int) ([]string, error) {
	g := s.grid(false)
	if g == nil {
		return nil, nil
	}
	return g.ReadColumn(ctx, col)
}

func (s *memorySheet) WriteCells(ctx context.Context, row int, cells map[int]string) error {
	return s.grid(true).WriteCells(ctx, row, cells)
}

func (s *memorySheet) AppendRow(ctx context.Context, cells map[int]string) (int, error) {
	return s.grid(true).AppendRow(ctx, cells)
}

// MemoryGrid is a mutex-guarded in-memory grid.
type MemoryGrid struct {
	mu   sync.Mutex
	rows [][]string
}

func (g *MemoryGrid) RowCount(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rows), nil
}

func (g *MemoryGrid) ReadRow(ctx context.Context, row int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row < 0 || row >= len(g.rows) {
		return nil, fmt.Errorf("%w: row %d out of range", shared.ErrNotFound, row)
	}
	out := make([]string, len(g.rows[row]))
	copy(out, g.rows[row])
	return out, nil
}

func (g *MemoryGrid) ReadColumn(ctx context.Context, col int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.rows))
	for i, row := range g.rows {
		if col < len(row) {
			out[i] = row[col]
		}
	}
	return out, nil
}

func (g *MemoryGrid) WriteCells(ctx context.Context, row int, cells map[int]string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row < 0 || row >= len(g.rows) {
		return fmt.Errorf("%w: row %d out of range", shared.ErrNotFound, row)
	}
	for col, value := range cells {
		g.growRow(row, col)
		g.rows[row][col] = value
	}
	return nil
}

func (g *MemoryGrid) AppendRow(ctx context.Context, cells map[int]string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rows = append(g.rows, nil)
	row := len(g.rows) - 1
	for col, value := range cells {
		g.growRow(row, col)
		g.rows[row][col] = value
	}
	return row, nil
}

func (g *MemoryGrid) growRow(row, col int) {
	for len(g.rows[row]) <= col {
		g.rows[row] = append(g.rows[row], "")
	}
}
