package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/tallyform/tallyform/internal/shared"
)

func TestMemoryWorkbook_OpenDoesNotMaterialize(t *testing.T) {
	ctx := context.Background()
	wb := NewMemoryWorkbook()

	g, err := wb.Open(ctx, june())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if count, err := g.RowCount(ctx); err != nil || count != 0 {
		t.Fatalf("row count = %d, %v; want 0, nil", count, err)
	}
	if _, err := g.ReadRow(ctx, 0); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("read row on empty sheet: %v, want ErrNotFound", err)
	}
	if got := wb.Periods(); len(got) != 0 {
		t.Fatalf("open materialized sheets %v", got)
	}

	if _, err := g.AppendRow(ctx, map[int]string{0: "identity"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := wb.Periods(); len(got) != 1 || got[0] != "2025-06" {
		t.Fatalf("periods after first write = %v", got)
	}
}

func TestEngine_RowUnknownPeriodLeavesNoSheet(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t, "a@x.com")

	_, _, found, err := f.engine.Row(ctx, june(), "a@x.com")
	if err != nil {
		t.Fatalf("row: %v", err)
	}
	if found {
		t.Fatal("found a row in an empty workbook")
	}
	if got := f.workbook.Periods(); len(got) != 0 {
		t.Fatalf("status read materialized sheets %v", got)
	}
}
