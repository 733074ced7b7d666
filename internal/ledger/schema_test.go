package ledger

import (
	"context"
	"testing"
)

func TestEnsureHeaders_EmptyGrid(t *testing.T) {
	g := &MemoryGrid{}
	pos, err := EnsureHeaders(context.Background(), g)
	if err != nil {
		t.Fatalf("EnsureHeaders: %v", err)
	}
	if len(pos) != len(Recognized) {
		t.Fatalf("expected %d headers, got %d", len(Recognized), len(pos))
	}
	for col, h := range Recognized {
		if pos[h.Name] != col {
			t.Fatalf("header %s at column %d, want %d", h.Name, pos[h.Name], col)
		}
	}
}

func TestEnsureHeaders_AppendsMissingWithoutMovingExisting(t *testing.T) {
	ctx := context.Background()
	g := &MemoryGrid{}
	// A historical ledger created when the form had fewer fields, with
	// one data row already present.
	if _, err := g.AppendRow(ctx, map[int]string{0: HeaderIdentity, 1: HeaderStatus, 2: HeaderRemarks}); err != nil {
		t.Fatalf("seed header row: %v", err)
	}
	if _, err := g.AppendRow(ctx, map[int]string{0: "a@x.com", 1: "SUBMITTED", 2: "old remark"}); err != nil {
		t.Fatalf("seed data row: %v", err)
	}

	pos, err := EnsureHeaders(ctx, g)
	if err != nil {
		t.Fatalf("EnsureHeaders: %v", err)
	}
	if pos[HeaderIdentity] != 0 || pos[HeaderStatus] != 1 || pos[HeaderRemarks] != 2 {
		t.Fatalf("existing header positions moved: %v", pos)
	}
	if len(pos) != len(Recognized) {
		t.Fatalf("expected all %d headers present, got %d", len(Recognized), len(pos))
	}
	for name, col := range pos {
		if name != HeaderIdentity && name != HeaderStatus && name != HeaderRemarks && col < 3 {
			t.Fatalf("new header %s inserted mid-sequence at %d", name, col)
		}
	}

	// Existing data untouched.
	dataRow, err := g.ReadRow(ctx, 1)
	if err != nil {
		t.Fatalf("ReadRow: %v", err)
	}
	if dataRow[0] != "a@x.com" || dataRow[1] != "SUBMITTED" || dataRow[2] != "old remark" {
		t.Fatalf("schema evolution disturbed existing cells: %v", dataRow)
	}
}

func TestEnsureHeaders_Idempotent(t *testing.T) {
	ctx := context.Background()
	g := &MemoryGrid{}
	first, err := EnsureHeaders(ctx, g)
	if err != nil {
		t.Fatalf("first EnsureHeaders: %v", err)
	}
	second, err := EnsureHeaders(ctx, g)
	if err != nil {
		t.Fatalf("second EnsureHeaders: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("position maps differ in size: %d vs %d", len(first), len(second))
	}
	for name, col := range first {
		if second[name] != col {
			t.Fatalf("header %s moved from %d to %d", name, col, second[name])
		}
	}
	count, err := g.RowCount(ctx)
	if err != nil {
		t.Fatalf("RowCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the header row, got %d rows", count)
	}
}

func TestHeaderPositions_IgnoresUnrecognized(t *testing.T) {
	ctx := context.Background()
	g := &MemoryGrid{}
	if _, err := g.AppendRow(ctx, map[int]string{0: "mystery", 1: HeaderIdentity, 2: HeaderStatus}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	pos, err := HeaderPositions(ctx, g)
	if err != nil {
		t.Fatalf("HeaderPositions: %v", err)
	}
	if _, ok := pos["mystery"]; ok {
		t.Fatal("unrecognized header leaked into positions")
	}
	if pos[HeaderIdentity] != 1 || pos[HeaderStatus] != 2 {
		t.Fatalf("unexpected positions %v", pos)
	}
}

func TestFindRowByIdentity(t *testing.T) {
	ctx := context.Background()
	g := &MemoryGrid{}
	if _, err := g.AppendRow(ctx, map[int]string{0: HeaderIdentity}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	for _, id := range []string{"a@x.com", "b@x.com", "a@x.com"} {
		if _, err := g.AppendRow(ctx, map[int]string{0: id}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	row, found, err := FindRowByIdentity(ctx, g, 0, "b@x.com")
	if err != nil || !found || row != 2 {
		t.Fatalf("expected row 2, got row=%d found=%v err=%v", row, found, err)
	}
	// First exact match wins.
	row, found, err = FindRowByIdentity(ctx, g, 0, "a@x.com")
	if err != nil || !found || row != 1 {
		t.Fatalf("expected first match row 1, got row=%d found=%v err=%v", row, found, err)
	}
	_, found, err = FindRowByIdentity(ctx, g, 0, "missing@x.com")
	if err != nil || found {
		t.Fatalf("expected not found, got found=%v err=%v", found, err)
	}
}

func TestWriteRow_IgnoresUnknownFields(t *testing.T) {
	ctx := context.Background()
	g := &MemoryGrid{}
	pos, err := EnsureHeaders(ctx, g)
	if err != nil {
		t.Fatalf("EnsureHeaders: %v", err)
	}
	row, err := g.AppendRow(ctx, nil)
	if err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	fields := map[string]string{
		HeaderRemarks:  "hello",
		"not_a_header": "must not be written",
	}
	if err := WriteRow(ctx, g, pos, fields, row); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	cells, err := g.ReadRow(ctx, row)
	if err != nil {
		t.Fatalf("ReadRow: %v", err)
	}
	if cells[pos[HeaderRemarks]] != "hello" {
		t.Fatalf("recognized field not written: %v", cells)
	}
	for _, v := range cells {
		if v == "must not be written" {
			t.Fatal("unrecognized field was written to the grid")
		}
	}
}
