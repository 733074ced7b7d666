package ledger

import (
	"context"
)

// Recognized header names. The ledger schema is name-addressed: callers
// never assume a fixed column number, and the recognized list is
// append-only so historical documents stay valid as the form grows.
const (
	HeaderIdentity            = "identity"
	HeaderDisplayName         = "display_name"
	HeaderSubmittedAt         = "submitted_at"
	HeaderStatus              = "status"
	HeaderWorkStart           = "work_start"
	HeaderWorkEnd             = "work_end"
	HeaderAttendanceFrequency = "attendance_frequency"
	HeaderCommuterPass        = "commuter_pass"
	HeaderCommuterRoute       = "commuter_route"
	HeaderCommuterFare        = "commuter_fare"
	HeaderTransportExpenses   = "transport_expenses"
	HeaderMiscExpenses        = "misc_expenses"
	HeaderRemarks             = "remarks"
	HeaderAttachments         = "attachments"
)

// Kind describes how a header's cell value is encoded.
type Kind int

const (
	KindText Kind = iota
	KindTimestamp
	KindClock
	KindEnum
	KindFlag
	KindNumber
	KindJSON
)

// Header is one recognized ledger column.
type Header struct {
	Name string
	Kind Kind
}

// Recognized is the ordered, append-only header registry. New form
// fields are added at the end only; existing entries never move.
var Recognized = []Header{
	{HeaderIdentity, KindText},
	{HeaderDisplayName, KindText},
	{HeaderSubmittedAt, KindTimestamp},
	{HeaderStatus, KindEnum},
	{HeaderWorkStart, KindClock},
	{HeaderWorkEnd, KindClock},
	{HeaderAttendanceFrequency, KindEnum},
	{HeaderCommuterPass, KindFlag},
	{HeaderCommuterRoute, KindText},
	{HeaderCommuterFare, KindNumber},
	{HeaderTransportExpenses, KindJSON},
	{HeaderMiscExpenses, KindJSON},
	{HeaderRemarks, KindText},
	{HeaderAttachments, KindJSON},
}

var recognizedSet = func() map[string]Kind {
	m := make(map[string]Kind, len(Recognized))
	for _, h := range Recognized {
		m[h.Name] = h.Kind
	}
	return m
}()

// IsRecognized reports whether name is a known ledger header.
func IsRecognized(name string) bool {
	_, ok := recognizedSet[name]
	return ok
}

// HeaderPositions reads the grid's header row and returns the column of
// every recognized header that is present. Unrecognized headers are
// ignored; a duplicate header keeps its first position.
func HeaderPositions(ctx context.Context, g Grid) (map[string]int, error) {
	count, err := g.RowCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return map[string]int{}, nil
	}
	headerRow, err := g.ReadRow(ctx, 0)
	if err != nil {
		return nil, err
	}
	pos := make(map[string]int, len(Recognized))
	for col, name := range headerRow {
		if !IsRecognized(name) {
			continue
		}
		if _, seen := pos[name]; seen {
			continue
		}
		pos[name] = col
	}
	return pos, nil
}

// EnsureHeaders makes every recognized header present. An empty grid
// gets the full registry as row 0; otherwise missing headers are
// appended at the next free column. Existing positions never change.
func EnsureHeaders(ctx context.Context, g Grid) (map[string]int, error) {
	count, err := g.RowCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		cells := make(map[int]string, len(Recognized))
		pos := make(map[string]int, len(Recognized))
		for col, h := range Recognized {
			cells[col] = h.Name
			pos[h.Name] = col
		}
		if _, err := g.AppendRow(ctx, cells); err != nil {
			return nil, err
		}
		return pos, nil
	}

	pos, err := HeaderPositions(ctx, g)
	if err != nil {
		return nil, err
	}
	headerRow, err := g.ReadRow(ctx, 0)
	if err != nil {
		return nil, err
	}
	next := len(headerRow)
	added := map[int]string{}
	for _, h := range Recognized {
		if _, present := pos[h.Name]; present {
			continue
		}
		added[next] = h.Name
		pos[h.Name] = next
		next++
	}
	if len(added) > 0 {
		if err := g.WriteCells(ctx, 0, added); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

// FindRowByIdentity scans the identity column for the first exact match.
// The header row is never a candidate.
func FindRowByIdentity(ctx context.Context, g Grid, identityCol int, identity string) (int, bool, error) {
	column, err := g.ReadColumn(ctx, identityCol)
	if err != nil {
		return 0, false, err
	}
	for row := 1; row < len(column); row++ {
		if column[row] == identity {
			return row, true, nil
		}
	}
	return 0, false, nil
}

// WriteRow writes the fields present in positions into the given row as
// one batch. Field keys absent from positions are silently ignored:
// the schema is the contract, not the payload.
func WriteRow(ctx context.Context, g Grid, positions map[string]int, fields map[string]string, row int) error {
	cells := rowCells(positions, fields)
	if len(cells) == 0 {
		return nil
	}
	return g.WriteCells(ctx, row, cells)
}

func rowCells(positions map[string]int, fields map[string]string) map[int]string {
	cells := make(map[int]string, len(fields))
	for name, value := range fields {
		col, ok := positions[name]
		if !ok {
			continue
		}
		cells[col] = value
	}
	return cells
}
