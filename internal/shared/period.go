package shared

import (
	"fmt"
	"time"
)

// Period identifies one monthly ledger instance.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses the yyyy-mm wire format. The pattern is strict:
// four digit year, dash, zero-padded month.
func ParsePeriod(s string) (Period, error) {
	if len(s) != 7 || s[4] != '-' {
		return Period{}, fmt.Errorf("%w: period must match yyyy-mm, got %q", ErrValidation, s)
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: period must match yyyy-mm, got %q", ErrValidation, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// IsZero reports whether p is the zero period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// String renders the canonical yyyy-mm form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Segments returns the container path segments for the period,
// year first, month zero-padded.
func (p Period) Segments() []string {
	return []string{fmt.Sprintf("%04d", p.Year), fmt.Sprintf("%02d", int(p.Month))}
}
