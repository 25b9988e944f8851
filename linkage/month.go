package linkage

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - Calendar month, the resolution index series are published at
// =============================================================================

// Month identifies a calendar month. Index series for the CPI family are
// published once per month, so a Month is the natural key for lookups and
// reconciliation rows. The zero value is invalid; use NewMonth or ParseMonth.
type Month struct {
	Year int
	Mon  time.Month
}

func NewMonth(year int, mon time.Month) Month {
	return Month{Year: year, Mon: mon}.normalize()
}

// ParseMonth parses the wire format "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, &InvalidInputError{Field: "month", Reason: fmt.Sprintf("expected YYYY-MM, got %q", s)}
	}
	return Month{Year: t.Year(), Mon: t.Month()}, nil
}

// MonthOf returns the month a timestamp falls in.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

func (m Month) normalize() Month {
	t := time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Mon: t.Month()}
}

// Time returns the first day of the month in UTC.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Mon == 0 }

func (m Month) String() string { return m.Time().Format("2006-01") }

// Comparison
func (m Month) Before(other Month) bool { return m.ordinal() < other.ordinal() }
func (m Month) After(other Month) bool  { return m.ordinal() > other.ordinal() }
func (m Month) Equal(other Month) bool  { return m.ordinal() == other.ordinal() }
func (m Month) BeforeOrEqual(other Month) bool {
	return m.ordinal() <= other.ordinal()
}
func (m Month) AfterOrEqual(other Month) bool {
	return m.ordinal() >= other.ordinal()
}

func (m Month) ordinal() int { return m.Year*12 + int(m.Mon) - 1 }

// Arithmetic
func (m Month) Add(n int) Month {
	o := m.ordinal() + n
	return Month{Year: o / 12, Mon: time.Month(o%12 + 1)}
}

// MonthsBetween returns the number of whole months from a to b.
// Negative when b precedes a.
func MonthsBetween(a, b Month) int { return b.ordinal() - a.ordinal() }

// MonthRange returns every month from start to end inclusive, ascending.
// Returns nil if end precedes start.
func MonthRange(start, end Month) []Month {
	if end.Before(start) {
		return nil
	}
	months := make([]Month, 0, MonthsBetween(start, end)+1)
	for m := start; m.BeforeOrEqual(end); m = m.Add(1) {
		months = append(months, m)
	}
	return months
}

// MarshalText / UnmarshalText make Month usable directly in JSON payloads
// and as map keys in snapshot records.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
