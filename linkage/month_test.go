package linkage_test

import (
	"testing"
	"time"

	"github.com/rentmate/linkage-engine/linkage"
)

func TestParseMonth_RoundTrip(t *testing.T) {
	m, err := linkage.ParseMonth("2024-07")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if m.Year != 2024 || m.Mon != time.July {
		t.Errorf("got %v, want 2024-07", m)
	}
	if s := m.String(); s != "2024-07" {
		t.Errorf("String() = %q, want 2024-07", s)
	}
}

func TestParseMonth_Invalid(t *testing.T) {
	for _, bad := range []string{"", "2024", "2024-13", "07-2024", "2024-07-01"} {
		if _, err := linkage.ParseMonth(bad); err == nil {
			t.Errorf("ParseMonth(%q): expected error", bad)
		} else if !linkage.IsClientError(err) {
			t.Errorf("ParseMonth(%q): expected client error, got %v", bad, err)
		}
	}
}

func TestMonth_AddCrossesYears(t *testing.T) {
	m := linkage.NewMonth(2024, time.November)

	if got := m.Add(3); got != linkage.NewMonth(2025, time.February) {
		t.Errorf("Add(3) = %v, want 2025-02", got)
	}
	if got := m.Add(-11); got != linkage.NewMonth(2023, time.December) {
		t.Errorf("Add(-11) = %v, want 2023-12", got)
	}
}

func TestMonthsBetween(t *testing.T) {
	a := linkage.NewMonth(2023, time.December)
	b := linkage.NewMonth(2025, time.December)

	if got := linkage.MonthsBetween(a, b); got != 24 {
		t.Errorf("MonthsBetween = %d, want 24", got)
	}
	if got := linkage.MonthsBetween(b, a); got != -24 {
		t.Errorf("reverse MonthsBetween = %d, want -24", got)
	}
}

func TestMonthRange_Inclusive(t *testing.T) {
	months := linkage.MonthRange(linkage.NewMonth(2024, time.November), linkage.NewMonth(2025, time.February))
	if len(months) != 4 {
		t.Fatalf("got %d months, want 4", len(months))
	}
	if months[0] != linkage.NewMonth(2024, time.November) || months[3] != linkage.NewMonth(2025, time.February) {
		t.Errorf("range bounds wrong: %v", months)
	}
}

func TestMonth_TextMarshalling(t *testing.T) {
	m := linkage.NewMonth(2024, time.March)
	b, err := m.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var back linkage.Month
	if err := back.UnmarshalText(b); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if !back.Equal(m) {
		t.Errorf("round trip: got %v, want %v", back, m)
	}
}
