package linkage_test

import (
	"testing"
	"time"

	"github.com/rentmate/linkage-engine/linkage"
)

// =============================================================================
// RENT RESOLUTION
// =============================================================================

func TestBaseRentAt_StepsAndOptions(t *testing.T) {
	// GIVEN: Base 5000, step to 5500 from 2025-01, option window at 6000
	//        covering 2026-01..2026-06
	s := linkage.RentSchedule{
		BaseRent: dec("5000"),
		Steps: []linkage.RentStep{
			{Effective: linkage.NewMonth(2025, time.January), Amount: dec("5500")},
		},
		Options: []linkage.OptionPeriod{
			{Start: linkage.NewMonth(2026, time.January), End: linkage.NewMonth(2026, time.June), Rent: dec("6000")},
		},
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cases := []struct {
		month linkage.Month
		want  string
	}{
		{linkage.NewMonth(2024, time.June), "5000"},   // before any step
		{linkage.NewMonth(2025, time.January), "5500"}, // step effective month
		{linkage.NewMonth(2025, time.December), "5500"},
		{linkage.NewMonth(2026, time.March), "6000"}, // inside option window
		{linkage.NewMonth(2026, time.July), "5500"},  // window closed, step resumes
	}
	for _, tc := range cases {
		if got := s.BaseRentAt(tc.month); !got.Equal(dec(tc.want)) {
			t.Errorf("BaseRentAt(%v) = %s, want %s", tc.month, got, tc.want)
		}
	}
}

func TestRentSchedule_ValidateRejectsBadAmounts(t *testing.T) {
	s := linkage.RentSchedule{BaseRent: dec("0")}
	if err := s.Validate(); !linkage.IsClientError(err) {
		t.Errorf("zero base rent: expected client error, got %v", err)
	}

	s = linkage.RentSchedule{
		BaseRent: dec("5000"),
		Options: []linkage.OptionPeriod{
			{Start: linkage.NewMonth(2025, time.June), End: linkage.NewMonth(2025, time.January), Rent: dec("6000")},
		},
	}
	if err := s.Validate(); !linkage.IsClientError(err) {
		t.Errorf("inverted option window: expected client error, got %v", err)
	}
}

// =============================================================================
// PAYMENT GENERATION
// =============================================================================

func TestGeneratePayments_MonthlyWithDayClamping(t *testing.T) {
	// GIVEN: Payment day 31, term covering February
	// WHEN: Generating the schedule
	// THEN: February's payment lands on its last day, others on the 31st

	s := linkage.RentSchedule{BaseRent: dec("5000")}
	payments, err := linkage.GeneratePayments(s,
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		linkage.PayMonthly, 31)
	if err != nil {
		t.Fatalf("GeneratePayments: %v", err)
	}
	if len(payments) != 3 {
		t.Fatalf("got %d payments, want 3", len(payments))
	}
	if d := payments[0].DueDate.Day(); d != 31 {
		t.Errorf("January due day = %d, want 31", d)
	}
	if d := payments[1].DueDate.Day(); d != 28 {
		t.Errorf("February due day = %d, want 28", d)
	}
	if d := payments[2].DueDate.Day(); d != 31 {
		t.Errorf("March due day = %d, want 31", d)
	}
}

func TestGeneratePayments_QuarterlyCadence(t *testing.T) {
	s := linkage.RentSchedule{BaseRent: dec("15000")}
	payments, err := linkage.GeneratePayments(s,
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		linkage.PayQuarterly, 1)
	if err != nil {
		t.Fatalf("GeneratePayments: %v", err)
	}
	if len(payments) != 4 {
		t.Fatalf("got %d payments, want 4", len(payments))
	}
	if m := payments[1].DueDate.Month(); m != time.April {
		t.Errorf("second payment in %v, want April", m)
	}
}

func TestGeneratePayments_AmountsFollowSteps(t *testing.T) {
	// The declared amount is the schedule rent of the payment's month.
	s := linkage.RentSchedule{
		BaseRent: dec("5000"),
		Steps: []linkage.RentStep{
			{Effective: linkage.NewMonth(2025, time.February), Amount: dec("5200")},
		},
	}
	payments, err := linkage.GeneratePayments(s,
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		linkage.PayMonthly, 1)
	if err != nil {
		t.Fatalf("GeneratePayments: %v", err)
	}
	if !payments[0].Amount.Equal(dec("5000")) || !payments[1].Amount.Equal(dec("5200")) {
		t.Errorf("amounts = %s, %s; want 5000, 5200", payments[0].Amount, payments[1].Amount)
	}
}

func TestGeneratePayments_CapsRunawayRanges(t *testing.T) {
	// A 50-year term does not expand past the schedule cap.
	s := linkage.RentSchedule{BaseRent: dec("5000")}
	payments, err := linkage.GeneratePayments(s,
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2075, time.January, 1, 0, 0, 0, 0, time.UTC),
		linkage.PayMonthly, 1)
	if err != nil {
		t.Fatalf("GeneratePayments: %v", err)
	}
	if len(payments) != 120 {
		t.Errorf("got %d payments, want cap of 120", len(payments))
	}
}

func TestGeneratePayments_RejectsInvertedTerm(t *testing.T) {
	s := linkage.RentSchedule{BaseRent: dec("5000")}
	_, err := linkage.GeneratePayments(s,
		time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		linkage.PayMonthly, 1)
	if !linkage.IsClientError(err) {
		t.Errorf("expected client error, got %v", err)
	}
}
