/*
schedule.go - Rent schedules and expected-payment generation

PURPOSE:
  A lease's rent is rarely a single number. Contracts carry pre-negotiated
  flat escalations ("steps"), and option windows with their own rent. This
  file resolves "what is the UNLINKED base rent for month M", which the
  projection engine then multiplies by the linkage coefficient.

  It also expands a contract term into the declared payment schedule (due
  dates and base amounts), honoring payment frequency and a contractual
  day-of-month with short-month clamping (a paymentDay of 31 falls on
  Feb 28).
*/
package linkage

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RENT SCHEDULE - Base rent, steps, option periods
// =============================================================================

// RentStep is a pre-negotiated flat rent change, unrelated to linkage.
type RentStep struct {
	Effective Month
	Amount    decimal.Decimal
}

// OptionPeriod is a contractual extension window with its own rent, which
// overrides step-derived rent while the window is active.
type OptionPeriod struct {
	Start Month
	End   Month
	Rent  decimal.Decimal
}

// Contains reports whether m falls inside the option window.
func (o OptionPeriod) Contains(m Month) bool {
	return m.AfterOrEqual(o.Start) && m.BeforeOrEqual(o.End)
}

// RentSchedule is the declared rent of a lease before any linkage applies.
type RentSchedule struct {
	// BaseRent applies from the start of the lease until the first step.
	BaseRent decimal.Decimal

	// Currency is informational (ILS contracts dominate); linkage to USD or
	// EUR is a Policy concern, not a schedule concern.
	Currency string

	// Steps are flat changes, kept sorted by effective month.
	Steps []RentStep

	// Options override the step-derived rent during their windows.
	Options []OptionPeriod
}

// Validate rejects malformed schedules.
func (s RentSchedule) Validate() error {
	if !s.BaseRent.IsPositive() {
		return &InvalidInputError{Field: "baseRent", Reason: "base rent must be positive"}
	}
	for _, st := range s.Steps {
		if !st.Amount.IsPositive() {
			return &InvalidInputError{Field: "steps", Reason: "step amount for " + st.Effective.String() + " must be positive"}
		}
		if st.Effective.IsZero() {
			return &InvalidInputError{Field: "steps", Reason: "step needs an effective month"}
		}
	}
	for _, o := range s.Options {
		if o.End.Before(o.Start) {
			return &InvalidInputError{Field: "options", Reason: "option period ends before it starts"}
		}
		if !o.Rent.IsPositive() {
			return &InvalidInputError{Field: "options", Reason: "option rent must be positive"}
		}
	}
	return nil
}

// BaseRentAt resolves the effective unlinked rent for a month: the latest
// step at or before m, overridden by an option window containing m.
func (s RentSchedule) BaseRentAt(m Month) decimal.Decimal {
	for _, o := range s.Options {
		if o.Contains(m) {
			return o.Rent
		}
	}
	rent := s.BaseRent
	best := Month{}
	for _, st := range s.Steps {
		if st.Effective.BeforeOrEqual(m) && (best.IsZero() || st.Effective.After(best)) {
			rent = st.Amount
			best = st.Effective
		}
	}
	return rent
}

// SortSteps orders steps by effective month, in place.
func (s *RentSchedule) SortSteps() {
	sort.Slice(s.Steps, func(i, j int) bool {
		return s.Steps[i].Effective.Before(s.Steps[j].Effective)
	})
}

// =============================================================================
// PAYMENT SCHEDULE GENERATION - Declared due dates for a contract term
// =============================================================================

// PaymentFrequency is how often rent is actually paid. Independent of
// UpdateFrequency, which is how often the linkage recalculates.
type PaymentFrequency string

const (
	PayMonthly   PaymentFrequency = "monthly"
	PayQuarterly PaymentFrequency = "quarterly"
	PayAnnually  PaymentFrequency = "annually"
)

func (f PaymentFrequency) months() int {
	switch f {
	case PayQuarterly:
		return 3
	case PayAnnually:
		return 12
	default:
		return 1
	}
}

// DuePayment is one declared payment of the schedule: the unlinked amount
// due on a date. Linkage adjustments are projected on top at payment time.
type DuePayment struct {
	DueDate time.Time
	Amount  decimal.Decimal
}

// maxScheduledPayments bounds schedule expansion (10 years of monthly rent)
// so degenerate date ranges cannot loop forever.
const maxScheduledPayments = 120

// GeneratePayments expands a contract term into its declared payments.
// PaymentDay clamps to the last day of short months; zero means the 1st.
// The amount of each payment is the schedule's base rent for its month.
func GeneratePayments(s RentSchedule, start, end time.Time, freq PaymentFrequency, paymentDay int) ([]DuePayment, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, &InvalidInputError{Field: "end", Reason: "contract end precedes start"}
	}
	if paymentDay < 0 || paymentDay > 31 {
		return nil, &InvalidInputError{Field: "paymentDay", Reason: "must be within 1-31"}
	}
	if paymentDay == 0 {
		paymentDay = 1
	}

	var payments []DuePayment
	step := freq.months()
	current := MonthOf(start)
	last := MonthOf(end)

	for m := current; m.BeforeOrEqual(last) && len(payments) < maxScheduledPayments; m = m.Add(step) {
		day := paymentDay
		if lastDay := daysInMonth(m); day > lastDay {
			day = lastDay
		}
		payments = append(payments, DuePayment{
			DueDate: time.Date(m.Year, m.Mon, day, 0, 0, 0, 0, time.UTC),
			Amount:  s.BaseRentAt(m),
		})
	}
	return payments, nil
}

func daysInMonth(m Month) int {
	return m.Add(1).Time().AddDate(0, 0, -1).Day()
}
