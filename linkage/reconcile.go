/*
reconcile.go - Multi-month payment reconciliation and back-pay

PURPOSE:
  Given a lease's schedule and linkage policy, a date range, and the
  payments that were actually made, compute month by month what SHOULD have
  been paid, what WAS paid, and the cumulative back-pay owed. This is the
  calculation tenants and landlords take to small-claims court, so the rules
  are strict:

  - The coefficient re-derives only on update-frequency boundaries; months
    in between keep the previous coefficient applied to their (possibly
    stepped) base rent.
  - A row whose index cannot be resolved fails the WHOLE run, naming every
    failing period. Silently understating back-pay is a legal risk.
  - Identical inputs always produce identical results, regardless of the
    order payments are supplied in. Rows come out ascending by period.

OVERPAYMENT POLICY:
  By default each month's shortfall floors at zero independently
  (total = Σ max(shouldPay - paid, 0)). Policy.AllowOverpaymentOffset
  switches to net accumulation, floored at zero only at the end.
*/
package linkage

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUT / OUTPUT TYPES
// =============================================================================

// ActualPayment is a real-world payment as entered or imported by the user.
// Payments are unordered; the engine matches them to periods by date.
type ActualPayment struct {
	Date      Month
	Amount    decimal.Decimal
	Reference string
}

// ReconcileInput is everything one reconciliation run needs.
type ReconcileInput struct {
	Schedule RentSchedule
	Policy   Policy

	// PeriodStart and PeriodEnd bound the run, inclusive.
	PeriodStart Month
	PeriodEnd   Month

	// Payments to match against the expected rows.
	Payments []ActualPayment
}

// ReconciliationRow is one month of the comparison.
type ReconciliationRow struct {
	Period    Month
	ShouldPay decimal.Decimal
	Paid      decimal.Decimal
	Diff      decimal.Decimal // ShouldPay - Paid; negative means overpaid

	// Transparency trail, mirroring Projection.
	Coefficient    decimal.Decimal
	IndexMonthUsed Month
	IndexValueUsed decimal.Decimal

	// Recalculated marks update-frequency boundaries where the coefficient
	// was re-derived (other rows reuse the previous one).
	Recalculated bool
}

// ReconciliationResult is the aggregate over the requested range.
// It is a pure derived value: recomputed on demand, never the source of
// truth. Persist a chosen run via the snapshot serializer instead.
type ReconciliationResult struct {
	Rows []ReconciliationRow

	TotalShouldPay              decimal.Decimal
	TotalPaid                   decimal.Decimal
	TotalBackPayOwed            decimal.Decimal
	MonthsCount                 int
	AverageUnderpaymentPerMonth decimal.Decimal
	// PercentageOwed = TotalBackPayOwed / TotalShouldPay * 100.
	PercentageOwed decimal.Decimal

	// UnmatchedPayments fall outside the requested range. They are reported
	// as a data-quality signal but excluded from every total.
	UnmatchedPayments []ActualPayment
}

// maxReconciliationMonths bounds a run; real leases are far shorter.
const maxReconciliationMonths = 1000

// =============================================================================
// RECONCILIATION
// =============================================================================

// Reconcile computes expected-vs-paid rows for every month in the range and
// the cumulative back-pay owed. Any row whose index lookup fails marks the
// whole run failed via ReconciliationError.
func (pr *Projector) Reconcile(ctx context.Context, in ReconcileInput) (*ReconciliationResult, error) {
	if err := in.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := in.Policy.Validate(); err != nil {
		return nil, err
	}
	if in.PeriodStart.IsZero() || in.PeriodEnd.IsZero() {
		return nil, &InvalidInputError{Field: "period", Reason: "period start and end required"}
	}
	if in.PeriodEnd.Before(in.PeriodStart) {
		return nil, &InvalidInputError{Field: "period", Reason: "period end precedes start"}
	}
	months := MonthRange(in.PeriodStart, in.PeriodEnd)
	if len(months) > maxReconciliationMonths {
		return nil, &InvalidInputError{Field: "period", Reason: "range exceeds 1000 months"}
	}

	paidByMonth, unmatched := matchPayments(in.Payments, in.PeriodStart, in.PeriodEnd)

	one := decimal.NewFromInt(1)
	freq := in.Policy.Frequency.Months()

	var (
		rows       = make([]ReconciliationRow, 0, len(months))
		failed     []Month
		firstCause error

		coef       = one
		indexMonth Month
		indexValue decimal.Decimal
	)

	for i, m := range months {
		recalc := in.Policy.Type.Linked() && i%freq == 0
		if recalc {
			proj, err := pr.ProjectRent(ctx, in.Schedule, in.Policy, m)
			if err != nil {
				if IsClientError(err) {
					return nil, err
				}
				failed = append(failed, m)
				if firstCause == nil {
					firstCause = err
				}
				// Keep scanning so the caller sees every failing period.
				continue
			}
			coef = proj.Coefficient.Value
			indexMonth = proj.IndexMonthUsed
			indexValue = proj.IndexValueUsed
		}

		shouldPay := in.Schedule.BaseRentAt(m).Mul(coef).Round(2)
		paid := paidByMonth[m]

		rows = append(rows, ReconciliationRow{
			Period:         m,
			ShouldPay:      shouldPay,
			Paid:           paid,
			Diff:           shouldPay.Sub(paid),
			Coefficient:    coef,
			IndexMonthUsed: indexMonth,
			IndexValueUsed: indexValue,
			Recalculated:   recalc,
		})
	}

	if len(failed) > 0 {
		return nil, &ReconciliationError{FailedPeriods: failed, Cause: firstCause}
	}

	return summarize(rows, unmatched, in.Policy.AllowOverpaymentOffset), nil
}

// matchPayments assigns payments to months by date containment. Multiple
// payments in one month sum. Out-of-range payments are returned separately,
// in a deterministic order.
func matchPayments(payments []ActualPayment, start, end Month) (map[Month]decimal.Decimal, []ActualPayment) {
	byMonth := make(map[Month]decimal.Decimal, len(payments))
	var unmatched []ActualPayment
	for _, p := range payments {
		if p.Date.AfterOrEqual(start) && p.Date.BeforeOrEqual(end) {
			byMonth[p.Date] = byMonth[p.Date].Add(p.Amount)
			continue
		}
		unmatched = append(unmatched, p)
	}
	sort.Slice(unmatched, func(i, j int) bool {
		a, b := unmatched[i], unmatched[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Reference != b.Reference {
			return a.Reference < b.Reference
		}
		return a.Amount.LessThan(b.Amount)
	})
	return byMonth, unmatched
}

func summarize(rows []ReconciliationRow, unmatched []ActualPayment, allowOffset bool) *ReconciliationResult {
	var totalShould, totalPaid, owed decimal.Decimal
	for _, r := range rows {
		totalShould = totalShould.Add(r.ShouldPay)
		totalPaid = totalPaid.Add(r.Paid)
		if allowOffset {
			owed = owed.Add(r.Diff)
		} else if r.Diff.IsPositive() {
			owed = owed.Add(r.Diff)
		}
	}
	if allowOffset && owed.IsNegative() {
		owed = decimal.Decimal{}
	}

	res := &ReconciliationResult{
		Rows:              rows,
		TotalShouldPay:    totalShould,
		TotalPaid:         totalPaid,
		TotalBackPayOwed:  owed,
		MonthsCount:       len(rows),
		UnmatchedPayments: unmatched,
	}
	if len(rows) > 0 {
		res.AverageUnderpaymentPerMonth = owed.Div(decimal.NewFromInt(int64(len(rows)))).Round(2)
	}
	if totalShould.IsPositive() {
		res.PercentageOwed = owed.Div(totalShould).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return res
}
