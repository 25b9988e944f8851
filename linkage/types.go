/*
Package linkage implements the CPI/currency rent-linkage calculation and
payment-reconciliation engine.

PURPOSE:
  Israeli rental contracts routinely tie rent to the movement of a published
  index (consumer prices, housing services, construction inputs) or a
  currency rate. This package encodes those rules: deriving the linkage
  coefficient between a base period and a target period, projecting the rent
  due on a given date, and reconciling historical payments against what the
  contract actually required.

KEY CONCEPTS IN THIS FILE (types.go):
  - IndexType:       Which published series a clause is linked to
  - Policy:          How a lease clause derives adjustments (partial linkage,
                     ceiling, floor, timing convention, update frequency)
  - TimingMode:      "known" vs "in respect of" index selection
  - UpdateFrequency: How often the coefficient is re-derived

DESIGN PRINCIPLES:
  1. Purity: every calculation is a synchronous function over already-fetched
     data. Index fetching and snapshot persistence live behind interfaces.
  2. Precision: shopspring/decimal for all money and index arithmetic.
  3. Determinism: identical inputs always produce identical results. Shared
     calculations must be reproducible by a third party.
  4. No fabrication: a missing or unpublished index value is a typed error,
     never an estimate.

SEE ALSO:
  - coefficient.go: the coefficient formula and clamping policy
  - projection.go:  rent-at-date projection
  - reconcile.go:   multi-month back-pay reconciliation
  - snapshot.go:    frozen shareable calculations
*/
package linkage

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// INDEX TYPES
// =============================================================================

// IndexType identifies the published series a lease clause is linked to.
type IndexType string

const (
	// IndexNone marks a clause with no linkage at all. The coefficient is
	// always exactly 1 and index data is never consulted.
	IndexNone IndexType = "none"

	IndexCPI          IndexType = "cpi"          // consumer price index
	IndexHousing      IndexType = "housing"      // housing services price index
	IndexConstruction IndexType = "construction" // construction inputs index
	IndexUSD          IndexType = "usd"          // USD/ILS representative rate
	IndexEUR          IndexType = "eur"          // EUR/ILS representative rate
)

// Linked reports whether the type consults index data at all.
func (t IndexType) Linked() bool { return t != IndexNone && t != "" }

// Currency reports whether the series is a currency rate rather than a
// statistics-bureau index. Currency rates are observed daily and have no
// publication lag; CPI-family values for month M appear during month M+1.
func (t IndexType) Currency() bool { return t == IndexUSD || t == IndexEUR }

// Valid reports whether the type is one of the supported series.
func (t IndexType) Valid() bool {
	switch t {
	case IndexNone, IndexCPI, IndexHousing, IndexConstruction, IndexUSD, IndexEUR:
		return true
	}
	return false
}

// Granularity describes the period cadence a provider serves its points at.
type Granularity int

const (
	GranularityMonthly Granularity = iota // one point per month (all bundled stores)
	GranularityDaily                      // one point per observation day
)

// =============================================================================
// TIMING MODE - Which publication applies to a payment period
// =============================================================================

// TimingMode selects which index publication governs a payment period.
// Israeli contracts use both conventions and they produce different numbers,
// so a linked policy must state its mode explicitly - there is no default.
type TimingMode string

const (
	// TimingKnown uses the most recently published value at payment time
	// (מדד ידוע). Because of publication lag this is effectively the value
	// for the month before the payment month.
	TimingKnown TimingMode = "known"

	// TimingInRespectOf uses the value published for the payment's own
	// calendar month (מדד בגין), which only becomes known later. Always
	// resolvable for past reconciliation; a live projection may be Pending.
	TimingInRespectOf TimingMode = "inRespectOf"
)

func (m TimingMode) Valid() bool {
	return m == TimingKnown || m == TimingInRespectOf
}

// =============================================================================
// UPDATE FREQUENCY - How often the coefficient is re-derived
// =============================================================================

// UpdateFrequency controls how often the linkage is recalculated, independent
// of how often rent is paid. Between updates the last derived coefficient
// keeps applying.
type UpdateFrequency string

const (
	UpdateMonthly    UpdateFrequency = "monthly"
	UpdateQuarterly  UpdateFrequency = "quarterly"
	UpdateSemiAnnual UpdateFrequency = "semiAnnual"
	UpdateAnnual     UpdateFrequency = "annual"
)

// Months returns the update interval in months. An empty frequency counts
// as monthly.
func (f UpdateFrequency) Months() int {
	switch f {
	case UpdateQuarterly:
		return 3
	case UpdateSemiAnnual:
		return 6
	case UpdateAnnual:
		return 12
	default:
		return 1
	}
}

func (f UpdateFrequency) Valid() bool {
	switch f {
	case "", UpdateMonthly, UpdateQuarterly, UpdateSemiAnnual, UpdateAnnual:
		return true
	}
	return false
}

// =============================================================================
// POLICY - How a lease clause derives amount adjustments
// =============================================================================

// Policy describes the linkage clause of a single lease. It is captured when
// the contract is drafted and handed to the engine as-is; the engine never
// mutates it.
type Policy struct {
	// Type selects the series. IndexNone short-circuits everything else.
	Type IndexType

	// BaseMonth is the period whose index value anchors the linkage,
	// typically the signing month.
	BaseMonth Month

	// BaseValue, when set, overrides the fetched value for BaseMonth.
	// Contracts often quote the captured figure verbatim, and it wins over
	// whatever the series says today.
	BaseValue *decimal.Decimal

	// PartialLinkagePercent scales the index movement (0-100). Nil means
	// full linkage (100).
	PartialLinkagePercent *decimal.Decimal

	// CeilingPercent caps the total increase, as a percentage over base.
	// Nil means no ceiling.
	CeilingPercent *decimal.Decimal

	// CeilingIsAnnual prorates CeilingPercent by the years elapsed between
	// base and target; a 5%-per-year ceiling allows 10% after two years.
	CeilingIsAnnual bool

	// FloorIsBase prevents rent from dropping below the base amount when
	// the index falls.
	FloorIsBase bool

	// Timing is required whenever Type is linked.
	Timing TimingMode

	// Frequency gates how often reconciliation re-derives the coefficient.
	Frequency UpdateFrequency

	// AllowOverpaymentOffset lets a month's overpayment offset later
	// shortfalls in the cumulative back-pay total. The default (false)
	// floors each month's shortfall at zero independently - the
	// conservative reading for a legal reconciliation statement.
	AllowOverpaymentOffset bool
}

// Validate rejects malformed policies before any computation happens.
func (p Policy) Validate() error {
	if !p.Type.Valid() {
		return &InvalidInputError{Field: "type", Reason: "unknown index type " + string(p.Type)}
	}
	if !p.Type.Linked() {
		return nil
	}
	if !p.Timing.Valid() {
		return &InvalidInputError{Field: "timing", Reason: "linked policy must state known or inRespectOf"}
	}
	if p.BaseMonth.IsZero() && p.BaseValue == nil {
		return &InvalidInputError{Field: "baseMonth", Reason: "linked policy needs a base month or a manual base value"}
	}
	if p.BaseValue != nil && !p.BaseValue.IsPositive() {
		return &InvalidInputError{Field: "baseValue", Reason: "base index value must be positive"}
	}
	if p.PartialLinkagePercent != nil {
		pl := *p.PartialLinkagePercent
		if pl.IsNegative() || pl.GreaterThan(decimal.NewFromInt(100)) {
			return &InvalidInputError{Field: "partialLinkagePercent", Reason: "must be within 0-100"}
		}
	}
	if p.CeilingPercent != nil && p.CeilingPercent.IsNegative() {
		return &InvalidInputError{Field: "ceilingPercent", Reason: "must not be negative"}
	}
	// An annual ceiling prorates by months elapsed since BaseMonth; without
	// one the elapsed span is unbounded and the cap would never bind.
	if p.CeilingPercent != nil && p.CeilingIsAnnual && p.BaseMonth.IsZero() {
		return &InvalidInputError{Field: "ceilingIsAnnual", Reason: "annual ceiling needs a base month to prorate from"}
	}
	if !p.Frequency.Valid() {
		return &InvalidInputError{Field: "frequency", Reason: "unknown update frequency " + string(p.Frequency)}
	}
	return nil
}

// partialFraction returns the partial-linkage multiplier as a fraction
// (1 for full linkage, 0.5 for 50%).
func (p Policy) partialFraction() decimal.Decimal {
	if p.PartialLinkagePercent == nil {
		return decimal.NewFromInt(1)
	}
	return p.PartialLinkagePercent.Div(decimal.NewFromInt(100))
}

// =============================================================================
// INDEX POINTS
// =============================================================================

// IndexPoint is one published value of a series.
type IndexPoint struct {
	Type  IndexType
	Month Month
	Value decimal.Decimal
}
