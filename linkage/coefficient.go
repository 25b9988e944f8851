/*
coefficient.go - The linkage coefficient formula

PURPOSE:
  Computes the ratio applied to a base rent for a given movement of the
  linked index, with the contractual constraints layered on top in a fixed
  order. This is the arithmetic heart of the engine; everything else
  (projection, reconciliation) composes it.

POLICY APPLICATION ORDER:
  1. Not linked            -> coefficient is exactly 1, nothing else matters
  2. Raw ratio             -> 1 + (target/base - 1) * partial
  3. Floor                 -> clamp up to 1 when FloorIsBase and ratio < 1
  4. Ceiling               -> clamp down to 1 + ceiling/100 (optionally
                              prorated by years elapsed for annual ceilings)

  The order matters: a floor never pushes the ratio ABOVE a ceiling because
  the ceiling is applied last, and a ceiling of 0 pins the rent at base.

  Pure function. No index lookups happen here - callers resolve base and
  target values first (see projection.go).
*/
package linkage

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// COEFFICIENT - Ratio plus the transparency trail
// =============================================================================

// Coefficient is the multiplier applied to the base rent, together with the
// intermediate values the UI renders as the "formula" explanation.
type Coefficient struct {
	// Value is the final multiplier after floor and ceiling.
	Value decimal.Decimal

	// Raw is the unclamped multiplier from the index movement alone.
	Raw decimal.Decimal

	// FlooredAtBase is true when a negative movement was clamped to 1.
	FlooredAtBase bool

	// CeilingApplied is true when the ceiling clamp took effect;
	// CeilingUsed holds the effective ceiling percent (after proration).
	CeilingApplied bool
	CeilingUsed    decimal.Decimal
}

// ChangePercent returns the applied movement as a percentage over base.
func (c Coefficient) ChangePercent() decimal.Decimal {
	return c.Value.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
}

// CoefficientInput carries the already-resolved index values.
type CoefficientInput struct {
	Policy Policy

	// BaseValue and TargetValue are the resolved index values. TargetValue
	// must already include any chaining factor (see ChainFactor).
	BaseValue   decimal.Decimal
	TargetValue decimal.Decimal

	// BaseMonth and TargetMonth bound the elapsed time for annual-ceiling
	// proration. Only consulted when Policy.CeilingIsAnnual is set.
	BaseMonth   Month
	TargetMonth Month
}

// ComputeCoefficient derives the linkage coefficient for one resolved pair
// of index values.
func ComputeCoefficient(in CoefficientInput) (Coefficient, error) {
	one := decimal.NewFromInt(1)

	if !in.Policy.Type.Linked() {
		return Coefficient{Value: one, Raw: one}, nil
	}
	if err := in.Policy.Validate(); err != nil {
		return Coefficient{}, err
	}
	if !in.BaseValue.IsPositive() {
		return Coefficient{}, &InvalidInputError{Field: "baseValue", Reason: "base index value must be positive"}
	}
	if !in.TargetValue.IsPositive() {
		return Coefficient{}, &InvalidInputError{Field: "targetValue", Reason: "target index value must be positive"}
	}

	// Raw movement scaled by partial linkage.
	movement := in.TargetValue.Div(in.BaseValue).Sub(one)
	raw := one.Add(movement.Mul(in.Policy.partialFraction()))

	c := Coefficient{Value: raw, Raw: raw}

	// Floor: rent never drops below base.
	if in.Policy.FloorIsBase && c.Value.LessThan(one) {
		c.Value = one
		c.FlooredAtBase = true
	}

	// Ceiling: cap the total increase.
	if in.Policy.CeilingPercent != nil {
		ceiling := *in.Policy.CeilingPercent
		if in.Policy.CeilingIsAnnual {
			ceiling = prorateAnnualCeiling(ceiling, in.BaseMonth, in.TargetMonth)
		}
		maxValue := one.Add(ceiling.Div(decimal.NewFromInt(100)))
		if c.Value.GreaterThan(maxValue) {
			c.Value = maxValue
			c.CeilingApplied = true
		}
		c.CeilingUsed = ceiling
	}

	return c, nil
}

// prorateAnnualCeiling scales a per-year ceiling by the whole months elapsed
// between base and target. A zero or negative span allows nothing beyond
// base. Validate guarantees callers a non-zero base month.
func prorateAnnualCeiling(annual decimal.Decimal, base, target Month) decimal.Decimal {
	months := MonthsBetween(base, target)
	if months < 0 {
		months = 0
	}
	return annual.Mul(decimal.NewFromInt(int64(months))).Div(decimal.NewFromInt(12))
}
