package linkage

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CHAINING - CBS base-year transitions (מקדם מקשר)
// =============================================================================

// IndexBase records a base-year transition of a statistics-bureau series.
// When the bureau rebases an index (sets a new period to 100), values quoted
// on different bases are not directly comparable; crossing into a new base
// multiplies by its chain factor.
type IndexBase struct {
	Type IndexType

	// Start is the first period published on this base.
	Start Month

	// ChainFactor converts a value on this base back to the previous one.
	ChainFactor decimal.Decimal

	// Description, e.g. "basis 2024 = 100".
	Description string
}

// ChainFactor returns the combined factor to apply to a target-period value
// so it is comparable with a base-period value. Every base transition that
// started after the base month and on or before the target month
// contributes its factor. With no transitions in between the factor is 1.
//
// Transitions with a non-positive factor are ignored rather than corrupting
// the ratio; base rows are reference data and may be incomplete.
func ChainFactor(bases []IndexBase, t IndexType, base, target Month) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	for _, b := range bases {
		if b.Type != t {
			continue
		}
		if b.Start.After(base) && b.Start.BeforeOrEqual(target) && b.ChainFactor.IsPositive() {
			factor = factor.Mul(b.ChainFactor)
		}
	}
	return factor
}
