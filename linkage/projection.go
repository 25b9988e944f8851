/*
projection.go - Rent due at a date

PURPOSE:
  Answers "what rent does the contract require for month M". Resolves the
  effective unlinked base rent (steps, option windows), resolves the base
  and target index values per the policy's timing mode, composes the
  coefficient, and returns every intermediate value so the UI can render the
  calculation as a formula rather than a bare number.

TIMING RESOLUTION:
  known       -> the latest value published by month M (lag-aware; for the
                 CPI family this is the value FOR M-1 at best)
  inRespectOf -> the value FOR month M itself. Projecting a month whose
                 value has not published yet yields IndexPending - the
                 engine never fabricates a number.

  Index lookups go through the Provider given at construction; the math
  itself is pure and synchronous.
*/
package linkage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROJECTOR - Composes schedule, policy, and index data
// =============================================================================

// Projector projects linkage-adjusted rent. Safe for concurrent use; it
// holds no mutable state beyond the provider it reads through.
type Projector struct {
	Provider Provider
}

// NewProjector creates a projector reading index data from p.
func NewProjector(p Provider) *Projector {
	return &Projector{Provider: p}
}

// Projection is the rent due for one month, with the trail of values used.
type Projection struct {
	// Month the projection is for.
	Month Month

	// Amount is the linkage-adjusted rent, rounded to two decimal places.
	Amount decimal.Decimal

	// BaseAmount is the unlinked schedule rent the coefficient applied to.
	BaseAmount decimal.Decimal

	// Coefficient used, including clamp flags.
	Coefficient Coefficient

	// BaseIndexValue / IndexValueUsed are the resolved index values;
	// IndexMonthUsed is the period the target value belongs to. All zero
	// for not-linked policies.
	BaseIndexValue decimal.Decimal
	IndexValueUsed decimal.Decimal
	IndexMonthUsed Month

	// ChainFactorUsed is the CBS base-transition factor folded into the
	// target value (1 when no rebase occurred in the span).
	ChainFactorUsed decimal.Decimal

	// Formula is a human-readable rendering of the calculation.
	Formula string
}

// ProjectRent computes the rent due for target under the given schedule and
// policy. Missing index data surfaces as IndexNotFoundError; an unpublished
// inRespectOf month surfaces as IndexPendingError.
func (pr *Projector) ProjectRent(ctx context.Context, s RentSchedule, p Policy, target Month) (*Projection, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if target.IsZero() {
		return nil, &InvalidInputError{Field: "target", Reason: "target month required"}
	}

	base := s.BaseRentAt(target)

	if !p.Type.Linked() {
		one := decimal.NewFromInt(1)
		return &Projection{
			Month:           target,
			Amount:          base.Round(2),
			BaseAmount:      base,
			Coefficient:     Coefficient{Value: one, Raw: one},
			ChainFactorUsed: one,
			Formula:         fmt.Sprintf("rent = %s (not linked)", base.Round(2)),
		}, nil
	}

	baseValue, err := pr.resolveBase(ctx, p)
	if err != nil {
		return nil, err
	}
	targetPoint, err := pr.resolveTarget(ctx, p, target)
	if err != nil {
		return nil, err
	}

	chain, err := pr.chainFactor(ctx, p, targetPoint.Month)
	if err != nil {
		return nil, err
	}
	chainedTarget := targetPoint.Value.Mul(chain)

	coef, err := ComputeCoefficient(CoefficientInput{
		Policy:      p,
		BaseValue:   baseValue,
		TargetValue: chainedTarget,
		BaseMonth:   p.BaseMonth,
		TargetMonth: targetPoint.Month,
	})
	if err != nil {
		return nil, err
	}

	amount := base.Mul(coef.Value).Round(2)
	proj := &Projection{
		Month:           target,
		Amount:          amount,
		BaseAmount:      base,
		Coefficient:     coef,
		BaseIndexValue:  baseValue,
		IndexValueUsed:  targetPoint.Value,
		IndexMonthUsed:  targetPoint.Month,
		ChainFactorUsed: chain,
	}
	proj.Formula = formatFormula(base, baseValue, chainedTarget, p, coef, amount)
	return proj, nil
}

// resolveBase returns the anchoring index value: the manual override when
// the contract quotes one, otherwise the published value for the base month.
func (pr *Projector) resolveBase(ctx context.Context, p Policy) (decimal.Decimal, error) {
	if p.BaseValue != nil {
		return *p.BaseValue, nil
	}
	return pr.Provider.Lookup(ctx, p.Type, p.BaseMonth)
}

// resolveTarget picks the target index point per the timing mode.
func (pr *Projector) resolveTarget(ctx context.Context, p Policy, target Month) (IndexPoint, error) {
	switch p.Timing {
	case TimingKnown:
		return pr.Provider.LatestPublished(ctx, p.Type, target)
	case TimingInRespectOf:
		v, err := pr.Provider.Lookup(ctx, p.Type, target)
		if err != nil {
			return IndexPoint{}, err
		}
		return IndexPoint{Type: p.Type, Month: target, Value: v}, nil
	default:
		return IndexPoint{}, &InvalidInputError{Field: "timing", Reason: "linked policy must state known or inRespectOf"}
	}
}

// chainFactor folds in CBS base-year transitions when the provider has them.
// Currency rates are never rebased.
func (pr *Projector) chainFactor(ctx context.Context, p Policy, target Month) (decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	if p.Type.Currency() || p.BaseMonth.IsZero() {
		return one, nil
	}
	bp, ok := pr.Provider.(BaseProvider)
	if !ok {
		return one, nil
	}
	bases, err := bp.Bases(ctx, p.Type)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ChainFactor(bases, p.Type, p.BaseMonth, target), nil
}

// formatFormula renders the calculation the way the shared-statement viewer
// displays it. Partial linkage switches to the percentage form because a
// plain ratio would not reproduce the number.
func formatFormula(base, baseValue, targetValue decimal.Decimal, p Policy, coef Coefficient, amount decimal.Decimal) string {
	full := p.PartialLinkagePercent == nil || p.PartialLinkagePercent.Equal(decimal.NewFromInt(100))
	if full && !coef.FlooredAtBase && !coef.CeilingApplied {
		return fmt.Sprintf("rent = ₪%s × (%s / %s) = ₪%s", base.Round(2), targetValue, baseValue, amount)
	}
	return fmt.Sprintf("rent = ₪%s × (1 + %s%%) = ₪%s", base.Round(2), coef.ChangePercent().Round(4), amount)
}
