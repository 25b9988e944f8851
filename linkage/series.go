/*
series.go - Index data access boundary

PURPOSE:
  Separates data access from computation. Index values are fetched (and
  cached) behind the Provider interface; every calculation in this package
  is a synchronous function over values the provider already holds. This is
  the seam that keeps the engine callable from any concurrency model.

PUBLICATION LAG:
  CPI-family values for month M are published during month M+1, so the
  "latest published" value as of month M is the value FOR month M-1.
  Currency rates carry no lag. LatestPublished encodes this so callers
  never have to reason about lag themselves.

IMPLEMENTATIONS:
  - linkage/store: in-memory provider for tests and dev mode
  - store/sqlite:  production provider backed by SQLite
*/
package linkage

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PROVIDER - Read-only access to published index series
// =============================================================================

// Provider supplies published index values. Implementations report missing
// data with IndexNotFoundError / IndexPendingError and wrap infrastructure
// failures in ErrStoreUnavailable; they never extrapolate.
type Provider interface {
	// Lookup returns the value published for exactly the given period.
	Lookup(ctx context.Context, t IndexType, m Month) (decimal.Decimal, error)

	// LatestPublished returns the most recent point whose value has been
	// published on or before asOf, accounting for publication lag.
	LatestPublished(ctx context.Context, t IndexType, asOf Month) (IndexPoint, error)

	// AvailableRange returns the first and last period the series holds.
	AvailableRange(ctx context.Context, t IndexType) (first, last Month, err error)

	// Granularity reports the cadence this provider serves points at, so
	// callers can align the series with monthly reconciliation rows.
	Granularity(t IndexType) Granularity
}

// BaseProvider optionally exposes CBS base-year transitions for chained
// calculations. Providers without base data simply don't implement it.
type BaseProvider interface {
	// Bases returns the base-year transitions for a series, ascending by
	// start period.
	Bases(ctx context.Context, t IndexType) ([]IndexBase, error)
}

// =============================================================================
// INDEX SERIES - Ordered immutable sequence of points
// =============================================================================

// Series is one maintained index series: strictly increasing periods, one
// point per month, all values positive. Build with NewSeries, which enforces
// the invariants; a Series is never mutated after construction.
type Series struct {
	typ    IndexType
	points []IndexPoint
}

// NewSeries validates and constructs a series. Points may arrive unordered;
// duplicate periods and non-positive values are rejected.
func NewSeries(t IndexType, points []IndexPoint) (*Series, error) {
	if !t.Valid() || !t.Linked() {
		return nil, &InvalidInputError{Field: "type", Reason: "series needs a linked index type"}
	}
	sorted := make([]IndexPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Month.Before(sorted[j].Month) })

	for i, p := range sorted {
		if !p.Value.IsPositive() {
			return nil, &InvalidInputError{Field: "value", Reason: "index value for " + p.Month.String() + " must be positive"}
		}
		if i > 0 && !sorted[i-1].Month.Before(p.Month) {
			return nil, &InvalidInputError{Field: "month", Reason: "duplicate period " + p.Month.String()}
		}
		sorted[i].Type = t
	}
	return &Series{typ: t, points: sorted}, nil
}

// Type returns the series' index type.
func (s *Series) Type() IndexType { return s.typ }

// Len returns the number of points.
func (s *Series) Len() int { return len(s.points) }

// Points returns a copy of the points, ascending by period.
func (s *Series) Points() []IndexPoint {
	out := make([]IndexPoint, len(s.points))
	copy(out, s.points)
	return out
}

// First and Last return the series bounds; both return false when empty.
func (s *Series) First() (IndexPoint, bool) {
	if len(s.points) == 0 {
		return IndexPoint{}, false
	}
	return s.points[0], true
}

func (s *Series) Last() (IndexPoint, bool) {
	if len(s.points) == 0 {
		return IndexPoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// Lookup returns the value for exactly m. A period beyond the last point is
// Pending (it will publish later); anything else missing is NotFound.
func (s *Series) Lookup(m Month) (decimal.Decimal, error) {
	i := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Month.AfterOrEqual(m)
	})
	if i < len(s.points) && s.points[i].Month.Equal(m) {
		return s.points[i].Value, nil
	}
	if last, ok := s.Last(); ok && m.After(last.Month) {
		return decimal.Decimal{}, &IndexPendingError{Type: s.typ, Month: m, LastPublished: last.Month}
	}
	return decimal.Decimal{}, &IndexNotFoundError{Type: s.typ, Month: m}
}

// LatestPublished returns the most recent point published on or before asOf.
// CPI-family series lag one month: the point for M publishes during M+1.
func (s *Series) LatestPublished(asOf Month) (IndexPoint, error) {
	cutoff := asOf
	if !s.typ.Currency() {
		cutoff = asOf.Add(-1)
	}
	// Latest point with Month <= cutoff.
	i := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Month.After(cutoff)
	})
	if i == 0 {
		return IndexPoint{}, &IndexNotFoundError{Type: s.typ, Month: cutoff}
	}
	return s.points[i-1], nil
}
