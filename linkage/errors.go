/*
errors.go - Centralized error types for the linkage engine

PURPOSE:
  All error kinds in one place so callers can branch on them. The engine
  never logs and never returns bare strings; every failure is a typed error
  the consuming UI can localize.

ERROR CATEGORIES:
  1. Input errors      - Malformed policies, ranges, values (fix your input)
  2. Index data errors - Missing or not-yet-published index points (we're
     missing data; ingestion or a manual override can resolve it)
  3. Snapshot errors   - Broken or deleted share links
  4. Store errors      - The backing store itself is unreachable; safe to
     retry the fetch without re-deriving anything

USAGE:
  Callers branch with errors.Is / errors.As:

    if linkage.IsPending(err) {
        // wait for publication and retry
    }
    var nf *linkage.IndexNotFoundError
    if errors.As(err, &nf) {
        prompt(nf.Type, nf.Month)
    }
*/
package linkage

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed policies, schedules, or
	// date ranges. Nothing is partially computed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexNotFound is returned when a requested period is absent from a
	// series (before the first point, or a gap). The engine never
	// extrapolates; the caller may supply a manual value instead.
	ErrIndexNotFound = errors.New("index value not found")

	// ErrIndexPending is returned when a period lies after the last
	// published point of a series. Distinct from not-found: the value will
	// exist once the statistics bureau publishes it, so waiting and
	// retrying is legitimate.
	ErrIndexPending = errors.New("index value not yet published")

	// ErrReconciliationFailed is returned when one or more reconciliation
	// rows could not resolve an index value. Partial results are never
	// returned as if complete.
	ErrReconciliationFailed = errors.New("reconciliation failed")

	// ErrSnapshotNotFound is returned when a share id does not exist or the
	// snapshot was deleted.
	ErrSnapshotNotFound = errors.New("calculation snapshot not found")

	// ErrSnapshotExists is returned on an attempt to overwrite a frozen
	// snapshot. Snapshots are immutable once created.
	ErrSnapshotExists = errors.New("calculation snapshot already exists")

	// ErrStoreUnavailable wraps backing-store failures (network, database)
	// so callers can retry the fetch rather than the whole computation.
	ErrStoreUnavailable = errors.New("index store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry context for the caller
// =============================================================================

// InvalidInputError names the specific field that failed validation.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// IndexNotFoundError identifies the exact series and period that is missing,
// so the caller can request ingestion or prompt for a manual override.
type IndexNotFoundError struct {
	Type  IndexType
	Month Month
}

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("no %s index value for %s", e.Type, e.Month)
}

func (e *IndexNotFoundError) Unwrap() error { return ErrIndexNotFound }

// IndexPendingError identifies a period that exists conceptually but has not
// been published yet.
type IndexPendingError struct {
	Type  IndexType
	Month Month
	// LastPublished is the most recent period that IS available, when known.
	LastPublished Month
}

func (e *IndexPendingError) Error() string {
	if e.LastPublished.IsZero() {
		return fmt.Sprintf("%s index for %s not yet published", e.Type, e.Month)
	}
	return fmt.Sprintf("%s index for %s not yet published (latest: %s)", e.Type, e.Month, e.LastPublished)
}

func (e *IndexPendingError) Unwrap() error { return ErrIndexPending }

// ReconciliationError reports which sub-periods failed index resolution.
// The whole run is failed; understating back-pay owed is a legal risk.
type ReconciliationError struct {
	FailedPeriods []Month
	// First underlying lookup failure, for errors.Is branching.
	Cause error
}

func (e *ReconciliationError) Error() string {
	periods := make([]string, len(e.FailedPeriods))
	for i, m := range e.FailedPeriods {
		periods[i] = m.String()
	}
	return fmt.Sprintf("reconciliation failed for periods [%s]: %v", strings.Join(periods, ", "), e.Cause)
}

func (e *ReconciliationError) Unwrap() error { return ErrReconciliationFailed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates missing index data or a
// missing snapshot.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIndexNotFound) || errors.Is(err, ErrSnapshotNotFound)
}

// IsPending reports whether the error indicates a not-yet-published period.
func IsPending(err error) bool {
	return errors.Is(err, ErrIndexPending)
}

// IsClientError reports whether the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRetryable reports whether the error might succeed on retry without
// changing inputs (store outages and pending publications).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrIndexPending)
}
