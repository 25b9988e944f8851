/*
snapshot.go - Frozen shareable calculations

PURPOSE:
  A user who runs a reconciliation can share it with the other side of the
  lease via an opaque link. What the link shows must never drift: if the
  calculation policy changes in a later release, previously shared
  statements stay exactly as they were frozen. So a snapshot stores the
  serialized INPUTS and RESULTS verbatim and the public viewer re-renders
  from the stored results without recomputing.

GUARANTEES:
  - Freeze assigns an opaque id and timestamp; the record never mutates.
  - Load is idempotent and side-effect free.
  - Stores reject overwrites (ErrSnapshotExists) and report missing ids
    as ErrSnapshotNotFound, distinct from any computation error.
*/
package linkage

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// =============================================================================
// SNAPSHOT - Immutable record of one calculation
// =============================================================================

// Snapshot freezes a calculation's inputs and results. Inputs and Results
// are stored as raw JSON so the record is self-contained: loading it needs
// no engine types from the version that produced it.
type Snapshot struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Kind      SnapshotKind    `json:"kind"`
	Inputs    json.RawMessage `json:"inputs"`
	Results   json.RawMessage `json:"results"`
}

// SnapshotKind distinguishes the two calculator modes so viewers know which
// layout to render.
type SnapshotKind string

const (
	SnapshotStandard       SnapshotKind = "standard"       // single projection
	SnapshotReconciliation SnapshotKind = "reconciliation" // multi-month run
)

// SnapshotStore persists snapshots. Save must refuse to overwrite an
// existing id; Get must return ErrSnapshotNotFound for unknown ids.
type SnapshotStore interface {
	Save(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, id string) (*Snapshot, error)
}

// =============================================================================
// FREEZER - Assigns identity and timestamps
// =============================================================================

// Freezer turns (inputs, results) pairs into stored snapshots.
type Freezer struct {
	Store SnapshotStore

	// Overridable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// NewFreezer creates a freezer with UUID ids and wall-clock timestamps.
func NewFreezer(store SnapshotStore) *Freezer {
	return &Freezer{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return uuid.NewString() },
	}
}

// Freeze serializes inputs and results, assigns an opaque id, and persists
// the snapshot. The returned snapshot is exactly what Load will return.
func (f *Freezer) Freeze(ctx context.Context, kind SnapshotKind, inputs, results any) (*Snapshot, error) {
	if kind != SnapshotStandard && kind != SnapshotReconciliation {
		return nil, &InvalidInputError{Field: "kind", Reason: "unknown snapshot kind " + string(kind)}
	}
	in, err := json.Marshal(inputs)
	if err != nil {
		return nil, &InvalidInputError{Field: "inputs", Reason: err.Error()}
	}
	out, err := json.Marshal(results)
	if err != nil {
		return nil, &InvalidInputError{Field: "results", Reason: err.Error()}
	}

	s := Snapshot{
		ID:        f.NewID(),
		CreatedAt: f.Now(),
		Kind:      kind,
		Inputs:    in,
		Results:   out,
	}
	if err := f.Store.Save(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load fetches a snapshot by its opaque id.
func (f *Freezer) Load(ctx context.Context, id string) (*Snapshot, error) {
	if id == "" {
		return nil, &InvalidInputError{Field: "id", Reason: "snapshot id required"}
	}
	return f.Store.Get(ctx, id)
}
