// Package store provides in-memory implementations of the engine's storage
// interfaces, used by tests and dev mode.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rentmate/linkage-engine/linkage"
)

// =============================================================================
// MEMORY PROVIDER - Index series held in maps
// =============================================================================

// Memory implements linkage.Provider, linkage.BaseProvider, and
// linkage.SnapshotStore. Safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	series    map[linkage.IndexType]map[linkage.Month]decimal.Decimal
	bases     map[linkage.IndexType][]linkage.IndexBase
	snapshots map[string]linkage.Snapshot
}

func NewMemory() *Memory {
	return &Memory{
		series:    make(map[linkage.IndexType]map[linkage.Month]decimal.Decimal),
		bases:     make(map[linkage.IndexType][]linkage.IndexBase),
		snapshots: make(map[string]linkage.Snapshot),
	}
}

// Put records one published value. Later Puts for the same period overwrite;
// ingestion treats the feed as authoritative.
func (m *Memory) Put(t linkage.IndexType, month linkage.Month, value decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.series[t] == nil {
		m.series[t] = make(map[linkage.Month]decimal.Decimal)
	}
	m.series[t][month] = value
}

// PutSeries loads a whole validated series at once.
func (m *Memory) PutSeries(s *linkage.Series) {
	for _, p := range s.Points() {
		m.Put(s.Type(), p.Month, p.Value)
	}
}

// UpsertIndexValue records one point, matching the durable store's write
// surface so ingestion and the admin API can run against memory.
func (m *Memory) UpsertIndexValue(_ context.Context, p linkage.IndexPoint, _ string) error {
	m.Put(p.Type, p.Month, p.Value)
	return nil
}

// UpsertBase records a base-year transition through the store write surface.
func (m *Memory) UpsertBase(_ context.Context, b linkage.IndexBase) error {
	m.PutBase(b)
	return nil
}

// ListIndexValues returns the points of one series within [from, to],
// ordered by period.
func (m *Memory) ListIndexValues(_ context.Context, t linkage.IndexType, from, to linkage.Month) ([]linkage.IndexPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var points []linkage.IndexPoint
	for month, v := range m.series[t] {
		if month.AfterOrEqual(from) && month.BeforeOrEqual(to) {
			points = append(points, linkage.IndexPoint{Type: t, Month: month, Value: v})
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month.Before(points[j].Month) })
	return points, nil
}

// PutBase records a base-year transition.
func (m *Memory) PutBase(b linkage.IndexBase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bases[b.Type] = append(m.bases[b.Type], b)
	sort.Slice(m.bases[b.Type], func(i, j int) bool {
		return m.bases[b.Type][i].Start.Before(m.bases[b.Type][j].Start)
	})
}

func (m *Memory) Lookup(_ context.Context, t linkage.IndexType, month linkage.Month) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	points := m.series[t]
	if v, ok := points[month]; ok {
		return v, nil
	}
	if last, ok := lastMonth(points); ok && month.After(last) {
		return decimal.Decimal{}, &linkage.IndexPendingError{Type: t, Month: month, LastPublished: last}
	}
	return decimal.Decimal{}, &linkage.IndexNotFoundError{Type: t, Month: month}
}

func (m *Memory) LatestPublished(_ context.Context, t linkage.IndexType, asOf linkage.Month) (linkage.IndexPoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := asOf
	if !t.Currency() {
		// CPI-family month M publishes during M+1.
		cutoff = asOf.Add(-1)
	}

	best := linkage.IndexPoint{}
	found := false
	for month, v := range m.series[t] {
		if month.After(cutoff) {
			continue
		}
		if !found || month.After(best.Month) {
			best = linkage.IndexPoint{Type: t, Month: month, Value: v}
			found = true
		}
	}
	if !found {
		return linkage.IndexPoint{}, &linkage.IndexNotFoundError{Type: t, Month: cutoff}
	}
	return best, nil
}

func (m *Memory) AvailableRange(_ context.Context, t linkage.IndexType) (linkage.Month, linkage.Month, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	points := m.series[t]
	if len(points) == 0 {
		return linkage.Month{}, linkage.Month{}, &linkage.IndexNotFoundError{Type: t}
	}
	var first, last linkage.Month
	set := false
	for month := range points {
		if !set {
			first, last, set = month, month, true
			continue
		}
		if month.Before(first) {
			first = month
		}
		if month.After(last) {
			last = month
		}
	}
	return first, last, nil
}

// Granularity is monthly for every series: currency rates are sampled down
// to one point per month at ingestion time (see ingest).
func (m *Memory) Granularity(linkage.IndexType) linkage.Granularity {
	return linkage.GranularityMonthly
}

func (m *Memory) Bases(_ context.Context, t linkage.IndexType) ([]linkage.IndexBase, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]linkage.IndexBase, len(m.bases[t]))
	copy(out, m.bases[t])
	return out, nil
}

func lastMonth(points map[linkage.Month]decimal.Decimal) (linkage.Month, bool) {
	var last linkage.Month
	found := false
	for month := range points {
		if !found || month.After(last) {
			last = month
			found = true
		}
	}
	return last, found
}

// =============================================================================
// SNAPSHOT STORE - Append-only map
// =============================================================================

func (m *Memory) Save(_ context.Context, s linkage.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.snapshots[s.ID]; exists {
		return linkage.ErrSnapshotExists
	}
	m.snapshots[s.ID] = s
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*linkage.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[id]
	if !ok {
		return nil, linkage.ErrSnapshotNotFound
	}
	// Copy so callers cannot mutate the stored record through the slices.
	out := s
	out.Inputs = append([]byte(nil), s.Inputs...)
	out.Results = append([]byte(nil), s.Results...)
	return &out, nil
}
