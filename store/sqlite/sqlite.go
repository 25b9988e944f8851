/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements linkage.Provider, linkage.BaseProvider, and
  linkage.SnapshotStore on SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  index_data:          Published index values, one row per (type, period)
  index_bases:         CBS base-year transitions and chaining factors
  saved_calculations:  Frozen shareable snapshots (append-only)
  contracts:           Drafted lease configs (JSON, as the wizard captures them)

IMMUTABILITY ENFORCEMENT:
  saved_calculations has no UPDATE or DELETE path in this package. A frozen
  snapshot must stay byte-stable forever - shared links are quoted in legal
  disputes. Index values DO upsert: the feed is authoritative and corrected
  publications replace earlier ones.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  a single writer at a time, better crash recovery.

SEE ALSO:
  - linkage/series.go: interface definitions and publication-lag contract
  - linkage/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rentmate/linkage-engine/linkage"
)

// Store implements the engine's storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a store at the given path. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Published index values. The feed is authoritative: re-published
	-- (corrected) values replace earlier rows for the same period.
	CREATE TABLE IF NOT EXISTS index_data (
		index_type TEXT NOT NULL,
		period     TEXT NOT NULL,            -- 'YYYY-MM'
		value      TEXT NOT NULL,            -- decimal as text, no float drift
		source     TEXT NOT NULL DEFAULT 'manual',
		created_at TEXT NOT NULL,
		PRIMARY KEY (index_type, period)
	);

	-- CBS base-year transitions (chaining factors).
	CREATE TABLE IF NOT EXISTS index_bases (
		index_type   TEXT NOT NULL,
		start_period TEXT NOT NULL,          -- first period on this base
		chain_factor TEXT NOT NULL,
		description  TEXT,
		PRIMARY KEY (index_type, start_period)
	);

	-- Frozen shareable calculations. APPEND-ONLY: no UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS saved_calculations (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		inputs_json  TEXT NOT NULL,
		results_json TEXT NOT NULL
	);

	-- Drafted lease configurations, stored as the wizard captured them.
	CREATE TABLE IF NOT EXISTS contracts (
		id          TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		archived    INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INDEX DATA - linkage.Provider
// =============================================================================

// UpsertIndexValue records one published value, replacing any earlier row
// for the same period.
func (s *Store) UpsertIndexValue(ctx context.Context, p linkage.IndexPoint, source string) error {
	if !p.Value.IsPositive() {
		return &linkage.InvalidInputError{Field: "value", Reason: "index value must be positive"}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_data (index_type, period, value, source, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(index_type, period) DO UPDATE SET
			value = excluded.value,
			source = excluded.source`,
		string(p.Type), p.Month.String(), p.Value.String(), source, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, t linkage.IndexType, m linkage.Month) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM index_data WHERE index_type = ? AND period = ?`,
		string(t), m.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		last, lastErr := s.lastPeriod(ctx, t)
		if lastErr == nil && m.After(last) {
			return decimal.Decimal{}, &linkage.IndexPendingError{Type: t, Month: m, LastPublished: last}
		}
		return decimal.Decimal{}, &linkage.IndexNotFoundError{Type: t, Month: m}
	}
	if err != nil {
		return decimal.Decimal{}, storeErr(err)
	}
	return parseDecimal(raw)
}

func (s *Store) LatestPublished(ctx context.Context, t linkage.IndexType, asOf linkage.Month) (linkage.IndexPoint, error) {
	cutoff := asOf
	if !t.Currency() {
		// CPI-family month M publishes during M+1.
		cutoff = asOf.Add(-1)
	}
	var period, raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT period, value FROM index_data
		WHERE index_type = ? AND period <= ?
		ORDER BY period DESC LIMIT 1`,
		string(t), cutoff.String()).Scan(&period, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return linkage.IndexPoint{}, &linkage.IndexNotFoundError{Type: t, Month: cutoff}
	}
	if err != nil {
		return linkage.IndexPoint{}, storeErr(err)
	}
	month, err := linkage.ParseMonth(period)
	if err != nil {
		return linkage.IndexPoint{}, err
	}
	value, err := parseDecimal(raw)
	if err != nil {
		return linkage.IndexPoint{}, err
	}
	return linkage.IndexPoint{Type: t, Month: month, Value: value}, nil
}

func (s *Store) AvailableRange(ctx context.Context, t linkage.IndexType) (linkage.Month, linkage.Month, error) {
	var minP, maxP sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MIN(period), MAX(period) FROM index_data WHERE index_type = ?`,
		string(t)).Scan(&minP, &maxP)
	if err != nil {
		return linkage.Month{}, linkage.Month{}, storeErr(err)
	}
	if !minP.Valid || !maxP.Valid {
		return linkage.Month{}, linkage.Month{}, &linkage.IndexNotFoundError{Type: t}
	}
	first, err := linkage.ParseMonth(minP.String)
	if err != nil {
		return linkage.Month{}, linkage.Month{}, err
	}
	last, err := linkage.ParseMonth(maxP.String)
	if err != nil {
		return linkage.Month{}, linkage.Month{}, err
	}
	return first, last, nil
}

// Granularity is monthly for every series: index_data keys rows by period,
// and currency rates arrive already sampled to one point per month.
func (s *Store) Granularity(linkage.IndexType) linkage.Granularity {
	return linkage.GranularityMonthly
}

// ListIndexValues returns the points of a series within [from, to],
// ascending. Zero months mean unbounded.
func (s *Store) ListIndexValues(ctx context.Context, t linkage.IndexType, from, to linkage.Month) ([]linkage.IndexPoint, error) {
	query := `SELECT period, value FROM index_data WHERE index_type = ?`
	args := []any{string(t)}
	if !from.IsZero() {
		query += ` AND period >= ?`
		args = append(args, from.String())
	}
	if !to.IsZero() {
		query += ` AND period <= ?`
		args = append(args, to.String())
	}
	query += ` ORDER BY period ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var points []linkage.IndexPoint
	for rows.Next() {
		var period, raw string
		if err := rows.Scan(&period, &raw); err != nil {
			return nil, storeErr(err)
		}
		month, err := linkage.ParseMonth(period)
		if err != nil {
			return nil, err
		}
		value, err := parseDecimal(raw)
		if err != nil {
			return nil, err
		}
		points = append(points, linkage.IndexPoint{Type: t, Month: month, Value: value})
	}
	return points, rows.Err()
}

func (s *Store) lastPeriod(ctx context.Context, t linkage.IndexType) (linkage.Month, error) {
	var period sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(period) FROM index_data WHERE index_type = ?`,
		string(t)).Scan(&period)
	if err != nil {
		return linkage.Month{}, storeErr(err)
	}
	if !period.Valid {
		return linkage.Month{}, &linkage.IndexNotFoundError{Type: t}
	}
	return linkage.ParseMonth(period.String)
}

// =============================================================================
// INDEX BASES - linkage.BaseProvider
// =============================================================================

// UpsertBase records a base-year transition.
func (s *Store) UpsertBase(ctx context.Context, b linkage.IndexBase) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_bases (index_type, start_period, chain_factor, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(index_type, start_period) DO UPDATE SET
			chain_factor = excluded.chain_factor,
			description = excluded.description`,
		string(b.Type), b.Start.String(), b.ChainFactor.String(), b.Description)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) Bases(ctx context.Context, t linkage.IndexType) ([]linkage.IndexBase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_period, chain_factor, COALESCE(description, '')
		FROM index_bases WHERE index_type = ?
		ORDER BY start_period ASC`, string(t))
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var bases []linkage.IndexBase
	for rows.Next() {
		var period, factor, desc string
		if err := rows.Scan(&period, &factor, &desc); err != nil {
			return nil, storeErr(err)
		}
		start, err := linkage.ParseMonth(period)
		if err != nil {
			return nil, err
		}
		f, err := parseDecimal(factor)
		if err != nil {
			return nil, err
		}
		bases = append(bases, linkage.IndexBase{Type: t, Start: start, ChainFactor: f, Description: desc})
	}
	return bases, rows.Err()
}

// =============================================================================
// SAVED CALCULATIONS - linkage.SnapshotStore (append-only)
// =============================================================================

func (s *Store) Save(ctx context.Context, snap linkage.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_calculations (id, kind, created_at, inputs_json, results_json)
		VALUES (?, ?, ?, ?, ?)`,
		snap.ID, string(snap.Kind), snap.CreatedAt.UTC().Format(time.RFC3339Nano),
		string(snap.Inputs), string(snap.Results))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return linkage.ErrSnapshotExists
		}
		return storeErr(err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*linkage.Snapshot, error) {
	var kind, createdAt, inputs, results string
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, created_at, inputs_json, results_json
		FROM saved_calculations WHERE id = ?`, id).
		Scan(&kind, &createdAt, &inputs, &results)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, linkage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("corrupt snapshot timestamp: %w", err)
	}
	return &linkage.Snapshot{
		ID:        id,
		Kind:      linkage.SnapshotKind(kind),
		CreatedAt: ts,
		Inputs:    []byte(inputs),
		Results:   []byte(results),
	}, nil
}

// =============================================================================
// CONTRACTS - Drafted lease configurations
// =============================================================================

// Contract is a stored lease configuration. ConfigJSON holds the wizard's
// capture; the factory package parses it into engine types.
type Contract struct {
	ID         string
	ConfigJSON string
	Archived   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SaveContract inserts or updates a contract. Archived contracts are
// immutable: attempts to update them are rejected.
func (s *Store) SaveContract(ctx context.Context, c Contract) error {
	var archived bool
	err := s.db.QueryRowContext(ctx,
		`SELECT archived FROM contracts WHERE id = ?`, c.ID).Scan(&archived)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return storeErr(err)
	}
	if err == nil && archived {
		return &linkage.InvalidInputError{Field: "id", Reason: "contract is archived and immutable"}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, config_json, archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_json = excluded.config_json,
			archived = excluded.archived,
			updated_at = excluded.updated_at`,
		c.ID, c.ConfigJSON, boolToInt(c.Archived), now, now)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

// GetContract returns a contract by id, or nil when absent.
func (s *Store) GetContract(ctx context.Context, id string) (*Contract, error) {
	var c Contract
	var archived int
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, config_json, archived, created_at, updated_at
		FROM contracts WHERE id = ?`, id).
		Scan(&c.ID, &c.ConfigJSON, &archived, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err)
	}
	c.Archived = archived != 0
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("corrupt decimal %q: %w", raw, err)
	}
	return d, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", linkage.ErrStoreUnavailable, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
