/*
handlers.go - HTTP API handlers for the linkage calculation engine

PURPOSE:
  Exposes the calculation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Calculations:
    POST   /api/calculations/standard   Linkage-adjusted rent for one month
    POST   /api/calculations/reconcile  Expected-vs-paid run over a period
    POST   /api/calculations/share      Freeze a result into a shared snapshot
    GET    /api/calculations/{id}       Load a shared snapshot

  Indices:
    GET    /api/indices/{type}          Published values in a range
    GET    /api/indices/{type}/latest   Latest published value as of a month

  Contracts:
    POST   /api/contracts               Store a contract configuration
    GET    /api/contracts/{id}          Fetch a stored contract
    GET    /api/contracts/{id}/projection  Projected rent for one month
    GET    /api/contracts/{id}/schedule    Generated payment schedule

  Admin:
    POST   /api/admin/indices           Insert or correct an index value
    POST   /api/admin/bases             Record a base-year transition

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown snapshot, contract, or index period
  - 409: Snapshot id collision
  - 422: Index not yet published; reconciliation blocked on missing data
  - 502: Store unavailable
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rentmate/linkage-engine/factory"
	"github.com/rentmate/linkage-engine/linkage"
	"github.com/rentmate/linkage-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// IndexStore is the index-data surface the handlers need: everything the
// engine reads, plus the admin write path.
type IndexStore interface {
	linkage.Provider
	ListIndexValues(ctx context.Context, t linkage.IndexType, from, to linkage.Month) ([]linkage.IndexPoint, error)
	UpsertIndexValue(ctx context.Context, p linkage.IndexPoint, source string) error
	UpsertBase(ctx context.Context, b linkage.IndexBase) error
}

// ContractStore persists contract configurations. Optional: a nil store
// disables the contract endpoints.
type ContractStore interface {
	SaveContract(ctx context.Context, c sqlite.Contract) error
	GetContract(ctx context.Context, id string) (*sqlite.Contract, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Indices   IndexStore
	Snapshots linkage.SnapshotStore
	Contracts ContractStore

	Factory   *factory.ContractFactory
	Projector *linkage.Projector
	Freezer   *linkage.Freezer

	Log *logrus.Logger
}

// NewHandler wires the engine to the given stores.
func NewHandler(indices IndexStore, snapshots linkage.SnapshotStore, contracts ContractStore, log *logrus.Logger) *Handler {
	return &Handler{
		Indices:   indices,
		Snapshots: snapshots,
		Contracts: contracts,
		Factory:   factory.NewContractFactory(),
		Projector: linkage.NewProjector(indices),
		Freezer:   linkage.NewFreezer(snapshots),
		Log:       log,
	}
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// StandardCalc computes the linkage-adjusted rent for one month.
func (h *Handler) StandardCalc(w http.ResponseWriter, r *http.Request) {
	var req StandardCalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	target, err := linkage.ParseMonth(req.TargetMonth)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target_month (use YYYY-MM)", err)
		return
	}

	parsed, err := h.Factory.FromJSON(req.Contract)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	proj, err := h.Projector.ProjectRent(r.Context(), parsed.Schedule, parsed.Policy, target)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectionDTO(proj))
}

// Reconcile runs the expected-vs-paid comparison over a period.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := linkage.ParseMonth(req.PeriodStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_start (use YYYY-MM)", err)
		return
	}
	end, err := linkage.ParseMonth(req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_end (use YYYY-MM)", err)
		return
	}

	parsed, err := h.Factory.FromJSON(req.Contract)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	payments := make([]linkage.ActualPayment, 0, len(req.Payments))
	for _, p := range req.Payments {
		m, err := linkage.ParseMonth(p.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment date (use YYYY-MM)", err)
			return
		}
		payments = append(payments, linkage.ActualPayment{Date: m, Amount: p.Amount, Reference: p.Reference})
	}

	result, err := h.Projector.Reconcile(r.Context(), linkage.ReconcileInput{
		Schedule:    parsed.Schedule,
		Policy:      parsed.Policy,
		PeriodStart: start,
		PeriodEnd:   end,
		Payments:    payments,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toReconciliationDTO(result))
}

// ShareCalculation freezes a finished calculation into an immutable snapshot
// and returns its id.
func (h *Handler) ShareCalculation(w http.ResponseWriter, r *http.Request) {
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind := linkage.SnapshotKind(req.Kind)
	if kind != linkage.SnapshotStandard && kind != linkage.SnapshotReconciliation {
		writeError(w, http.StatusBadRequest, "Invalid kind (use standard or reconciliation)", nil)
		return
	}

	snap, err := h.Freezer.Freeze(r.Context(), kind, req.Inputs, req.Results)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SnapshotDTO{
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt.Format(time.RFC3339),
		Kind:      string(snap.Kind),
	})
}

// GetCalculation loads a shared snapshot.
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.Freezer.Load(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SnapshotDTO{
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt.Format(time.RFC3339),
		Kind:      string(snap.Kind),
		Inputs:    snap.Inputs,
		Results:   snap.Results,
	})
}

// =============================================================================
// INDEX HANDLERS
// =============================================================================

// ListIndexValues returns the published values of one series, bounded by
// optional ?from= and ?to= months.
func (h *Handler) ListIndexValues(w http.ResponseWriter, r *http.Request) {
	t := linkage.IndexType(chi.URLParam(r, "type"))
	if !t.Valid() || !t.Linked() {
		writeError(w, http.StatusBadRequest, "Unknown index type", nil)
		return
	}

	ctx := r.Context()
	first, last, err := h.Indices.AvailableRange(ctx, t)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	from, to := first, last
	if q := r.URL.Query().Get("from"); q != "" {
		if from, err = linkage.ParseMonth(q); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from (use YYYY-MM)", err)
			return
		}
	}
	if q := r.URL.Query().Get("to"); q != "" {
		if to, err = linkage.ParseMonth(q); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to (use YYYY-MM)", err)
			return
		}
	}

	points, err := h.Indices.ListIndexValues(ctx, t, from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]IndexPointDTO, len(points))
	for i, p := range points {
		dtos[i] = IndexPointDTO{Type: string(p.Type), Month: p.Month.String(), Value: p.Value}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LatestIndexValue returns the most recent published value as of a month
// (?as_of=, default: the current month).
func (h *Handler) LatestIndexValue(w http.ResponseWriter, r *http.Request) {
	t := linkage.IndexType(chi.URLParam(r, "type"))
	if !t.Valid() || !t.Linked() {
		writeError(w, http.StatusBadRequest, "Unknown index type", nil)
		return
	}

	asOf := linkage.MonthOf(time.Now().UTC())
	if q := r.URL.Query().Get("as_of"); q != "" {
		var err error
		if asOf, err = linkage.ParseMonth(q); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM)", err)
			return
		}
	}

	p, err := h.Indices.LatestPublished(r.Context(), t, asOf)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IndexPointDTO{Type: string(p.Type), Month: p.Month.String(), Value: p.Value})
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// CreateContract validates and stores a contract configuration.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	if h.Contracts == nil {
		writeError(w, http.StatusNotImplemented, "Contract storage not configured", nil)
		return
	}

	var req CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	// Reject configurations the engine could not calculate with.
	if _, err := h.Factory.FromJSON(req.Contract); err != nil {
		h.writeDomainError(w, err)
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	config, err := json.Marshal(req.Contract)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize contract", err)
		return
	}

	if err := h.Contracts.SaveContract(r.Context(), sqlite.Contract{ID: id, ConfigJSON: string(config)}); err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ContractDTO{ID: id, Contract: req.Contract})
}

// GetContract returns a stored contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	if h.Contracts == nil {
		writeError(w, http.StatusNotImplemented, "Contract storage not configured", nil)
		return
	}

	c := h.loadContract(w, r)
	if c == nil {
		return
	}

	var cj factory.ContractJSON
	if err := json.Unmarshal([]byte(c.ConfigJSON), &cj); err != nil {
		writeError(w, http.StatusInternalServerError, "Stored contract is corrupt", err)
		return
	}

	writeJSON(w, http.StatusOK, ContractDTO{
		ID:        c.ID,
		Contract:  cj,
		Archived:  c.Archived,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	})
}

// ContractProjection computes the projected rent of a stored contract for
// one month (?date=YYYY-MM).
func (h *Handler) ContractProjection(w http.ResponseWriter, r *http.Request) {
	if h.Contracts == nil {
		writeError(w, http.StatusNotImplemented, "Contract storage not configured", nil)
		return
	}

	target, err := linkage.ParseMonth(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM)", err)
		return
	}

	c := h.loadContract(w, r)
	if c == nil {
		return
	}

	parsed, err := h.Factory.Parse(c.ConfigJSON)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	proj, err := h.Projector.ProjectRent(r.Context(), parsed.Schedule, parsed.Policy, target)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProjectionDTO(proj))
}

// ContractSchedule generates the payment schedule of a stored contract.
// Amounts are the unlinked schedule rents; linkage applies at payment time.
func (h *Handler) ContractSchedule(w http.ResponseWriter, r *http.Request) {
	if h.Contracts == nil {
		writeError(w, http.StatusNotImplemented, "Contract storage not configured", nil)
		return
	}

	c := h.loadContract(w, r)
	if c == nil {
		return
	}

	parsed, err := h.Factory.Parse(c.ConfigJSON)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	payments, err := linkage.GeneratePayments(parsed.Schedule, parsed.TermStart, parsed.TermEnd, parsed.PaymentFrequency, parsed.PaymentDay)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]DuePaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = DuePaymentDTO{DueDate: p.DueDate.Format("2006-01-02"), Amount: p.Amount}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// loadContract fetches the contract in the URL, writing the error response
// itself. A nil return means the response has already been written.
func (h *Handler) loadContract(w http.ResponseWriter, r *http.Request) *sqlite.Contract {
	id := chi.URLParam(r, "id")
	c, err := h.Contracts.GetContract(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return nil
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Contract not found", nil)
		return nil
	}
	return c
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// UpsertIndexValue inserts or corrects one index value. Ingestion normally
// owns this table; the endpoint exists for backfills and corrections.
func (h *Handler) UpsertIndexValue(w http.ResponseWriter, r *http.Request) {
	var req UpsertIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t := linkage.IndexType(req.Type)
	if !t.Valid() || !t.Linked() {
		writeError(w, http.StatusBadRequest, "Unknown index type", nil)
		return
	}
	m, err := linkage.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}
	if !req.Value.IsPositive() {
		writeError(w, http.StatusBadRequest, "Value must be positive", nil)
		return
	}

	source := req.Source
	if source == "" {
		source = "manual"
	}
	if err := h.Indices.UpsertIndexValue(r.Context(), linkage.IndexPoint{Type: t, Month: m, Value: req.Value}, source); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.Log.WithFields(logrus.Fields{"index": t, "month": m, "source": source}).Info("index value upserted")
	w.WriteHeader(http.StatusNoContent)
}

// UpsertBase records a CBS base-year transition.
func (h *Handler) UpsertBase(w http.ResponseWriter, r *http.Request) {
	var req UpsertBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t := linkage.IndexType(req.Type)
	if !t.Valid() || t.Currency() || !t.Linked() {
		writeError(w, http.StatusBadRequest, "Base transitions apply to CBS indices only", nil)
		return
	}
	start, err := linkage.ParseMonth(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start (use YYYY-MM)", err)
		return
	}
	if !req.ChainFactor.IsPositive() {
		writeError(w, http.StatusBadRequest, "Chain factor must be positive", nil)
		return
	}

	err = h.Indices.UpsertBase(r.Context(), linkage.IndexBase{
		Type:        t,
		Start:       start,
		ChainFactor: req.ChainFactor,
		Description: req.Description,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toProjectionDTO(p *linkage.Projection) ProjectionDTO {
	dto := ProjectionDTO{
		Month:          p.Month.String(),
		Amount:         p.Amount,
		BaseAmount:     p.BaseAmount,
		Coefficient:    p.Coefficient.Value,
		ChangePercent:  p.Coefficient.ChangePercent(),
		FlooredAtBase:  p.Coefficient.FlooredAtBase,
		CeilingApplied: p.Coefficient.CeilingApplied,
		BaseIndexValue: p.BaseIndexValue,
		IndexValueUsed: p.IndexValueUsed,
		ChainFactor:    p.ChainFactorUsed,
		Formula:        p.Formula,
	}
	if !p.IndexMonthUsed.IsZero() {
		dto.IndexMonthUsed = p.IndexMonthUsed.String()
	}
	return dto
}

func toReconciliationDTO(res *linkage.ReconciliationResult) ReconciliationDTO {
	rows := make([]ReconciliationRowDTO, len(res.Rows))
	for i, row := range res.Rows {
		rows[i] = ReconciliationRowDTO{
			Period:         row.Period.String(),
			ShouldPay:      row.ShouldPay,
			Paid:           row.Paid,
			Diff:           row.Diff,
			Coefficient:    row.Coefficient,
			IndexValueUsed: row.IndexValueUsed,
			Recalculated:   row.Recalculated,
		}
		if !row.IndexMonthUsed.IsZero() {
			rows[i].IndexMonthUsed = row.IndexMonthUsed.String()
		}
	}

	unmatched := make([]PaymentDTO, len(res.UnmatchedPayments))
	for i, p := range res.UnmatchedPayments {
		unmatched[i] = PaymentDTO{Date: p.Date.String(), Amount: p.Amount, Reference: p.Reference}
	}
	if len(unmatched) == 0 {
		unmatched = nil
	}

	return ReconciliationDTO{
		Rows:                        rows,
		TotalShouldPay:              res.TotalShouldPay,
		TotalPaid:                   res.TotalPaid,
		TotalBackPayOwed:            res.TotalBackPayOwed,
		MonthsCount:                 res.MonthsCount,
		AverageUnderpaymentPerMonth: res.AverageUnderpaymentPerMonth,
		PercentageOwed:              res.PercentageOwed,
		UnmatchedPayments:           unmatched,
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeDomainError maps engine errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var recErr *linkage.ReconciliationError
	switch {
	case errors.As(err, &recErr):
		writeError(w, http.StatusUnprocessableEntity, "Reconciliation blocked on missing index data", err)
	case linkage.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case linkage.IsPending(err):
		writeError(w, http.StatusUnprocessableEntity, "Index not yet published", err)
	case linkage.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, linkage.ErrSnapshotExists):
		writeError(w, http.StatusConflict, "Snapshot already exists", err)
	case errors.Is(err, linkage.ErrStoreUnavailable):
		h.Log.WithError(err).Error("store unavailable")
		writeError(w, http.StatusBadGateway, "Store unavailable", err)
	default:
		h.Log.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
