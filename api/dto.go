/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON shapes the API speaks. These are deliberately separate
  from the engine types: the wire format stays stable while internals move.

CONVENTIONS:
  - Months travel as "YYYY-MM" strings.
  - Dates travel as "YYYY-MM-DD" strings.
  - Money travels as JSON numbers (decimal keeps them exact in Go).

SEE ALSO:
  - handlers.go: Where these shapes are produced and consumed
  - factory/contract.go: The contract configuration format
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/rentmate/linkage-engine/factory"
)

// =============================================================================
// CALCULATION REQUESTS
// =============================================================================

// StandardCalcRequest asks for the linkage-adjusted rent of one month.
type StandardCalcRequest struct {
	Contract    factory.ContractJSON `json:"contract"`
	TargetMonth string               `json:"target_month"`
}

// PaymentDTO is one actual payment supplied for reconciliation.
type PaymentDTO struct {
	Date      string          `json:"date"` // YYYY-MM
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// ReconcileRequest asks for an expected-vs-paid run over a period.
type ReconcileRequest struct {
	Contract    factory.ContractJSON `json:"contract"`
	PeriodStart string               `json:"period_start"` // YYYY-MM
	PeriodEnd   string               `json:"period_end"`   // YYYY-MM
	Payments    []PaymentDTO         `json:"payments"`
}

// ShareRequest freezes a finished calculation into an immutable snapshot.
// Inputs and results are kept as raw JSON so the viewer needs nothing from
// the engine version that produced them.
type ShareRequest struct {
	Kind    string `json:"kind"` // "standard" or "reconciliation"
	Inputs  any    `json:"inputs"`
	Results any    `json:"results"`
}

// =============================================================================
// CALCULATION RESPONSES
// =============================================================================

// ProjectionDTO is the rent due for one month with its calculation trail.
type ProjectionDTO struct {
	Month          string          `json:"month"`
	Amount         decimal.Decimal `json:"amount"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	Coefficient    decimal.Decimal `json:"coefficient"`
	ChangePercent  decimal.Decimal `json:"change_percent"`
	FlooredAtBase  bool            `json:"floored_at_base"`
	CeilingApplied bool            `json:"ceiling_applied"`
	BaseIndexValue decimal.Decimal `json:"base_index_value,omitempty"`
	IndexValueUsed decimal.Decimal `json:"index_value_used,omitempty"`
	IndexMonthUsed string          `json:"index_month_used,omitempty"`
	ChainFactor    decimal.Decimal `json:"chain_factor,omitempty"`
	Formula        string          `json:"formula"`
}

// ReconciliationRowDTO is one month of an expected-vs-paid comparison.
type ReconciliationRowDTO struct {
	Period         string          `json:"period"`
	ShouldPay      decimal.Decimal `json:"should_pay"`
	Paid           decimal.Decimal `json:"paid"`
	Diff           decimal.Decimal `json:"diff"`
	Coefficient    decimal.Decimal `json:"coefficient"`
	IndexMonthUsed string          `json:"index_month_used,omitempty"`
	IndexValueUsed decimal.Decimal `json:"index_value_used,omitempty"`
	Recalculated   bool            `json:"recalculated"`
}

// ReconciliationDTO is the aggregate result of a reconciliation run.
type ReconciliationDTO struct {
	Rows []ReconciliationRowDTO `json:"rows"`

	TotalShouldPay              decimal.Decimal `json:"total_should_pay"`
	TotalPaid                   decimal.Decimal `json:"total_paid"`
	TotalBackPayOwed            decimal.Decimal `json:"total_back_pay_owed"`
	MonthsCount                 int             `json:"months_count"`
	AverageUnderpaymentPerMonth decimal.Decimal `json:"average_underpayment_per_month"`
	PercentageOwed              decimal.Decimal `json:"percentage_owed"`

	UnmatchedPayments []PaymentDTO `json:"unmatched_payments,omitempty"`
}

// SnapshotDTO is a stored shared calculation.
type SnapshotDTO struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Kind      string `json:"kind"`
	Inputs    any    `json:"inputs"`
	Results   any    `json:"results"`
}

// =============================================================================
// INDEX DATA
// =============================================================================

// IndexPointDTO is one published index value.
type IndexPointDTO struct {
	Type  string          `json:"type"`
	Month string          `json:"month"`
	Value decimal.Decimal `json:"value"`
}

// UpsertIndexRequest inserts or corrects one index value.
type UpsertIndexRequest struct {
	Type   string          `json:"type"`
	Month  string          `json:"month"`
	Value  decimal.Decimal `json:"value"`
	Source string          `json:"source,omitempty"`
}

// UpsertBaseRequest records a CBS base-year transition.
type UpsertBaseRequest struct {
	Type        string          `json:"type"`
	Start       string          `json:"start"` // YYYY-MM the new base takes effect
	ChainFactor decimal.Decimal `json:"chain_factor"`
	Description string          `json:"description,omitempty"`
}

// =============================================================================
// CONTRACTS
// =============================================================================

// CreateContractRequest stores a contract configuration.
type CreateContractRequest struct {
	ID       string               `json:"id,omitempty"`
	Contract factory.ContractJSON `json:"contract"`
}

// ContractDTO is a stored contract.
type ContractDTO struct {
	ID        string               `json:"id"`
	Contract  factory.ContractJSON `json:"contract"`
	Archived  bool                 `json:"archived"`
	CreatedAt string               `json:"created_at"`
}

// DuePaymentDTO is one scheduled payment.
type DuePaymentDTO struct {
	DueDate string          `json:"due_date"` // YYYY-MM-DD
	Amount  decimal.Decimal `json:"amount"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
