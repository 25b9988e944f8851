/*
Package factory converts contract JSON into engine types.

PURPOSE:
  The lease editor captures a contract as JSON (the same shape the add-
  contract wizard produces) and stores it verbatim. This package parses
  that capture into a linkage.Policy and linkage.RentSchedule, validating
  as it goes, so the engine itself never sees half-typed user input.

JSON SCHEMA (wizard capture):
  {
    "base_rent": 5000,
    "currency": "ILS",
    "start_date": "2024-01-15",
    "end_date": "2025-01-14",
    "payment_frequency": "monthly",
    "payment_day": 10,
    "linkage_type": "cpi",
    "linkage_sub_type": "known",
    "base_index_date": "2024-01",
    "base_index_value": 105.2,
    "partial_linkage": 100,
    "linkage_ceiling": 5,
    "linkage_ceiling_annual": true,
    "linkage_floor": 0,
    "update_frequency": "quarterly",
    "rent_steps": [{"effective_date": "2024-07", "amount": 5200}],
    "option_periods": [{"start_date": "2025-02", "end_date": "2026-01", "rent": 5500}]
  }

  linkage_floor follows the wizard's convention: the value 0 means "the
  base index is a minimum" (rent never drops below base). Absent means no
  floor.

USAGE:
  f := factory.NewContractFactory()
  parsed, err := f.Parse(configJSON)
  // parsed.Policy, parsed.Schedule, parsed.Term ready for the engine
*/
package factory

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/rentmate/linkage-engine/linkage"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ContractJSON is the wire representation of a drafted lease.
type ContractJSON struct {
	BaseRent         decimal.Decimal `json:"base_rent"`
	Currency         string          `json:"currency,omitempty"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	PaymentFrequency string          `json:"payment_frequency,omitempty"`
	PaymentDay       int             `json:"payment_day,omitempty"`

	LinkageType          string           `json:"linkage_type,omitempty"`
	LinkageSubType       string           `json:"linkage_sub_type,omitempty"`
	BaseIndexDate        string           `json:"base_index_date,omitempty"`
	BaseIndexValue       *decimal.Decimal `json:"base_index_value,omitempty"`
	PartialLinkage       *decimal.Decimal `json:"partial_linkage,omitempty"`
	LinkageCeiling       *decimal.Decimal `json:"linkage_ceiling,omitempty"`
	LinkageCeilingAnnual bool             `json:"linkage_ceiling_annual,omitempty"`
	LinkageFloor         *decimal.Decimal `json:"linkage_floor,omitempty"`
	UpdateFrequency      string           `json:"update_frequency,omitempty"`
	AllowOffset          bool             `json:"allow_overpayment_offset,omitempty"`

	RentSteps     []RentStepJSON     `json:"rent_steps,omitempty"`
	OptionPeriods []OptionPeriodJSON `json:"option_periods,omitempty"`
}

// RentStepJSON is a pre-negotiated flat rent change.
type RentStepJSON struct {
	EffectiveDate string          `json:"effective_date"`
	Amount        decimal.Decimal `json:"amount"`
}

// OptionPeriodJSON is an extension window with its own rent.
type OptionPeriodJSON struct {
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	Rent      decimal.Decimal `json:"rent"`
}

// ParsedContract is everything the engine needs from one lease.
type ParsedContract struct {
	Policy   linkage.Policy
	Schedule linkage.RentSchedule

	// Term bounds and payment cadence for schedule generation.
	TermStart        time.Time
	TermEnd          time.Time
	PaymentFrequency linkage.PaymentFrequency
	PaymentDay       int
}

// =============================================================================
// CONTRACT FACTORY
// =============================================================================

// ContractFactory converts contract JSON to engine types.
type ContractFactory struct{}

func NewContractFactory() *ContractFactory {
	return &ContractFactory{}
}

// Parse parses a JSON capture into engine types. Errors name the offending
// field so the editor can highlight it.
func (f *ContractFactory) Parse(configJSON string) (*ParsedContract, error) {
	var cj ContractJSON
	if err := json.Unmarshal([]byte(configJSON), &cj); err != nil {
		return nil, &linkage.InvalidInputError{Field: "config", Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return f.FromJSON(cj)
}

// FromJSON converts an already-decoded capture.
func (f *ContractFactory) FromJSON(cj ContractJSON) (*ParsedContract, error) {
	policy, err := buildPolicy(cj)
	if err != nil {
		return nil, err
	}
	schedule, err := buildSchedule(cj)
	if err != nil {
		return nil, err
	}

	start, err := parseDate("start_date", cj.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date", cj.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, &linkage.InvalidInputError{Field: "end_date", Reason: "contract ends before it starts"}
	}

	freq := linkage.PaymentFrequency(cj.PaymentFrequency)
	switch freq {
	case "", linkage.PayMonthly, linkage.PayQuarterly, linkage.PayAnnually:
	default:
		return nil, &linkage.InvalidInputError{Field: "payment_frequency", Reason: "unknown frequency " + cj.PaymentFrequency}
	}
	if freq == "" {
		freq = linkage.PayMonthly
	}

	parsed := &ParsedContract{
		Policy:           policy,
		Schedule:         schedule,
		TermStart:        start,
		TermEnd:          end,
		PaymentFrequency: freq,
		PaymentDay:       cj.PaymentDay,
	}
	return parsed, nil
}

func buildPolicy(cj ContractJSON) (linkage.Policy, error) {
	p := linkage.Policy{
		Type:                   linkage.IndexNone,
		AllowOverpaymentOffset: cj.AllowOffset,
	}

	switch cj.LinkageType {
	case "", "none":
		return p, nil
	case "cpi", "housing", "construction", "usd", "eur":
		p.Type = linkage.IndexType(cj.LinkageType)
	default:
		return p, &linkage.InvalidInputError{Field: "linkage_type", Reason: "unknown linkage type " + cj.LinkageType}
	}

	// Wizard names: "known" / "respect_of". The engine requires one of them
	// on every linked contract - timing conventions produce different
	// numbers and must not be guessed.
	switch cj.LinkageSubType {
	case "known":
		p.Timing = linkage.TimingKnown
	case "respect_of":
		p.Timing = linkage.TimingInRespectOf
	case "":
		return p, &linkage.InvalidInputError{Field: "linkage_sub_type", Reason: "linked contract must state known or respect_of"}
	default:
		return p, &linkage.InvalidInputError{Field: "linkage_sub_type", Reason: "unknown timing " + cj.LinkageSubType}
	}

	if cj.BaseIndexDate != "" {
		m, err := linkage.ParseMonth(cj.BaseIndexDate)
		if err != nil {
			return p, &linkage.InvalidInputError{Field: "base_index_date", Reason: "expected YYYY-MM"}
		}
		p.BaseMonth = m
	}
	p.BaseValue = cj.BaseIndexValue
	p.PartialLinkagePercent = cj.PartialLinkage
	p.CeilingPercent = cj.LinkageCeiling
	p.CeilingIsAnnual = cj.LinkageCeilingAnnual

	// Floor convention: 0 means "base index is a minimum".
	if cj.LinkageFloor != nil && cj.LinkageFloor.IsZero() {
		p.FloorIsBase = true
	}

	switch cj.UpdateFrequency {
	case "":
		p.Frequency = linkage.UpdateMonthly
	case "monthly":
		p.Frequency = linkage.UpdateMonthly
	case "quarterly":
		p.Frequency = linkage.UpdateQuarterly
	case "semiannually":
		p.Frequency = linkage.UpdateSemiAnnual
	case "annually":
		p.Frequency = linkage.UpdateAnnual
	default:
		return p, &linkage.InvalidInputError{Field: "update_frequency", Reason: "unknown frequency " + cj.UpdateFrequency}
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func buildSchedule(cj ContractJSON) (linkage.RentSchedule, error) {
	s := linkage.RentSchedule{
		BaseRent: cj.BaseRent,
		Currency: cj.Currency,
	}
	if s.Currency == "" {
		s.Currency = "ILS"
	}

	for i, st := range cj.RentSteps {
		m, err := linkage.ParseMonth(monthOfDate(st.EffectiveDate))
		if err != nil {
			return s, &linkage.InvalidInputError{Field: fmt.Sprintf("rent_steps[%d].effective_date", i), Reason: "expected YYYY-MM or YYYY-MM-DD"}
		}
		s.Steps = append(s.Steps, linkage.RentStep{Effective: m, Amount: st.Amount})
	}
	for i, o := range cj.OptionPeriods {
		start, err := linkage.ParseMonth(monthOfDate(o.StartDate))
		if err != nil {
			return s, &linkage.InvalidInputError{Field: fmt.Sprintf("option_periods[%d].start_date", i), Reason: "expected YYYY-MM or YYYY-MM-DD"}
		}
		end, err := linkage.ParseMonth(monthOfDate(o.EndDate))
		if err != nil {
			return s, &linkage.InvalidInputError{Field: fmt.Sprintf("option_periods[%d].end_date", i), Reason: "expected YYYY-MM or YYYY-MM-DD"}
		}
		s.Options = append(s.Options, linkage.OptionPeriod{Start: start, End: end, Rent: o.Rent})
	}
	s.SortSteps()

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// parseDate accepts full dates; the wizard always sends YYYY-MM-DD.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &linkage.InvalidInputError{Field: field, Reason: fmt.Sprintf("expected YYYY-MM-DD, got %q", value)}
	}
	return t, nil
}

// monthOfDate truncates YYYY-MM-DD to YYYY-MM; YYYY-MM passes through.
func monthOfDate(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
