package factory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentmate/linkage-engine/factory"
	"github.com/rentmate/linkage-engine/linkage"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func fullContractJSON() string {
	return `{
		"base_rent": 5000,
		"start_date": "2024-01-15",
		"end_date": "2026-01-14",
		"payment_frequency": "monthly",
		"payment_day": 10,
		"linkage_type": "cpi",
		"linkage_sub_type": "known",
		"base_index_date": "2024-01",
		"base_index_value": 105,
		"partial_linkage": 80,
		"linkage_ceiling": 5,
		"linkage_floor": 0,
		"update_frequency": "quarterly",
		"rent_steps": [
			{"effective_date": "2025-01-01", "amount": 5500}
		],
		"option_periods": [
			{"start_date": "2026-01-01", "end_date": "2026-12-01", "rent": 6000}
		]
	}`
}

// =============================================================================
// FULL CONTRACT PARSING
// =============================================================================

func TestContractFactory_ParseFullContract(t *testing.T) {
	f := factory.NewContractFactory()

	parsed, err := f.Parse(fullContractJSON())
	require.NoError(t, err)

	// Policy
	assert.Equal(t, linkage.IndexCPI, parsed.Policy.Type)
	assert.Equal(t, linkage.TimingKnown, parsed.Policy.Timing)
	assert.Equal(t, linkage.NewMonth(2024, time.January), parsed.Policy.BaseMonth)
	require.NotNil(t, parsed.Policy.BaseValue)
	assert.True(t, parsed.Policy.BaseValue.Equal(decimal.NewFromInt(105)))
	require.NotNil(t, parsed.Policy.PartialLinkagePercent)
	assert.True(t, parsed.Policy.PartialLinkagePercent.Equal(decimal.NewFromInt(80)))
	require.NotNil(t, parsed.Policy.CeilingPercent)
	assert.True(t, parsed.Policy.CeilingPercent.Equal(decimal.NewFromInt(5)))
	assert.True(t, parsed.Policy.FloorIsBase, "linkage_floor 0 marks the base as a minimum")
	assert.Equal(t, linkage.UpdateQuarterly, parsed.Policy.Frequency)

	// Schedule
	assert.True(t, parsed.Schedule.BaseRent.Equal(decimal.NewFromInt(5000)))
	require.Len(t, parsed.Schedule.Steps, 1)
	assert.Equal(t, linkage.NewMonth(2025, time.January), parsed.Schedule.Steps[0].Effective)
	require.Len(t, parsed.Schedule.Options, 1)
	assert.True(t, parsed.Schedule.Options[0].Rent.Equal(decimal.NewFromInt(6000)))

	// Term and cadence
	assert.Equal(t, 2024, parsed.TermStart.Year())
	assert.Equal(t, linkage.PayMonthly, parsed.PaymentFrequency)
	assert.Equal(t, 10, parsed.PaymentDay)
}

func TestContractFactory_UnlinkedContract(t *testing.T) {
	f := factory.NewContractFactory()

	parsed, err := f.Parse(`{
		"base_rent": 4200,
		"start_date": "2024-03-01",
		"end_date": "2025-02-28"
	}`)
	require.NoError(t, err)

	assert.Equal(t, linkage.IndexNone, parsed.Policy.Type)
	assert.Equal(t, linkage.PayMonthly, parsed.PaymentFrequency, "frequency defaults to monthly")
	assert.Equal(t, "ILS", parsed.Schedule.Currency)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestContractFactory_LinkedContractRequiresTiming(t *testing.T) {
	f := factory.NewContractFactory()

	_, err := f.Parse(`{
		"base_rent": 5000,
		"start_date": "2024-01-01",
		"end_date": "2025-01-01",
		"linkage_type": "cpi",
		"base_index_date": "2024-01"
	}`)
	require.Error(t, err)
	assert.True(t, linkage.IsClientError(err))
	assert.Contains(t, err.Error(), "linkage_sub_type")
}

func TestContractFactory_RejectsUnknownEnums(t *testing.T) {
	f := factory.NewContractFactory()

	cases := map[string]string{
		"linkage type": `{"base_rent": 5000, "start_date": "2024-01-01", "end_date": "2025-01-01",
			"linkage_type": "gold"}`,
		"timing": `{"base_rent": 5000, "start_date": "2024-01-01", "end_date": "2025-01-01",
			"linkage_type": "cpi", "linkage_sub_type": "whatever", "base_index_date": "2024-01"}`,
		"update frequency": `{"base_rent": 5000, "start_date": "2024-01-01", "end_date": "2025-01-01",
			"linkage_type": "cpi", "linkage_sub_type": "known", "base_index_date": "2024-01",
			"update_frequency": "hourly"}`,
		"payment frequency": `{"base_rent": 5000, "start_date": "2024-01-01", "end_date": "2025-01-01",
			"payment_frequency": "weekly"}`,
		"annual ceiling without base date": `{"base_rent": 5000, "start_date": "2024-01-01",
			"end_date": "2025-01-01", "linkage_type": "cpi", "linkage_sub_type": "known",
			"base_index_value": 105, "linkage_ceiling": 2, "linkage_ceiling_annual": true}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.Parse(body)
			require.Error(t, err)
			assert.True(t, linkage.IsClientError(err))
		})
	}
}

func TestContractFactory_RejectsInvertedTerm(t *testing.T) {
	f := factory.NewContractFactory()

	_, err := f.Parse(`{
		"base_rent": 5000,
		"start_date": "2025-01-01",
		"end_date": "2024-01-01"
	}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end_date")
}

func TestContractFactory_MalformedJSON(t *testing.T) {
	f := factory.NewContractFactory()

	_, err := f.Parse(`{"base_rent": `)
	require.Error(t, err)
	assert.True(t, linkage.IsClientError(err))
}

func TestContractFactory_NonZeroFloorIsNotBaseMinimum(t *testing.T) {
	// Only the 0 sentinel marks "base index is a minimum"; other floor
	// values are not supported and simply leave the clause off.
	f := factory.NewContractFactory()

	parsed, err := f.Parse(`{
		"base_rent": 5000,
		"start_date": "2024-01-01",
		"end_date": "2025-01-01",
		"linkage_type": "cpi",
		"linkage_sub_type": "known",
		"base_index_date": "2024-01",
		"linkage_floor": 2
	}`)
	require.NoError(t, err)
	assert.False(t, parsed.Policy.FloorIsBase)
}
