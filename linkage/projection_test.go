package linkage_test

import (
	"context"
	"testing"
	"time"

	"github.com/rentmate/linkage-engine/linkage"
	"github.com/rentmate/linkage-engine/linkage/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newCPIProvider seeds a memory store with a CPI series where the index
// rises 5% between January and July 2024.
func newCPIProvider() *store.Memory {
	m := store.NewMemory()
	m.Put(linkage.IndexCPI, linkage.NewMonth(2024, time.January), dec("105"))
	m.Put(linkage.IndexCPI, linkage.NewMonth(2024, time.February), dec("105.8"))
	m.Put(linkage.IndexCPI, linkage.NewMonth(2024, time.March), dec("106.4"))
	m.Put(linkage.IndexCPI, linkage.NewMonth(2024, time.April), dec("107.1"))
	m.Put(linkage.IndexCPI, linkage.NewMonth(2024, time.May), dec("108"))
	m.Put(linkage.IndexCPI, linkage.NewMonth(2024, time.June), dec("109"))
	m.Put(linkage.IndexCPI, linkage.NewMonth(2024, time.July), dec("110.25"))
	return m
}

func rent5000() linkage.RentSchedule {
	return linkage.RentSchedule{BaseRent: dec("5000")}
}

// =============================================================================
// STANDARD PROJECTION
// =============================================================================

func TestProjectRent_FullLinkage(t *testing.T) {
	// GIVEN: 5000 base rent, CPI 105 -> 110.25
	// WHEN: Projecting July 2024 in respect-of mode
	// THEN: Rent is exactly 5250

	pr := linkage.NewProjector(newCPIProvider())
	p := cpiPolicy() // base 2024-01, inRespectOf

	proj, err := pr.ProjectRent(context.Background(), rent5000(), p, linkage.NewMonth(2024, time.July))
	if err != nil {
		t.Fatalf("ProjectRent: %v", err)
	}
	if !proj.Amount.Equal(dec("5250")) {
		t.Errorf("amount = %s, want 5250", proj.Amount)
	}
	if !proj.Coefficient.Value.Equal(dec("1.05")) {
		t.Errorf("coefficient = %s, want 1.05", proj.Coefficient.Value)
	}
	if !proj.IndexMonthUsed.Equal(linkage.NewMonth(2024, time.July)) {
		t.Errorf("index month = %v, want 2024-07", proj.IndexMonthUsed)
	}
	if proj.Formula == "" {
		t.Error("expected a formula rendering")
	}
}

func TestProjectRent_KnownTimingUsesPreviousPublication(t *testing.T) {
	// GIVEN: CPI published through July 2024; publication lags one month
	// WHEN: Projecting August 2024 in known mode
	// THEN: July's value (the latest known at payment time) applies

	pr := linkage.NewProjector(newCPIProvider())
	p := cpiPolicy()
	p.Timing = linkage.TimingKnown

	proj, err := pr.ProjectRent(context.Background(), rent5000(), p, linkage.NewMonth(2024, time.August))
	if err != nil {
		t.Fatalf("ProjectRent: %v", err)
	}
	if !proj.IndexMonthUsed.Equal(linkage.NewMonth(2024, time.July)) {
		t.Errorf("index month = %v, want 2024-07", proj.IndexMonthUsed)
	}
	if !proj.Amount.Equal(dec("5250")) {
		t.Errorf("amount = %s, want 5250", proj.Amount)
	}

	// Projecting July itself in known mode reaches back to June.
	proj, err = pr.ProjectRent(context.Background(), rent5000(), p, linkage.NewMonth(2024, time.July))
	if err != nil {
		t.Fatalf("ProjectRent: %v", err)
	}
	if !proj.IndexMonthUsed.Equal(linkage.NewMonth(2024, time.June)) {
		t.Errorf("index month = %v, want 2024-06", proj.IndexMonthUsed)
	}
}

func TestProjectRent_RespectOfUnpublishedMonthIsPending(t *testing.T) {
	// GIVEN: Series ends at July 2024
	// WHEN: Projecting December 2024 in respect-of mode
	// THEN: Typed pending error, distinguishable from missing data

	pr := linkage.NewProjector(newCPIProvider())

	_, err := pr.ProjectRent(context.Background(), rent5000(), cpiPolicy(), linkage.NewMonth(2024, time.December))
	if !linkage.IsPending(err) {
		t.Fatalf("expected pending error, got %v", err)
	}
	if !linkage.IsRetryable(err) {
		t.Error("pending publications should read as retryable")
	}
}

func TestProjectRent_MissingBaseMonthIsNotFound(t *testing.T) {
	// A base month before the series began is a data gap, not a pending
	// publication.
	pr := linkage.NewProjector(newCPIProvider())
	p := cpiPolicy()
	p.BaseMonth = linkage.NewMonth(2020, time.January)

	_, err := pr.ProjectRent(context.Background(), rent5000(), p, linkage.NewMonth(2024, time.July))
	if !linkage.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestProjectRent_ManualBaseValueWins(t *testing.T) {
	// GIVEN: Contract quotes base index 100, series says 105 for that month
	// WHEN: Projecting July 2024
	// THEN: The quoted figure anchors the calculation

	pr := linkage.NewProjector(newCPIProvider())
	p := cpiPolicy()
	p.BaseValue = decPtr("100")

	proj, err := pr.ProjectRent(context.Background(), rent5000(), p, linkage.NewMonth(2024, time.July))
	if err != nil {
		t.Fatalf("ProjectRent: %v", err)
	}
	// 5000 * 110.25/100
	if !proj.Amount.Equal(dec("5512.5")) {
		t.Errorf("amount = %s, want 5512.5", proj.Amount)
	}
	if !proj.BaseIndexValue.Equal(dec("100")) {
		t.Errorf("base index = %s, want 100", proj.BaseIndexValue)
	}
}

func TestProjectRent_NotLinkedReturnsScheduleRent(t *testing.T) {
	pr := linkage.NewProjector(store.NewMemory())

	proj, err := pr.ProjectRent(context.Background(), rent5000(), linkage.Policy{Type: linkage.IndexNone}, linkage.NewMonth(2024, time.July))
	if err != nil {
		t.Fatalf("ProjectRent: %v", err)
	}
	if !proj.Amount.Equal(dec("5000")) {
		t.Errorf("amount = %s, want 5000", proj.Amount)
	}
	if !proj.Coefficient.Value.Equal(dec("1")) {
		t.Errorf("coefficient = %s, want 1", proj.Coefficient.Value)
	}
}

// =============================================================================
// BASE-YEAR CHAINING
// =============================================================================

func TestProjectRent_ChainsAcrossBaseTransition(t *testing.T) {
	// GIVEN: CBS rebased the series in January 2024 (values halved, chain
	//        factor 2); contract anchored before the rebase at quoted 100
	// WHEN: Projecting March 2024 against the rebased value 55
	// THEN: Chained target is 110, so the rent rises 10%

	m := store.NewMemory()
	m.Put(linkage.IndexCPI, linkage.NewMonth(2024, time.March), dec("55"))
	m.PutBase(linkage.IndexBase{
		Type:        linkage.IndexCPI,
		Start:       linkage.NewMonth(2024, time.January),
		ChainFactor: dec("2"),
		Description: "2024 rebase",
	})

	pr := linkage.NewProjector(m)
	p := linkage.Policy{
		Type:      linkage.IndexCPI,
		BaseMonth: linkage.NewMonth(2023, time.June),
		BaseValue: decPtr("100"),
		Timing:    linkage.TimingInRespectOf,
	}

	proj, err := pr.ProjectRent(context.Background(), rent5000(), p, linkage.NewMonth(2024, time.March))
	if err != nil {
		t.Fatalf("ProjectRent: %v", err)
	}
	if !proj.ChainFactorUsed.Equal(dec("2")) {
		t.Errorf("chain factor = %s, want 2", proj.ChainFactorUsed)
	}
	if !proj.Amount.Equal(dec("5500")) {
		t.Errorf("amount = %s, want 5500", proj.Amount)
	}
}

// =============================================================================
// CURRENCY LINKAGE
// =============================================================================

func TestProjectRent_CurrencyHasNoPublicationLag(t *testing.T) {
	// GIVEN: USD rate 3.5 -> 3.7; rates are observed same-month
	// WHEN: Projecting July 2024 in known mode
	// THEN: July's own rate applies

	m := store.NewMemory()
	m.Put(linkage.IndexUSD, linkage.NewMonth(2024, time.June), dec("3.6"))
	m.Put(linkage.IndexUSD, linkage.NewMonth(2024, time.July), dec("3.7"))

	pr := linkage.NewProjector(m)
	p := linkage.Policy{
		Type:      linkage.IndexUSD,
		BaseMonth: linkage.NewMonth(2024, time.January),
		BaseValue: decPtr("3.5"),
		Timing:    linkage.TimingKnown,
	}

	proj, err := pr.ProjectRent(context.Background(), rent5000(), p, linkage.NewMonth(2024, time.July))
	if err != nil {
		t.Fatalf("ProjectRent: %v", err)
	}
	if !proj.IndexMonthUsed.Equal(linkage.NewMonth(2024, time.July)) {
		t.Errorf("index month = %v, want 2024-07 (no lag)", proj.IndexMonthUsed)
	}
	// 5000 * 3.7/3.5 = 5285.714... rounded to 5285.71
	if !proj.Amount.Equal(dec("5285.71")) {
		t.Errorf("amount = %s, want 5285.71", proj.Amount)
	}
}
