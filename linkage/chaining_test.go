package linkage_test

import (
	"testing"
	"time"

	"github.com/rentmate/linkage-engine/linkage"
)

func rebase(year int, mon time.Month, factor string) linkage.IndexBase {
	return linkage.IndexBase{
		Type:        linkage.IndexCPI,
		Start:       linkage.NewMonth(year, mon),
		ChainFactor: dec(factor),
	}
}

func TestChainFactor_NoTransitionsInSpan(t *testing.T) {
	bases := []linkage.IndexBase{rebase(2020, time.January, "1.5")}

	got := linkage.ChainFactor(bases, linkage.IndexCPI,
		linkage.NewMonth(2022, time.January), linkage.NewMonth(2024, time.January))
	if !got.Equal(dec("1")) {
		t.Errorf("factor = %s, want 1 (transition predates the span)", got)
	}
}

func TestChainFactor_SingleTransition(t *testing.T) {
	bases := []linkage.IndexBase{rebase(2024, time.January, "1.637")}

	got := linkage.ChainFactor(bases, linkage.IndexCPI,
		linkage.NewMonth(2023, time.June), linkage.NewMonth(2024, time.June))
	if !got.Equal(dec("1.637")) {
		t.Errorf("factor = %s, want 1.637", got)
	}
}

func TestChainFactor_MultipleTransitionsMultiply(t *testing.T) {
	// A long lease spanning two rebases folds both factors in.
	bases := []linkage.IndexBase{
		rebase(2012, time.January, "1.1"),
		rebase(2024, time.January, "2"),
	}

	got := linkage.ChainFactor(bases, linkage.IndexCPI,
		linkage.NewMonth(2010, time.June), linkage.NewMonth(2024, time.June))
	if !got.Equal(dec("2.2")) {
		t.Errorf("factor = %s, want 2.2", got)
	}
}

func TestChainFactor_TransitionAtBaseMonthExcluded(t *testing.T) {
	// The base value already lives in the base established AT the base
	// month; only transitions strictly after it apply.
	bases := []linkage.IndexBase{rebase(2024, time.January, "2")}

	got := linkage.ChainFactor(bases, linkage.IndexCPI,
		linkage.NewMonth(2024, time.January), linkage.NewMonth(2024, time.June))
	if !got.Equal(dec("1")) {
		t.Errorf("factor = %s, want 1", got)
	}
}

func TestChainFactor_IgnoresNonPositiveFactors(t *testing.T) {
	bases := []linkage.IndexBase{
		rebase(2024, time.January, "0"),
		rebase(2024, time.March, "1.5"),
	}

	got := linkage.ChainFactor(bases, linkage.IndexCPI,
		linkage.NewMonth(2023, time.June), linkage.NewMonth(2024, time.June))
	if !got.Equal(dec("1.5")) {
		t.Errorf("factor = %s, want 1.5", got)
	}
}
