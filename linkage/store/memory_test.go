package store_test

import (
	"testing"

	"github.com/rentmate/linkage-engine/linkage"
	"github.com/rentmate/linkage-engine/linkage/store"
)

func TestMemory_GranularityIsMonthlyForAllSeries(t *testing.T) {
	// The memory provider keys every series by month, currencies included,
	// so it must not advertise a finer cadence than it can serve.
	m := store.NewMemory()

	for _, typ := range []linkage.IndexType{linkage.IndexCPI, linkage.IndexHousing,
		linkage.IndexConstruction, linkage.IndexUSD, linkage.IndexEUR} {
		if got := m.Granularity(typ); got != linkage.GranularityMonthly {
			t.Errorf("Granularity(%s) = %v, want monthly", typ, got)
		}
	}
}
