package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/m/domain"
)

var base = time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

func entry(id, name string, typ domain.TransactionType, change int64, at time.Time) domain.Transaction {
	return domain.Transaction{MedicineID: id, MedicineName: name, Type: typ, QuantityChanged: change, Timestamp: at}
}

func TestReplayStock(t *testing.T) {
	entries := []domain.Transaction{
		entry("a", "Aspirin", domain.TransactionRestock, 10, base),
		entry("a", "Aspirin", domain.TransactionSale, -3, base.Add(time.Hour)),
		entry("b", "Brufen", domain.TransactionRestock, 4, base),
		entry("a", "Aspirin 100mg", domain.TransactionOther, -2, base.Add(2*time.Hour)),
		// Sales subtract the magnitude whichever sign was stored.
		entry("b", "Brufen", domain.TransactionSale, 1, base.Add(time.Hour)),
		entry("", "orphan", domain.TransactionRestock, 99, base),
	}

	got := ReplayStock(entries)
	require.Len(t, got, 2)
	assert.Equal(t, DerivedStock{MedicineID: "a", Name: "Aspirin 100mg", CurrentStock: 5}, got["a"])
	assert.Equal(t, DerivedStock{MedicineID: "b", Name: "Brufen", CurrentStock: 3}, got["b"])
}

func TestReplayStockOrderIndependent(t *testing.T) {
	entries := []domain.Transaction{
		entry("a", "Old name", domain.TransactionRestock, 10, base),
		entry("a", "New name", domain.TransactionSale, -4, base.Add(time.Hour)),
		entry("a", "Old name", domain.TransactionOther, 2, base.Add(-time.Hour)),
	}
	reversed := []domain.Transaction{entries[2], entries[1], entries[0]}

	assert.Equal(t, ReplayStock(entries), ReplayStock(reversed))
	assert.Equal(t, int64(8), ReplayStock(entries)["a"].CurrentStock)
	assert.Equal(t, "New name", ReplayStock(reversed)["a"].Name)
}

func TestReplayStockEmpty(t *testing.T) {
	assert.Empty(t, ReplayStock(nil))
}

func TestTopActivity(t *testing.T) {
	entries := []domain.Transaction{
		entry("a", "A", domain.TransactionSale, -3, base),
		entry("b", "B", domain.TransactionRestock, 10, base),
		entry("a", "A", domain.TransactionSale, -2, base),
	}
	got := TopActivity(entries, DefaultTopN)
	assert.Equal(t, []Activity{
		{MedicineID: "b", Name: "B", Units: 10},
		{MedicineID: "a", Name: "A", Units: 5},
	}, got)
}

func TestTopActivityLimitAndTies(t *testing.T) {
	var entries []domain.Transaction
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		entries = append(entries, entry(id, id, domain.TransactionSale, -1, base))
	}
	entries = append(entries, entry("m7", "m7", domain.TransactionSale, -5, base))

	got := TopActivity(entries, DefaultTopN)
	require.Len(t, got, 5)
	assert.Equal(t, "m7", got[0].MedicineID)
	// Equal totals keep first-appearance order.
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, []string{got[1].MedicineID, got[2].MedicineID, got[3].MedicineID, got[4].MedicineID})

	assert.Equal(t, []Activity{}, TopActivity(nil, DefaultTopN))
}

func TestLowStock(t *testing.T) {
	meds := []domain.Medicine{
		{ID: "a", Name: "A", Quantity: 5, Status: domain.StockLow},
		{ID: "b", Name: "B", Quantity: 6, Status: domain.StockMedium},
		{ID: "c", Name: "C", Quantity: 0, Status: domain.StockLow},
		{ID: "d", Name: "D", Quantity: 3, Status: domain.StockLow},
		{ID: "e", Name: "E", Quantity: 0, Status: domain.StockLow},
	}
	got := LowStock(LevelsFromCatalog(meds))
	ids := make([]string, len(got))
	for i, l := range got {
		ids[i] = l.MedicineID
	}
	assert.Equal(t, []string{"c", "e", "d", "a"}, ids)

	assert.NotNil(t, LowStock(nil))
	assert.Empty(t, LowStock(nil))
}

func TestLevelsFromDerived(t *testing.T) {
	got := LevelsFromDerived(map[string]DerivedStock{
		"z": {MedicineID: "z", Name: "Zinc", CurrentStock: 30},
		"a": {MedicineID: "a", Name: "Aspirin", CurrentStock: 2},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].MedicineID)
	assert.Equal(t, domain.StockLow, got[0].Status)
	assert.Equal(t, domain.StockIn, got[1].Status)
}

func TestCategoryBreakdown(t *testing.T) {
	got := CategoryBreakdown([]domain.Medicine{
		{Category: "Analgesic", Quantity: 10},
		{Category: "", Quantity: 10},
		{Category: "Antibiotic", Quantity: 30},
		{Category: "Analgesic", Quantity: 5},
	})
	assert.Equal(t, []CategoryShare{
		{Category: "Antibiotic", Units: 30, Items: 1},
		{Category: "Analgesic", Units: 15, Items: 2},
		{Category: Uncategorized, Units: 10, Items: 1},
	}, got)
}

func TestReconcile(t *testing.T) {
	meds := []domain.Medicine{
		{ID: "b", Name: "Brufen", Quantity: 7},
		{ID: "a", Name: "Aspirin", Quantity: 5},
		{ID: "c", Name: "Cetirizine", Quantity: 0},
	}
	derived := ReplayStock([]domain.Transaction{
		entry("a", "Aspirin", domain.TransactionRestock, 10, base),
		entry("a", "Aspirin", domain.TransactionSale, -5, base),
		entry("b", "Brufen", domain.TransactionRestock, 9, base),
	})

	assert.Equal(t, []Drift{{MedicineID: "b", Name: "Brufen", Catalog: 7, Ledger: 9}}, Reconcile(meds, derived))
	assert.Equal(t, []Drift{}, Reconcile(nil, derived))
}
