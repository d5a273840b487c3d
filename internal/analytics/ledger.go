// Package analytics derives chart data and stock alerts from ledger entries
// and catalog records. Nothing here writes back to the catalog.
package analytics

import (
	"sort"
	"time"

	"pharmastock/m/domain"
)

// DerivedStock is a medicine's stock as reconstructed from ledger entries.
type DerivedStock struct {
	MedicineID   string `json:"medicine_id"`
	Name         string `json:"name"`
	CurrentStock int64  `json:"current_stock"`

	nameAt time.Time
}

// ReplayStock folds ledger entries into a per-medicine stock total. Sales
// subtract their magnitude; every other type adds its signed change. The sum
// is commutative, so input order does not matter. Entries without a
// medicine id are skipped. The name comes from the newest entry.
func ReplayStock(entries []domain.Transaction) map[string]DerivedStock {
	out := make(map[string]DerivedStock)
	for _, e := range entries {
		if e.MedicineID == "" {
			continue
		}
		d, seen := out[e.MedicineID]
		d.MedicineID = e.MedicineID
		if e.Type == domain.TransactionSale {
			d.CurrentStock -= e.Magnitude()
		} else {
			d.CurrentStock += e.QuantityChanged
		}
		if !seen || e.Timestamp.After(d.nameAt) || (e.Timestamp.Equal(d.nameAt) && e.MedicineName > d.Name) {
			d.Name = e.MedicineName
			d.nameAt = e.Timestamp
		}
		out[e.MedicineID] = d
	}
	for id, d := range out {
		d.nameAt = time.Time{}
		out[id] = d
	}
	return out
}

// Activity is one row of the top-activity ranking.
type Activity struct {
	MedicineID string `json:"medicine_id"`
	Name       string `json:"name"`
	Units      int64  `json:"units"`
}

// DefaultTopN is the size of the dashboard ranking.
const DefaultTopN = 5

// TopActivity groups entries by medicine, sums moved units, and returns the
// n busiest medicines. Ties keep first-appearance order.
func TopActivity(entries []domain.Transaction, n int) []Activity {
	index := make(map[string]int)
	var groups []Activity
	for _, e := range entries {
		if e.MedicineID == "" {
			continue
		}
		i, ok := index[e.MedicineID]
		if !ok {
			i = len(groups)
			index[e.MedicineID] = i
			groups = append(groups, Activity{MedicineID: e.MedicineID, Name: e.MedicineName})
		}
		groups[i].Units += e.Magnitude()
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Units > groups[b].Units })
	if n >= 0 && len(groups) > n {
		groups = groups[:n]
	}
	if groups == nil {
		groups = []Activity{}
	}
	return groups
}

// StockLevel is the common shape low-stock alerting works on, whichever
// source produced it.
type StockLevel struct {
	MedicineID string             `json:"medicine_id"`
	Name       string             `json:"name"`
	Category   string             `json:"category,omitempty"`
	Stock      int64              `json:"stock"`
	Status     domain.StockStatus `json:"status"`
}

// LevelsFromCatalog adapts catalog records.
func LevelsFromCatalog(meds []domain.Medicine) []StockLevel {
	out := make([]StockLevel, 0, len(meds))
	for _, m := range meds {
		out = append(out, StockLevel{MedicineID: m.ID, Name: m.Name, Category: m.Category, Stock: m.Quantity, Status: m.Status})
	}
	return out
}

// LevelsFromDerived adapts a replayed view, ordered by medicine id so the
// result is deterministic.
func LevelsFromDerived(derived map[string]DerivedStock) []StockLevel {
	out := make([]StockLevel, 0, len(derived))
	for _, d := range derived {
		q := d.CurrentStock
		out = append(out, StockLevel{MedicineID: d.MedicineID, Name: d.Name, Stock: q, Status: domain.ClassifyStock(&q)})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].MedicineID < out[b].MedicineID })
	return out
}

// LowStock returns the levels at or below domain.LowStockThreshold, lowest
// stock first.
func LowStock(levels []StockLevel) []StockLevel {
	out := []StockLevel{}
	for _, l := range levels {
		if l.Stock <= domain.LowStockThreshold {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Stock < out[b].Stock })
	return out
}

// CategoryShare is one slice of the category pie chart.
type CategoryShare struct {
	Category string `json:"category"`
	Units    int64  `json:"units"`
	Items    int    `json:"items"`
}

// Uncategorized labels records with an empty category.
const Uncategorized = "Uncategorized"

// CategoryBreakdown totals catalog quantity per category, largest first,
// ties by name.
func CategoryBreakdown(meds []domain.Medicine) []CategoryShare {
	index := make(map[string]int)
	out := []CategoryShare{}
	for _, m := range meds {
		cat := m.Category
		if cat == "" {
			cat = Uncategorized
		}
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, CategoryShare{Category: cat})
		}
		out[i].Units += m.Quantity
		out[i].Items++
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Units != out[b].Units {
			return out[a].Units > out[b].Units
		}
		return out[a].Category < out[b].Category
	})
	return out
}

// Drift is a medicine whose catalog quantity disagrees with the quantity
// replayed from its full ledger history.
type Drift struct {
	MedicineID string `json:"medicine_id"`
	Name       string `json:"name"`
	Catalog    int64  `json:"catalog"`
	Ledger     int64  `json:"ledger"`
}

// Reconcile compares catalog quantities with a replay of the complete
// ledger. Catalog records without any ledger entry count as zero on the
// ledger side. Results are ordered by medicine id.
func Reconcile(meds []domain.Medicine, derived map[string]DerivedStock) []Drift {
	out := []Drift{}
	for _, m := range meds {
		d := derived[m.ID]
		if d.CurrentStock != m.Quantity {
			out = append(out, Drift{MedicineID: m.ID, Name: m.Name, Catalog: m.Quantity, Ledger: d.CurrentStock})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].MedicineID < out[b].MedicineID })
	return out
}
