package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus is the display label derived from a medicine's quantity.
type StockStatus string

const (
	StockUnknown StockStatus = "Unknown"
	StockLow     StockStatus = "Low Stock"
	StockMedium  StockStatus = "Medium Stock"
	StockIn      StockStatus = "In Stock"
)

const (
	// LowStockThreshold is shared by status classification and low-stock alerts.
	LowStockThreshold    int64 = 5
	MediumStockThreshold int64 = 20
)

// ClassifyStock maps a quantity to its status label. A nil quantity is unknown.
func ClassifyStock(quantity *int64) StockStatus {
	if quantity == nil {
		return StockUnknown
	}
	switch q := *quantity; {
	case q <= LowStockThreshold:
		return StockLow
	case q <= MediumStockThreshold:
		return StockMedium
	default:
		return StockIn
	}
}

// Valid reports whether s is one of the known labels.
func (s StockStatus) Valid() bool {
	switch s {
	case StockUnknown, StockLow, StockMedium, StockIn:
		return true
	}
	return false
}

type Medicine struct {
	ID          string          `db:"id" json:"id" validate:"required"`
	Name        string          `db:"name" json:"name" validate:"required"`
	Description string          `db:"description" json:"description"`
	Category    string          `db:"category" json:"category"`
	Price       decimal.Decimal `db:"price" json:"price" validate:"min=0"`
	Quantity    int64           `db:"quantity" json:"quantity" validate:"min=0"`
	Status      StockStatus     `db:"status" json:"status"`
	ImageID     *string         `db:"image_id" json:"image_id,omitempty"`
	Version     int64           `db:"version" json:"version"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// Normalize recomputes the derived status. Every write path calls it so the
// stored status cannot drift from the quantity.
func (m *Medicine) Normalize() {
	q := m.Quantity
	m.Status = ClassifyStock(&q)
}

// MedicineInput is the writable part of a medicine record.
type MedicineInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Category    string          `json:"category" validate:"max=100"`
	Price       decimal.Decimal `json:"price" validate:"min=0"`
	Quantity    int64           `json:"quantity" validate:"min=0"`
}

// MedicineQuery holds the list predicates the catalog supports.
type MedicineQuery struct {
	Search      string
	Category    string
	Status      StockStatus
	MinQuantity *int64
	MaxQuantity *int64
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	OrderBy     string
	Descending  bool
	Limit       int
	Offset      int
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Page clamps Limit and Offset to the supported range.
func (q *MedicineQuery) Page() {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}
