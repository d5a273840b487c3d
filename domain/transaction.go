package domain

import (
	"fmt"
	"time"
)

type TransactionType string

const (
	TransactionSale    TransactionType = "sale"
	TransactionRestock TransactionType = "restock"
	TransactionOther   TransactionType = "other"
)

// ParseTransactionType rejects anything outside the known set.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TransactionSale, TransactionRestock, TransactionOther:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown transaction type %q", ErrMalformed, s)
}

// Transaction is one immutable ledger entry.
type Transaction struct {
	ID               string          `db:"id" json:"id"`
	MedicineID       string          `db:"medicine_id" json:"medicine_id"`
	MedicineName     string          `db:"medicine_name" json:"medicine_name"`
	Type             TransactionType `db:"transaction_type" json:"transaction_type"`
	QuantityChanged  int64           `db:"quantity_changed" json:"quantity_changed"`
	PreviousQuantity int64           `db:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int64           `db:"new_quantity" json:"new_quantity"`
	Timestamp        time.Time       `db:"timestamp" json:"timestamp"`
	Notes            string          `db:"notes" json:"notes"`
}

// TransactionQuery filters a ledger read. Since and Until are inclusive.
type TransactionQuery struct {
	MedicineID string
	Type       TransactionType
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// Magnitude is the absolute number of units moved.
func (t Transaction) Magnitude() int64 {
	if t.QuantityChanged < 0 {
		return -t.QuantityChanged
	}
	return t.QuantityChanged
}

// SaleInput requests a stock decrement for one medicine.
type SaleInput struct {
	MedicineID string `json:"-" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"gt=0"`
	Notes      string `json:"notes" validate:"max=500"`
}

// RestockInput requests a stock increment for one medicine.
type RestockInput struct {
	MedicineID string `json:"-" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"gt=0"`
	Notes      string `json:"notes" validate:"max=500"`
}
