package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pharmastock/m/domain"
)

const transactionColumns = `id, medicine_id, medicine_name, transaction_type, quantity_changed, previous_quantity, new_quantity, timestamp, notes`

// maxTransactionPage bounds a single ledger read.
const maxTransactionPage = 5000

type transactionRow struct {
	ID               string         `db:"id"`
	MedicineID       string         `db:"medicine_id"`
	MedicineName     string         `db:"medicine_name"`
	Type             string         `db:"transaction_type"`
	QuantityChanged  int64          `db:"quantity_changed"`
	PreviousQuantity int64          `db:"previous_quantity"`
	NewQuantity      int64          `db:"new_quantity"`
	Timestamp        timestamp      `db:"timestamp"`
	Notes            sql.NullString `db:"notes"`
}

func (r transactionRow) toDomain() (domain.Transaction, error) {
	typ, err := domain.ParseTransactionType(r.Type)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: %w", r.ID, err)
	}
	if r.PreviousQuantity < 0 || r.NewQuantity < 0 {
		return domain.Transaction{}, fmt.Errorf("%w: transaction %s has negative stock snapshot", domain.ErrMalformed, r.ID)
	}
	return domain.Transaction{
		ID:               r.ID,
		MedicineID:       r.MedicineID,
		MedicineName:     r.MedicineName,
		Type:             typ,
		QuantityChanged:  r.QuantityChanged,
		PreviousQuantity: r.PreviousQuantity,
		NewQuantity:      r.NewQuantity,
		Timestamp:        r.Timestamp.Time(),
		Notes:            r.Notes.String,
	}, nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, t domain.Transaction) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.MedicineID, t.MedicineName, string(t.Type), t.QuantityChanged,
		t.PreviousQuantity, t.NewQuantity, timestamp(t.Timestamp), t.Notes)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// Transactions reads ledger entries newest first. A Limit of zero or less
// means maxTransactionPage.
func (s *Store) Transactions(ctx context.Context, q domain.TransactionQuery) ([]domain.Transaction, error) {
	var w where
	if q.MedicineID != "" {
		w.add("medicine_id = ?", q.MedicineID)
	}
	if q.Type != "" {
		w.add("transaction_type = ?", string(q.Type))
	}
	if q.Since != nil {
		w.add("timestamp >= ?", timestamp(*q.Since))
	}
	if q.Until != nil {
		w.add("timestamp <= ?", timestamp(*q.Until))
	}
	limit := q.Limit
	if limit <= 0 || limit > maxTransactionPage {
		limit = maxTransactionPage
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions` + w.String() + ` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
	args := append(append([]interface{}{}, w.args...), limit, offset)

	var rows []transactionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
