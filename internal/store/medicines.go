package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"pharmastock/m/domain"
)

const medicineColumns = `id, name, description, category, price, quantity, status, image_id, version, created_at, updated_at`

type medicineRow struct {
	ID          string          `db:"id"`
	Name        string          `db:"name"`
	Description sql.NullString  `db:"description"`
	Category    sql.NullString  `db:"category"`
	Price       decimal.Decimal `db:"price"`
	Quantity    sql.NullInt64   `db:"quantity"`
	Status      string          `db:"status"`
	ImageID     sql.NullString  `db:"image_id"`
	Version     int64           `db:"version"`
	CreatedAt   timestamp       `db:"created_at"`
	UpdatedAt   timestamp       `db:"updated_at"`
}

func (r medicineRow) toDomain() (domain.Medicine, error) {
	if r.ID == "" || strings.TrimSpace(r.Name) == "" {
		return domain.Medicine{}, fmt.Errorf("%w: medicine %q missing id or name", domain.ErrMalformed, r.ID)
	}
	if !r.Quantity.Valid || r.Quantity.Int64 < 0 {
		return domain.Medicine{}, fmt.Errorf("%w: medicine %s has invalid quantity", domain.ErrMalformed, r.ID)
	}
	if r.Price.IsNegative() {
		return domain.Medicine{}, fmt.Errorf("%w: medicine %s has negative price", domain.ErrMalformed, r.ID)
	}
	m := domain.Medicine{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		Category:    r.Category.String,
		Price:       r.Price,
		Quantity:    r.Quantity.Int64,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt.Time(),
		UpdatedAt:   r.UpdatedAt.Time(),
	}
	if r.ImageID.Valid {
		id := r.ImageID.String
		m.ImageID = &id
	}
	// The stored label is advisory; the quantity decides.
	m.Normalize()
	return m, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// InsertMedicine stores a new record and, when entry is non-nil, its opening
// ledger entry in the same transaction.
func (s *Store) InsertMedicine(ctx context.Context, m domain.Medicine, entry *domain.Transaction) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO medicines (`+medicineColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			m.ID, m.Name, m.Description, m.Category, m.Price.String(), m.Quantity, string(m.Status),
			nullString(m.ImageID), m.Version, timestamp(m.CreatedAt), timestamp(m.UpdatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("medicine %s: %w", m.ID, domain.ErrDuplicate)
			}
			return fmt.Errorf("insert medicine: %w", err)
		}
		if entry != nil {
			return insertTransaction(ctx, tx, *entry)
		}
		return nil
	})
}

// SaveMedicine overwrites a record only if its stored version still equals
// expectedVersion, bumping the version. A non-nil entry is appended to the
// ledger in the same transaction so the catalog and ledger move together.
func (s *Store) SaveMedicine(ctx context.Context, m domain.Medicine, expectedVersion int64, entry *domain.Transaction) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE medicines
                SET name = ?, description = ?, category = ?, price = ?, quantity = ?, status = ?, image_id = ?, version = version + 1, updated_at = ?
                WHERE id = ? AND version = ?`),
			m.Name, m.Description, m.Category, m.Price.String(), m.Quantity, string(m.Status),
			nullString(m.ImageID), timestamp(m.UpdatedAt), m.ID, expectedVersion)
		if err != nil {
			return fmt.Errorf("update medicine: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update medicine: %w", err)
		}
		if n == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(1) > 0 FROM medicines WHERE id = ?`), m.ID); err != nil {
				return fmt.Errorf("update medicine: %w", err)
			}
			if !exists {
				return fmt.Errorf("medicine %s: %w", m.ID, domain.ErrNotFound)
			}
			return fmt.Errorf("medicine %s: %w", m.ID, domain.ErrConflict)
		}
		if entry != nil {
			return insertTransaction(ctx, tx, *entry)
		}
		return nil
	})
}

// Medicine loads one record by id.
func (s *Store) Medicine(ctx context.Context, id string) (domain.Medicine, error) {
	var row medicineRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+medicineColumns+` FROM medicines WHERE id = ?`), id)
	if isNoRows(err) {
		return domain.Medicine{}, fmt.Errorf("medicine %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Medicine{}, fmt.Errorf("get medicine: %w", err)
	}
	return row.toDomain()
}

var medicineOrder = map[string]string{
	"":           "name",
	"name":       "name",
	"quantity":   "quantity",
	"price":      "CAST(price AS REAL)",
	"updated_at": "updated_at",
	"created_at": "created_at",
}

// ListMedicines applies the catalog query predicates and returns one page
// plus the total number of matching rows.
func (s *Store) ListMedicines(ctx context.Context, q domain.MedicineQuery) ([]domain.Medicine, int, error) {
	q.Page()
	orderExpr, ok := medicineOrder[q.OrderBy]
	if !ok {
		return nil, 0, &domain.ValidationError{Fields: map[string]string{"order_by": "oneof"}}
	}

	var w where
	if search := strings.TrimSpace(q.Search); search != "" {
		w.add("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if q.Category != "" {
		w.add("category = ?", q.Category)
	}
	if q.MinQuantity != nil {
		w.add("quantity >= ?", *q.MinQuantity)
	}
	if q.MaxQuantity != nil {
		w.add("quantity <= ?", *q.MaxQuantity)
	}
	if q.MinPrice != nil {
		w.add("CAST(price AS REAL) >= ?", q.MinPrice.InexactFloat64())
	}
	if q.MaxPrice != nil {
		w.add("CAST(price AS REAL) <= ?", q.MaxPrice.InexactFloat64())
	}
	if q.Status != "" {
		// status is derived from quantity, so filter on the quantity band.
		switch q.Status {
		case domain.StockLow:
			w.add("quantity <= ?", domain.LowStockThreshold)
		case domain.StockMedium:
			w.add("quantity > ? AND quantity <= ?", domain.LowStockThreshold, domain.MediumStockThreshold)
		case domain.StockIn:
			w.add("quantity > ?", domain.MediumStockThreshold)
		default:
			return nil, 0, &domain.ValidationError{Fields: map[string]string{"status": "oneof"}}
		}
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(`SELECT COUNT(*) FROM medicines`+w.String()), w.args...); err != nil {
		return nil, 0, fmt.Errorf("count medicines: %w", err)
	}

	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	query := `SELECT ` + medicineColumns + ` FROM medicines` + w.String() +
		fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT ? OFFSET ?", orderExpr, dir)
	args := append(append([]interface{}{}, w.args...), q.Limit, q.Offset)

	var rows []medicineRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list medicines: %w", err)
	}
	out, err := medicinesFromRows(rows)
	return out, total, err
}

// AllMedicines returns the whole catalog ordered by name.
func (s *Store) AllMedicines(ctx context.Context) ([]domain.Medicine, error) {
	var rows []medicineRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+medicineColumns+` FROM medicines ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return medicinesFromRows(rows)
}

// MedicineExistsByName reports whether a record with this exact name exists.
func (s *Store) MedicineExistsByName(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM medicines WHERE name = ?`), name); err != nil {
		return false, fmt.Errorf("lookup medicine: %w", err)
	}
	return n > 0, nil
}

func medicinesFromRows(rows []medicineRow) ([]domain.Medicine, error) {
	out := make([]domain.Medicine, 0, len(rows))
	for _, row := range rows {
		m, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
