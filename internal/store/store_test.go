package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/m/domain"
	"pharmastock/m/internal/database"
	"pharmastock/m/internal/migrations"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Run(db))
	return New(db)
}

var now = time.Date(2026, 3, 11, 9, 30, 0, 123456000, time.UTC)

func newMedicine(id, name, category string, quantity int64, price string) domain.Medicine {
	m := domain.Medicine{
		ID:        id,
		Name:      name,
		Category:  category,
		Price:     decimal.RequireFromString(price),
		Quantity:  quantity,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.Normalize()
	return m
}

func saleEntry(id string, m domain.Medicine, prev int64, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:               id,
		MedicineID:       m.ID,
		MedicineName:     m.Name,
		Type:             domain.TransactionSale,
		QuantityChanged:  m.Quantity - prev,
		PreviousQuantity: prev,
		NewQuantity:      m.Quantity,
		Timestamp:        at,
	}
}

func TestInsertAndGetMedicine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newMedicine("m1", "Aspirin", "Analgesic", 12, "3.25")
	opening := &domain.Transaction{ID: "t0", MedicineID: "m1", MedicineName: "Aspirin", Type: domain.TransactionRestock,
		QuantityChanged: 12, NewQuantity: 12, Timestamp: now, Notes: "Initial stock"}
	require.NoError(t, s.InsertMedicine(ctx, m, opening))

	got, err := s.Medicine(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", got.Name)
	assert.True(t, decimal.RequireFromString("3.25").Equal(got.Price))
	assert.Equal(t, domain.StockMedium, got.Status)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, now.Equal(got.CreatedAt))

	entries, err := s.Transactions(ctx, domain.TransactionQuery{MedicineID: "m1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Initial stock", entries[0].Notes)

	err = s.InsertMedicine(ctx, m, nil)
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = s.Medicine(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveMedicineVersionCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newMedicine("m1", "Aspirin", "", 8, "1")
	require.NoError(t, s.InsertMedicine(ctx, m, nil))

	next := m
	next.Quantity = 3
	next.Normalize()
	require.NoError(t, s.SaveMedicine(ctx, next, 1, saleEntry("t1", next, 8, now)))

	// A second writer that read version 1 loses.
	stale := m
	stale.Quantity = 6
	stale.Normalize()
	err := s.SaveMedicine(ctx, stale, 1, saleEntry("t2", stale, 8, now))
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := s.Medicine(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Quantity)
	assert.Equal(t, domain.StockLow, got.Status)
	assert.Equal(t, int64(2), got.Version)

	entries, err := s.Transactions(ctx, domain.TransactionQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].ID)

	missing := newMedicine("nope", "Ghost", "", 1, "1")
	assert.ErrorIs(t, s.SaveMedicine(ctx, missing, 1, nil), domain.ErrNotFound)
}

func TestSaveMedicineRollsBackOnLedgerFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newMedicine("m1", "Aspirin", "", 8, "1")
	require.NoError(t, s.InsertMedicine(ctx, m, saleEntry("dup", m, 0, now)))

	next := m
	next.Quantity = 5
	next.Normalize()
	// Reusing the ledger id makes the append fail after the update ran.
	err := s.SaveMedicine(ctx, next, 1, saleEntry("dup", next, 8, now))
	require.Error(t, err)

	got, err := s.Medicine(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Quantity)
	assert.Equal(t, int64(1), got.Version)
}

func TestListMedicines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, m := range []domain.Medicine{
		newMedicine("m1", "Aspirin", "Analgesic", 3, "2.00"),
		newMedicine("m2", "Amoxicillin", "Antibiotic", 15, "6.75"),
		newMedicine("m3", "Brufen", "Analgesic", 40, "2.50"),
		newMedicine("m4", "Cetirizine", "Allergy", 0, "1.80"),
	} {
		require.NoError(t, s.InsertMedicine(ctx, m, nil))
	}

	ids := func(ms []domain.Medicine) []string {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.ID
		}
		return out
	}
	minPrice := decimal.RequireFromString("2.00")
	maxQty := int64(20)

	tests := []struct {
		name  string
		q     domain.MedicineQuery
		want  []string
		total int
	}{
		{"all by name", domain.MedicineQuery{}, []string{"m2", "m1", "m3", "m4"}, 4},
		{"search is case-insensitive", domain.MedicineQuery{Search: "AM"}, []string{"m2"}, 1},
		{"category", domain.MedicineQuery{Category: "Analgesic"}, []string{"m1", "m3"}, 2},
		{"low stock band", domain.MedicineQuery{Status: domain.StockLow}, []string{"m1", "m4"}, 2},
		{"medium stock band", domain.MedicineQuery{Status: domain.StockMedium}, []string{"m2"}, 1},
		{"price and quantity", domain.MedicineQuery{MinPrice: &minPrice, MaxQuantity: &maxQty}, []string{"m2", "m1"}, 2},
		{"quantity descending", domain.MedicineQuery{OrderBy: "quantity", Descending: true}, []string{"m3", "m2", "m1", "m4"}, 4},
		{"paged", domain.MedicineQuery{Limit: 2, Offset: 2}, []string{"m3", "m4"}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListMedicines(ctx, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, tt.total, total)
		})
	}

	_, _, err := s.ListMedicines(ctx, domain.MedicineQuery{OrderBy: "password"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	exists, err := s.MedicineExistsByName(ctx, "Brufen")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTransactionsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := newMedicine("m1", "Aspirin", "", 100, "1")
	require.NoError(t, s.InsertMedicine(ctx, m, nil))

	cur := m
	for i := 0; i < 4; i++ {
		next := cur
		next.Quantity--
		next.Normalize()
		at := now.AddDate(0, 0, -i)
		require.NoError(t, s.SaveMedicine(ctx, next, cur.Version, saleEntry(fmt.Sprintf("t%d", i), next, cur.Quantity, at)))
		next.Version = cur.Version + 1
		cur = next
	}

	all, err := s.Transactions(ctx, domain.TransactionQuery{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "t0", all[0].ID)
	assert.True(t, now.Equal(all[0].Timestamp))

	since := now.AddDate(0, 0, -1).Add(-time.Minute)
	recent, err := s.Transactions(ctx, domain.TransactionQuery{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	capped, err := s.Transactions(ctx, domain.TransactionQuery{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, capped, 3)

	restocks, err := s.Transactions(ctx, domain.TransactionQuery{Type: domain.TransactionRestock})
	require.NoError(t, err)
	assert.Empty(t, restocks)
}

func TestMalformedRowsAreRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`INSERT INTO medicines (id, name, price, quantity, status, created_at, updated_at)
		VALUES ('bad', '', '1.00', 4, 'Low Stock', '2026-03-11T09:00:00.000000Z', '2026-03-11T09:00:00.000000Z')`)
	require.NoError(t, err)
	_, err = s.Medicine(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrMalformed)

	_, err = s.db.Exec(`INSERT INTO medicines (id, name, price, quantity, status, created_at, updated_at)
		VALUES ('neg', 'Neg', '-2.00', 4, 'Low Stock', '2026-03-11T09:00:00.000000Z', '2026-03-11T09:00:00.000000Z')`)
	require.NoError(t, err)
	_, err = s.Medicine(ctx, "neg")
	assert.ErrorIs(t, err, domain.ErrMalformed)

	_, err = s.db.Exec(`INSERT INTO transactions (id, medicine_id, medicine_name, transaction_type, quantity_changed, previous_quantity, new_quantity, timestamp)
		VALUES ('x', 'm1', 'Aspirin', 'refund', 1, 0, 1, '2026-03-11T09:00:00.000000Z')`)
	require.NoError(t, err)
	_, err = s.Transactions(ctx, domain.TransactionQuery{})
	assert.ErrorIs(t, err, domain.ErrMalformed)
}

func TestStoredStatusIsRecomputed(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec(`INSERT INTO medicines (id, name, price, quantity, status, created_at, updated_at)
		VALUES ('m1', 'Aspirin', '1.00', 40, 'Low Stock', '2026-03-11T09:00:00.000000Z', '2026-03-11T09:00:00.000000Z')`)
	require.NoError(t, err)

	got, err := s.Medicine(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.StockIn, got.Status)
}

func TestAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := domain.Account{ID: "a1", Username: "sam", Email: "sam@example.com", Password: "hash", Role: domain.RoleOwner, CreatedAt: now}
	require.NoError(t, s.CreateAccount(ctx, a))

	got, err := s.AccountByEmail(ctx, "SAM@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	a.ID = "a2"
	assert.ErrorIs(t, s.CreateAccount(ctx, a), domain.ErrDuplicate)

	_, err = s.AccountByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateImage(ctx, domain.Image{ID: "i1", Filename: "box.png", ContentType: "image/png", Size: 42, CreatedAt: now}))

	img, err := s.Image(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), img.Size)

	_, err = s.Image(ctx, "i2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
