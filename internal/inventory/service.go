// Package inventory owns the catalog write rules: status derivation on every
// write, and stock movements that update the catalog and append to the
// ledger as one unit.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pharmastock/m/domain"
)

// Repository is the persistence the service needs. SaveMedicine must apply
// the record update and the optional ledger entry atomically, and only when
// the stored version equals expectedVersion.
type Repository interface {
	InsertMedicine(ctx context.Context, m domain.Medicine, entry *domain.Transaction) error
	SaveMedicine(ctx context.Context, m domain.Medicine, expectedVersion int64, entry *domain.Transaction) error
	Medicine(ctx context.Context, id string) (domain.Medicine, error)
	ListMedicines(ctx context.Context, q domain.MedicineQuery) ([]domain.Medicine, int, error)
}

type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

// Create adds a medicine. A positive opening quantity is recorded in the
// ledger as a restock.
func (s *Service) Create(ctx context.Context, in domain.MedicineInput) (domain.Medicine, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := domain.Validate(in); err != nil {
		return domain.Medicine{}, err
	}
	now := s.now()
	m := domain.Medicine{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price,
		Quantity:    in.Quantity,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.Normalize()

	var entry *domain.Transaction
	if m.Quantity > 0 {
		entry = s.entry(m, domain.TransactionRestock, m.Quantity, 0, m.Quantity, "Initial stock", now)
	}
	if err := s.repo.InsertMedicine(ctx, m, entry); err != nil {
		return domain.Medicine{}, err
	}
	log.Info().Str("medicine_id", m.ID).Int64("quantity", m.Quantity).Msg("medicine created")
	return m, nil
}

// Update overwrites the writable fields. A quantity change is logged as an
// "other" ledger entry in the same write.
func (s *Service) Update(ctx context.Context, id string, in domain.MedicineInput) (domain.Medicine, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := domain.Validate(in); err != nil {
		return domain.Medicine{}, err
	}
	current, err := s.repo.Medicine(ctx, id)
	if err != nil {
		return domain.Medicine{}, err
	}
	now := s.now()
	next := current
	next.Name = in.Name
	next.Description = in.Description
	next.Category = strings.TrimSpace(in.Category)
	next.Price = in.Price
	next.Quantity = in.Quantity
	next.UpdatedAt = now
	next.Normalize()

	var entry *domain.Transaction
	if delta := next.Quantity - current.Quantity; delta != 0 {
		entry = s.entry(next, domain.TransactionOther, delta, current.Quantity, next.Quantity, "Manual adjustment", now)
	}
	if err := s.repo.SaveMedicine(ctx, next, current.Version, entry); err != nil {
		return domain.Medicine{}, err
	}
	next.Version = current.Version + 1
	return next, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Medicine, error) {
	return s.repo.Medicine(ctx, id)
}

func (s *Service) List(ctx context.Context, q domain.MedicineQuery) ([]domain.Medicine, int, error) {
	return s.repo.ListMedicines(ctx, q)
}

// AttachImage points the medicine at an uploaded image.
func (s *Service) AttachImage(ctx context.Context, id, imageID string) (domain.Medicine, error) {
	current, err := s.repo.Medicine(ctx, id)
	if err != nil {
		return domain.Medicine{}, err
	}
	next := current
	next.ImageID = &imageID
	next.UpdatedAt = s.now()
	next.Normalize()
	if err := s.repo.SaveMedicine(ctx, next, current.Version, nil); err != nil {
		return domain.Medicine{}, err
	}
	next.Version = current.Version + 1
	return next, nil
}

// Movement is the outcome of a sale or restock.
type Movement struct {
	Medicine    domain.Medicine    `json:"medicine"`
	Transaction domain.Transaction `json:"transaction"`
}

// Sell decrements stock and appends a sale entry. Validation and stock
// checks happen before any write; a concurrent change to the same record
// between read and write yields domain.ErrConflict and writes nothing.
func (s *Service) Sell(ctx context.Context, in domain.SaleInput) (Movement, error) {
	if in.Quantity <= 0 {
		return Movement{}, domain.ErrInvalidQuantity
	}
	if err := domain.Validate(in); err != nil {
		return Movement{}, err
	}
	current, err := s.repo.Medicine(ctx, in.MedicineID)
	if err != nil {
		return Movement{}, err
	}
	if current.Quantity < in.Quantity {
		return Movement{}, fmt.Errorf("%w: %d requested, %d available", domain.ErrInsufficientStock, in.Quantity, current.Quantity)
	}
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = fmt.Sprintf("Sold %d %s of %s", in.Quantity, units(in.Quantity), current.Name)
	}
	return s.move(ctx, current, domain.TransactionSale, -in.Quantity, notes)
}

// Restock increments stock and appends a restock entry.
func (s *Service) Restock(ctx context.Context, in domain.RestockInput) (Movement, error) {
	if in.Quantity <= 0 {
		return Movement{}, domain.ErrInvalidQuantity
	}
	if err := domain.Validate(in); err != nil {
		return Movement{}, err
	}
	current, err := s.repo.Medicine(ctx, in.MedicineID)
	if err != nil {
		return Movement{}, err
	}
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = fmt.Sprintf("Restocked %d %s of %s", in.Quantity, units(in.Quantity), current.Name)
	}
	return s.move(ctx, current, domain.TransactionRestock, in.Quantity, notes)
}

func (s *Service) move(ctx context.Context, current domain.Medicine, typ domain.TransactionType, delta int64, notes string) (Movement, error) {
	now := s.now()
	next := current
	next.Quantity = current.Quantity + delta
	next.UpdatedAt = now
	next.Normalize()

	entry := s.entry(next, typ, delta, current.Quantity, next.Quantity, notes, now)
	if err := s.repo.SaveMedicine(ctx, next, current.Version, entry); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Warn().Str("medicine_id", current.ID).Str("transaction_type", string(typ)).Msg("stock movement lost a concurrent update")
		}
		return Movement{}, err
	}
	next.Version = current.Version + 1
	log.Info().
		Str("medicine_id", next.ID).
		Str("transaction_type", string(typ)).
		Int64("previous_quantity", current.Quantity).
		Int64("new_quantity", next.Quantity).
		Msg("stock movement recorded")
	return Movement{Medicine: next, Transaction: *entry}, nil
}

func (s *Service) entry(m domain.Medicine, typ domain.TransactionType, delta, prev, next int64, notes string, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:               s.newID(),
		MedicineID:       m.ID,
		MedicineName:     m.Name,
		Type:             typ,
		QuantityChanged:  delta,
		PreviousQuantity: prev,
		NewQuantity:      next,
		Timestamp:        at,
		Notes:            notes,
	}
}

func units(n int64) string {
	if n == 1 {
		return "unit"
	}
	return "units"
}
