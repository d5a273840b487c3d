package store

import (
	"context"
	"fmt"
	"strings"

	"pharmastock/m/domain"
)

type accountRow struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	Role      string    `db:"role"`
	CreatedAt timestamp `db:"created_at"`
}

func (r accountRow) toDomain() (domain.Account, error) {
	if r.ID == "" || r.Email == "" || r.Password == "" {
		return domain.Account{}, fmt.Errorf("%w: account %q incomplete", domain.ErrMalformed, r.ID)
	}
	if r.Role != domain.RoleOwner && r.Role != domain.RoleEmployee {
		return domain.Account{}, fmt.Errorf("%w: account %s has unknown role %q", domain.ErrMalformed, r.ID, r.Role)
	}
	return domain.Account{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		Role:      r.Role,
		CreatedAt: r.CreatedAt.Time(),
	}, nil
}

// CreateAccount inserts an account. Email must already be normalized.
func (s *Store) CreateAccount(ctx context.Context, a domain.Account) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO accounts (id, username, email, password, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		a.ID, a.Username, a.Email, a.Password, a.Role, timestamp(a.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("email %s: %w", a.Email, domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *Store) AccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.account(ctx, `email = ?`, strings.ToLower(email))
}

func (s *Store) AccountByID(ctx context.Context, id string) (domain.Account, error) {
	return s.account(ctx, `id = ?`, id)
}

func (s *Store) account(ctx context.Context, clause string, arg interface{}) (domain.Account, error) {
	var row accountRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, username, email, password, role, created_at FROM accounts WHERE `+clause), arg)
	if isNoRows(err) {
		return domain.Account{}, fmt.Errorf("account: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return row.toDomain()
}
