package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pharmastock/m/domain"
)

type Repository interface {
	CreateAccount(ctx context.Context, a domain.Account) error
	AccountByEmail(ctx context.Context, email string) (domain.Account, error)
	AccountByID(ctx context.Context, id string) (domain.Account, error)
}

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=owner employee"`
}

type Service struct {
	repo Repository
	cost int
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := domain.Validate(in); err != nil {
		return domain.Account{}, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.Account{}, err
	}
	a := domain.Account{
		ID:        uuid.NewString(),
		Username:  in.Username,
		Email:     in.Email,
		Password:  string(hashed),
		Role:      in.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// Authenticate checks email and password. Unknown emails and wrong
// passwords both report domain.ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.Account, error) {
	a, err := s.repo.AccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Account{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Account{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) != nil {
		return domain.Account{}, domain.ErrUnauthorized
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Account, error) {
	return s.repo.AccountByID(ctx, id)
}
