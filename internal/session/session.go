// Package session holds the explicit login session: created on login,
// resolved on every authenticated request, destroyed on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pharmastock/m/domain"
)

// Session is the state of one logged-in client.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HasRole reports whether the session's role is one of allowed.
func (s *Session) HasRole(allowed ...string) bool {
	for _, r := range allowed {
		if s.Role == r {
			return true
		}
	}
	return false
}

// Store keeps live sessions until they expire or are deleted.
type Store interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

type claims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// Manager issues and resolves bearer tokens backed by a Store.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Begin starts a session for account and returns it with its signed token.
func (m *Manager) Begin(ctx context.Context, account domain.Account) (Session, string, error) {
	now := m.now().UTC()
	s := Session{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		AccountID: account.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return Session{}, "", fmt.Errorf("session: sign: %w", err)
	}
	if err := m.store.Put(ctx, s); err != nil {
		return Session{}, "", fmt.Errorf("session: store: %w", err)
	}
	return s, signed, nil
}

// Resolve validates token and loads its live session. Expired tokens and
// sessions that were ended report domain.ErrSessionExpired.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, domain.ErrSessionExpired
	}
	if err != nil || !parsed.Valid {
		return nil, domain.ErrUnauthorized
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	s, err := m.store.Get(ctx, c.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	if s.AccountID != c.AccountID {
		return nil, domain.ErrUnauthorized
	}
	return &s, nil
}

// End deletes the session so its token stops resolving.
func (m *Manager) End(ctx context.Context, s *Session) error {
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}
