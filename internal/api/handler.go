package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"pharmastock/m/domain"
	"pharmastock/m/internal/account"
	"pharmastock/m/internal/analytics"
	"pharmastock/m/internal/filestore"
	"pharmastock/m/internal/inventory"
	"pharmastock/m/internal/session"
)

type Catalog interface {
	Create(ctx context.Context, in domain.MedicineInput) (domain.Medicine, error)
	Update(ctx context.Context, id string, in domain.MedicineInput) (domain.Medicine, error)
	Get(ctx context.Context, id string) (domain.Medicine, error)
	List(ctx context.Context, q domain.MedicineQuery) ([]domain.Medicine, int, error)
	AttachImage(ctx context.Context, id, imageID string) (domain.Medicine, error)
	Sell(ctx context.Context, in domain.SaleInput) (inventory.Movement, error)
	Restock(ctx context.Context, in domain.RestockInput) (inventory.Movement, error)
}

type Ledger interface {
	Transactions(ctx context.Context, q domain.TransactionQuery) ([]domain.Transaction, error)
}

type Analytics interface {
	Dashboard(ctx context.Context, w analytics.Window) (analytics.Dashboard, error)
	LowStockAlerts(ctx context.Context) ([]analytics.StockLevel, error)
	Reconcile(ctx context.Context) (analytics.Reconciliation, error)
}

type Accounts interface {
	Register(ctx context.Context, in account.RegisterInput) (domain.Account, error)
	Authenticate(ctx context.Context, email, password string) (domain.Account, error)
	Get(ctx context.Context, id string) (domain.Account, error)
}

type Sessions interface {
	Begin(ctx context.Context, a domain.Account) (session.Session, string, error)
	Resolve(ctx context.Context, token string) (*session.Session, error)
	End(ctx context.Context, s *session.Session) error
}

type Images interface {
	Save(ctx context.Context, r io.Reader, filename, declaredType string) (domain.Image, error)
	Open(ctx context.Context, id string) (domain.Image, io.ReadCloser, error)
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Catalog        Catalog
	Ledger         Ledger
	Analytics      Analytics
	Accounts       Accounts
	Sessions       Sessions
	Images         Images
	Health         Pinger
	AllowedOrigins []string
	ReportTitle    string
	// Location anchors calendar windows on the transactions listing.
	Location *time.Location
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	Deps
}

// New constructs a Handler.
func New(deps Deps) *Handler {
	if deps.ReportTitle == "" {
		deps.ReportTitle = "Pharmacy stock report"
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}
	return &Handler{Deps: deps}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/sessions", h.createSession)
		r.Delete("/sessions/current", h.authed(h.deleteSession))
		r.Get("/account", h.authed(h.currentAccount))
	})

	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", h.authed(h.listMedicines))
		r.Post("/", h.authed(h.createMedicine, domain.RoleOwner))
		r.Get("/{id}", h.authed(h.getMedicine))
		r.Put("/{id}", h.authed(h.updateMedicine, domain.RoleOwner))
		r.Post("/{id}/sales", h.authed(h.sellMedicine))
		r.Post("/{id}/restocks", h.authed(h.restockMedicine))
		r.Post("/{id}/image", h.authed(h.uploadMedicineImage))
	})

	r.Post("/images", h.authed(h.uploadImage))
	// Image URLs are embedded in clients' <img> tags, so viewing is public.
	r.Get("/images/{id}", h.viewImage)

	r.Get("/transactions", h.authed(h.listTransactions))

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/dashboard", h.authed(h.dashboard))
		r.Get("/low-stock", h.authed(h.lowStock))
		r.Get("/reconciliation", h.authed(h.reconcile, domain.RoleOwner))
	})

	r.Get("/reports/analytics.pdf", h.authed(h.exportReport))

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.Ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("health check failed")
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authedFunc is a handler that runs with a resolved session.
type authedFunc func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// authed resolves the bearer token into a session and hands it to next.
// With roles given, the session's role must be one of them.
func (h *Handler) authed(next authedFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimSpace(header[len("Bearer "):])
		sess, err := h.Sessions.Resolve(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if len(roles) > 0 && !sess.HasRole(roles...) {
			writeError(w, r, domain.ErrForbidden)
			return
		}
		next(w, r, sess)
	}
}

// writeError maps domain errors to status codes. Unknown errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, analytics.ErrInvalidWindow),
		errors.Is(err, filestore.ErrEmptyUpload):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, filestore.ErrNotAnImage):
		respondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, filestore.ErrTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		respondError(w, http.StatusConflict, "record changed while processing, reload and retry")
	case errors.Is(err, domain.ErrDuplicate):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		respondError(w, http.StatusUnauthorized, "session expired")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "insufficient permissions")
	default:
		log.Error().Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// Helpers

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
