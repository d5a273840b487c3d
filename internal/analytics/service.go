package analytics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pharmastock/m/domain"
)

// Source is the read side the dashboard is built from.
type Source interface {
	Transactions(ctx context.Context, q domain.TransactionQuery) ([]domain.Transaction, error)
	AllMedicines(ctx context.Context) ([]domain.Medicine, error)
}

// Dashboard is everything the analytics screen and the exported report show.
type Dashboard struct {
	Window        Window          `json:"window"`
	From          time.Time       `json:"from"`
	GeneratedAt   time.Time       `json:"generated_at"`
	Activity      []Bucket        `json:"activity"`
	TotalUnits    int64           `json:"total_units"`
	Sales         int64           `json:"sales"`
	Restocks      int64           `json:"restocks"`
	TopActivity   []Activity      `json:"top_activity"`
	DerivedStock  []StockLevel    `json:"derived_stock"`
	Categories    []CategoryShare `json:"categories"`
	LowStock      []StockLevel    `json:"low_stock"`
	LowStockCount int             `json:"low_stock_count"`
	EntriesUsed   int             `json:"entries_used"`
	Truncated     bool            `json:"truncated"`
}

// DefaultLedgerCap bounds how many ledger rows one dashboard aggregates.
const DefaultLedgerCap = 500

// Service builds dashboards from a Source. Ledger reads are capped at
// ledgerCap rows; when the window holds more, the newest ledgerCap entries
// are used and the dashboard is marked Truncated.
type Service struct {
	src       Source
	ledgerCap int
	loc       *time.Location
	now       func() time.Time
}

func NewService(src Source, ledgerCap int, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if ledgerCap <= 0 {
		ledgerCap = DefaultLedgerCap
	}
	return &Service{src: src, ledgerCap: ledgerCap, loc: loc, now: time.Now}
}

// Dashboard fetches the window's ledger and the catalog concurrently and
// aggregates them.
func (s *Service) Dashboard(ctx context.Context, w Window) (Dashboard, error) {
	now := s.now()
	since := w.Since(now, s.loc)

	var (
		entries []domain.Transaction
		meds    []domain.Medicine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.src.Transactions(gctx, domain.TransactionQuery{Since: &since, Limit: s.ledgerCap + 1})
		return err
	})
	g.Go(func() error {
		var err error
		meds, err = s.src.AllMedicines(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	truncated := len(entries) > s.ledgerCap
	if truncated {
		entries = entries[:s.ledgerCap]
		log.Warn().Int("cap", s.ledgerCap).Str("window", string(w)).Msg("ledger window exceeds fetch cap, dashboard is partial")
	}

	d := Dashboard{
		Window:       w,
		From:         since,
		GeneratedAt:  now,
		Activity:     BucketActivity(w, entries, now, s.loc),
		TopActivity:  TopActivity(entries, DefaultTopN),
		DerivedStock: LevelsFromDerived(ReplayStock(entries)),
		Categories:   CategoryBreakdown(meds),
		EntriesUsed:  len(entries),
		Truncated:    truncated,
	}
	for _, e := range entries {
		d.TotalUnits += e.Magnitude()
		switch e.Type {
		case domain.TransactionSale:
			d.Sales++
		case domain.TransactionRestock:
			d.Restocks++
		}
	}
	d.LowStock = LowStock(LevelsFromCatalog(meds))
	d.LowStockCount = len(d.LowStock)
	return d, nil
}

// LowStockAlerts is the badge view: the same catalog source and threshold
// the dashboard and report use.
func (s *Service) LowStockAlerts(ctx context.Context) ([]StockLevel, error) {
	meds, err := s.src.AllMedicines(ctx)
	if err != nil {
		return nil, err
	}
	return LowStock(LevelsFromCatalog(meds)), nil
}

// reconcilePage is the page size used to walk the whole ledger.
const reconcilePage = 1000

// Reconciliation is the result of checking the catalog against the ledger.
type Reconciliation struct {
	CheckedAt time.Time `json:"checked_at"`
	Medicines int       `json:"medicines"`
	Entries   int       `json:"entries"`
	Drift     []Drift   `json:"drift"`
}

// Reconcile replays the entire ledger and reports medicines whose catalog
// quantity differs from it. Writes made while the walk is in progress can
// show up as transient drift.
func (s *Service) Reconcile(ctx context.Context) (Reconciliation, error) {
	meds, err := s.src.AllMedicines(ctx)
	if err != nil {
		return Reconciliation{}, err
	}
	var all []domain.Transaction
	for offset := 0; ; offset += reconcilePage {
		page, err := s.src.Transactions(ctx, domain.TransactionQuery{Limit: reconcilePage, Offset: offset})
		if err != nil {
			return Reconciliation{}, err
		}
		all = append(all, page...)
		if len(page) < reconcilePage {
			break
		}
	}
	r := Reconciliation{
		CheckedAt: s.now(),
		Medicines: len(meds),
		Entries:   len(all),
		Drift:     Reconcile(meds, ReplayStock(all)),
	}
	if len(r.Drift) > 0 {
		log.Warn().Int("medicines", len(r.Drift)).Msg("catalog quantities disagree with the ledger")
	}
	return r, nil
}
