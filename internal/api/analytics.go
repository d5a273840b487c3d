package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"pharmastock/m/domain"
	"pharmastock/m/internal/analytics"
	"pharmastock/m/internal/report"
	"pharmastock/m/internal/session"
)

const defaultTransactionPage = 100

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	values := r.URL.Query()
	q := domain.TransactionQuery{
		MedicineID: values.Get("medicine_id"),
		Limit:      defaultTransactionPage,
	}
	fields := map[string]string{}
	if raw := values.Get("type"); raw != "" {
		typ, err := domain.ParseTransactionType(raw)
		if err != nil {
			fields["type"] = "oneof"
		}
		q.Type = typ
	}
	if raw := values.Get("window"); raw != "" {
		win, err := analytics.ParseWindow(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		since := win.Since(time.Now(), h.Location)
		q.Since = &since
	}
	for name, dest := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		if raw := values.Get(name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				fields[name] = "numeric"
				continue
			}
			*dest = v
		}
	}
	if len(fields) > 0 {
		writeError(w, r, &domain.ValidationError{Fields: fields})
		return
	}
	if q.Limit == 0 || q.Limit > 500 {
		q.Limit = defaultTransactionPage
	}
	entries, err := h.Ledger.Transactions(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": entries, "limit": q.Limit, "offset": q.Offset})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	win, err := analytics.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Analytics.Dashboard(r.Context(), win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	items, err := h.Analytics.LowStockAlerts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": len(items), "items": items})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	rec, err := h.Analytics.Reconcile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handler) exportReport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	win, err := analytics.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Analytics.Dashboard(r.Context(), win)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteDashboardPDF(&buf, d, h.ReportTitle); err != nil {
		writeError(w, r, err)
		return
	}
	log.Info().Str("account_id", sess.AccountID).Str("window", string(win)).Int("bytes", buf.Len()).Msg("report exported")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="stock-report-%s-%s.pdf"`, win, d.GeneratedAt.Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
