package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"pharmastock/m/domain"
	"pharmastock/m/internal/session"
)

type medicineList struct {
	Items  []domain.Medicine `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	q, fields := parseMedicineQuery(r)
	if len(fields) > 0 {
		writeError(w, r, &domain.ValidationError{Fields: fields})
		return
	}
	items, total, err := h.Catalog.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q.Page()
	respondJSON(w, http.StatusOK, medicineList{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset})
}

func parseMedicineQuery(r *http.Request) (domain.MedicineQuery, map[string]string) {
	values := r.URL.Query()
	fields := map[string]string{}
	q := domain.MedicineQuery{
		Search:   strings.TrimSpace(values.Get("query")),
		Category: strings.TrimSpace(values.Get("category")),
		Status:   domain.StockStatus(values.Get("status")),
		OrderBy:  values.Get("order_by"),
	}
	if q.Status != "" && !q.Status.Valid() {
		fields["status"] = "oneof"
	}
	switch strings.ToLower(values.Get("order")) {
	case "", "asc":
	case "desc":
		q.Descending = true
	default:
		fields["order"] = "oneof"
	}
	intParam := func(name string) *int64 {
		raw := values.Get(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields[name] = "numeric"
			return nil
		}
		return &v
	}
	decimalParam := func(name string) *decimal.Decimal {
		raw := values.Get(name)
		if raw == "" {
			return nil
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			fields[name] = "numeric"
			return nil
		}
		return &v
	}
	q.MinQuantity = intParam("min_quantity")
	q.MaxQuantity = intParam("max_quantity")
	q.MinPrice = decimalParam("min_price")
	q.MaxPrice = decimalParam("max_price")
	if v := intParam("limit"); v != nil {
		q.Limit = int(*v)
	}
	if v := intParam("offset"); v != nil {
		q.Offset = int(*v)
	}
	return q, fields
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	var req domain.MedicineInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.Catalog.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	m, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	var req domain.MedicineInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.Catalog.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

type movementRequest struct {
	Quantity int64  `json:"quantity"`
	Notes    string `json:"notes"`
}

func (h *Handler) sellMedicine(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	var req movementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	mv, err := h.Catalog.Sell(r.Context(), domain.SaleInput{
		MedicineID: chi.URLParam(r, "id"),
		Quantity:   req.Quantity,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, mv)
}

func (h *Handler) restockMedicine(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	var req movementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	mv, err := h.Catalog.Restock(r.Context(), domain.RestockInput{
		MedicineID: chi.URLParam(r, "id"),
		Quantity:   req.Quantity,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, mv)
}
