package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"pharmastock/m/domain"
	"pharmastock/m/internal/filestore"
	"pharmastock/m/internal/session"
)

type base64Upload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// saveUpload accepts either a multipart form with a "file" field or a JSON
// body carrying base64 data.
func (h *Handler) saveUpload(w http.ResponseWriter, r *http.Request) (domain.Image, error) {
	// base64 inflates by a third; leave room for the envelope too.
	r.Body = http.MaxBytesReader(w, r.Body, filestore.MaxImageBytes*4/3+64<<10)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		file, header, err := r.FormFile("file")
		if err != nil {
			return domain.Image{}, tooLargeOr(err, filestore.ErrEmptyUpload)
		}
		defer file.Close()
		return h.Images.Save(r.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	case "application/json":
		var req base64Upload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return domain.Image{}, tooLargeOr(err, &domain.ValidationError{Fields: map[string]string{"body": "json"}})
		}
		data, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return domain.Image{}, &domain.ValidationError{Fields: map[string]string{"data": "base64"}}
		}
		return h.Images.Save(r.Context(), bytes.NewReader(data), req.Filename, req.ContentType)
	}
	return domain.Image{}, fmt.Errorf("%w: content type %q", filestore.ErrNotAnImage, mediaType)
}

func tooLargeOr(err, fallback error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return filestore.ErrTooLarge
	}
	return fallback
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	img, err := h.saveUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, img)
}

func (h *Handler) uploadMedicineImage(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	id := chi.URLParam(r, "id")
	if _, err := h.Catalog.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	img, err := h.saveUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.Catalog.AttachImage(r.Context(), id, img.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"medicine": m, "image": img})
}

func (h *Handler) viewImage(w http.ResponseWriter, r *http.Request) {
	img, body, err := h.Images.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}
