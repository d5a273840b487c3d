// Package filestore keeps uploaded image bytes on local disk, one file per
// asset named by its id. Metadata lives in the database.
package filestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pharmastock/m/domain"
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 5 << 20

var (
	ErrTooLarge    = errors.New("image exceeds 5 MiB")
	ErrNotAnImage  = errors.New("only image uploads are accepted")
	ErrEmptyUpload = errors.New("upload is empty")
)

// MetadataStore records image metadata.
type MetadataStore interface {
	CreateImage(ctx context.Context, img domain.Image) error
	Image(ctx context.Context, id string) (domain.Image, error)
}

type Store struct {
	root    string
	baseURL string
	meta    MetadataStore
	now     func() time.Time
}

// New creates root if needed. baseURL is the public prefix for view URLs.
func New(root, baseURL string, meta MetadataStore) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create root: %w", err)
	}
	return &Store{root: root, baseURL: strings.TrimRight(baseURL, "/"), meta: meta, now: time.Now}, nil
}

// ViewURL is where clients fetch the bytes of image id.
func (s *Store) ViewURL(id string) string {
	return s.baseURL + "/images/" + id
}

// Save streams r to disk and records its metadata. The content type is
// sniffed from the bytes; declared types are only a fallback.
func (s *Store) Save(ctx context.Context, r io.Reader, filename, declaredType string) (domain.Image, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return domain.Image{}, fmt.Errorf("filestore: read upload: %w", err)
	}
	if len(head) == 0 {
		return domain.Image{}, ErrEmptyUpload
	}
	contentType := http.DetectContentType(head)
	if !strings.HasPrefix(contentType, "image/") && strings.HasPrefix(declaredType, "image/") && contentType == "application/octet-stream" {
		contentType = declaredType
	}
	if !strings.HasPrefix(contentType, "image/") {
		return domain.Image{}, ErrNotAnImage
	}

	id := uuid.NewString()
	path := s.path(id)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.Image{}, fmt.Errorf("filestore: create: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(br, MaxImageBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > MaxImageBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return domain.Image{}, err
		}
		return domain.Image{}, fmt.Errorf("filestore: write: %w", err)
	}

	img := domain.Image{
		ID:          id,
		Filename:    filepath.Base(filename),
		ContentType: contentType,
		Size:        n,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.meta.CreateImage(ctx, img); err != nil {
		_ = os.Remove(path)
		return domain.Image{}, err
	}
	img.ViewURL = s.ViewURL(id)
	return img, nil
}

// Open returns the metadata and a reader over the bytes of image id. The
// caller closes the reader.
func (s *Store) Open(ctx context.Context, id string) (domain.Image, io.ReadCloser, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Image{}, nil, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	img, err := s.meta.Image(ctx, id)
	if err != nil {
		return domain.Image{}, nil, err
	}
	f, err := os.Open(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Image{}, nil, fmt.Errorf("image %s bytes: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Image{}, nil, fmt.Errorf("filestore: open: %w", err)
	}
	img.ViewURL = s.ViewURL(id)
	return img, f, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.root, id)
}
