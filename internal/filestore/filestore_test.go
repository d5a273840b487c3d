package filestore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmastock/m/domain"
)

// pngHeader is enough for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type memMeta struct {
	images map[string]domain.Image
}

func (m *memMeta) CreateImage(_ context.Context, img domain.Image) error {
	m.images[img.ID] = img
	return nil
}

func (m *memMeta) Image(_ context.Context, id string) (domain.Image, error) {
	img, ok := m.images[id]
	if !ok {
		return domain.Image{}, domain.ErrNotFound
	}
	return img, nil
}

func newTestStore(t *testing.T) (*Store, *memMeta) {
	t.Helper()
	meta := &memMeta{images: map[string]domain.Image{}}
	s, err := New(t.TempDir(), "http://localhost:8080/", meta)
	require.NoError(t, err)
	return s, meta
}

func TestSaveAndOpen(t *testing.T) {
	s, meta := newTestStore(t)
	ctx := context.Background()

	img, err := s.Save(ctx, bytes.NewReader(pngHeader), "../../box.png", "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "box.png", img.Filename)
	assert.Equal(t, int64(len(pngHeader)), img.Size)
	assert.Equal(t, "http://localhost:8080/images/"+img.ID, img.ViewURL)
	assert.Contains(t, meta.images, img.ID)

	got, body, err := s.Open(ctx, img.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, img.ViewURL, got.ViewURL)
}

func TestSaveRejects(t *testing.T) {
	tests := []struct {
		name    string
		body    io.Reader
		wantErr error
	}{
		{"empty", strings.NewReader(""), ErrEmptyUpload},
		{"text", strings.NewReader("hello, world"), ErrNotAnImage},
		{"too large", io.MultiReader(bytes.NewReader(pngHeader), bytes.NewReader(make([]byte, MaxImageBytes))), ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, meta := newTestStore(t)
			_, err := s.Save(context.Background(), tt.body, "x.png", "image/png")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, meta.images)
		})
	}
}

func TestOpenUnknown(t *testing.T) {
	s, _ := newTestStore(t)
	_, _, err := s.Open(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = s.Open(context.Background(), "8f14e45f-ceea-467a-9af0-5b3f5b3b3b3b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
