package store

import (
	"context"
	"fmt"

	"pharmastock/m/domain"
)

type imageRow struct {
	ID          string    `db:"id"`
	Filename    string    `db:"filename"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	CreatedAt   timestamp `db:"created_at"`
}

// CreateImage records the metadata of an uploaded asset.
func (s *Store) CreateImage(ctx context.Context, img domain.Image) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO images (id, filename, content_type, size, created_at) VALUES (?, ?, ?, ?, ?)`),
		img.ID, img.Filename, img.ContentType, img.Size, timestamp(img.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (s *Store) Image(ctx context.Context, id string) (domain.Image, error) {
	var row imageRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, filename, content_type, size, created_at FROM images WHERE id = ?`), id)
	if isNoRows(err) {
		return domain.Image{}, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Image{}, fmt.Errorf("get image: %w", err)
	}
	return domain.Image{
		ID:          row.ID,
		Filename:    row.Filename,
		ContentType: row.ContentType,
		Size:        row.Size,
		CreatedAt:   row.CreatedAt.Time(),
	}, nil
}
