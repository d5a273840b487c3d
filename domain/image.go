package domain

import "time"

// Image is the metadata of a stored binary asset. The bytes live in the file store.
type Image struct {
	ID          string    `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	ViewURL     string    `json:"view_url,omitempty" db:"-"`
}
