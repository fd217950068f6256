// Package models contains data structures for the wall's domain models.
package models

import (
	"time"
)

const (
	// CharLimit is the maximum post body length in characters.
	CharLimit = 280
	// MaxUploadBytes is the size ceiling for an image attachment (5 MiB).
	MaxUploadBytes = 5 << 20
	// ImageMediaPrefix is the media type prefix accepted for attachments.
	ImageMediaPrefix = "image/"
)

// Post represents a post on the wall.
type Post struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// Author is nil when no identity is configured.
	Author    *string   `gorm:"size:120" json:"author"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// HasImage reports whether the post references an uploaded image.
func (p Post) HasImage() bool {
	return p.ImageURL != nil && *p.ImageURL != ""
}
