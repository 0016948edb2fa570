package model

import "time"

// Item is a single entry on the shared list. The wire format keeps the
// historical `_id` key that clients already depend on.
type Item struct {
	ID          string `json:"_id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Count       int    `json:"count" validate:"min=1,max=99"`
	Color       string `json:"color" validate:"required,itemcolor"`

	// Optional base64-encoded image.
	Image string `json:"image,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Removal tracking: IsDeleted is true iff DeletedAt is set. Soft-deleted
	// items stay in the store until the retention sweeper purges them.
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	IsDeleted bool       `json:"isDeleted"`
}
