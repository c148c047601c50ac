package model

import (
	"time"

	"github.com/google/uuid"
)

// Base holds the identity and timestamp columns shared by every record.
// DeletedAt implements soft deletion; queries filter on deleted_at IS NULL.
type Base struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// JSONMap carries free-form intake form fields through the API unchanged.
type JSONMap map[string]interface{}
