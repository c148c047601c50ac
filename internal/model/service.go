package model

import (
	"github.com/google/uuid"
)

// Service is a bookable offering. Duration drives the slot width and is
// treated as immutable after creation.
type Service struct {
	Base
	BranchID    uuid.UUID `db:"branch_id" json:"branch_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Duration    int       `db:"duration" json:"duration"` // in minutes
	IsActive    bool      `db:"is_active" json:"is_active"`
}

// Schedule is one weekly recurring availability window for a service.
// StartTime and EndTime are local times of day in "15:04" format,
// with StartTime < EndTime.
type Schedule struct {
	ID        uuid.UUID `db:"id" json:"id"`
	ServiceID uuid.UUID `db:"service_id" json:"service_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
}

// ServicePoint is a staffed station (desk, counter, room) that processes
// queue entries for a branch.
type ServicePoint struct {
	Base
	BranchID uuid.UUID `db:"branch_id" json:"branch_id"`
	Name     string    `db:"name" json:"name"`
	IsActive bool      `db:"is_active" json:"is_active"`
}
