package model

import "github.com/google/uuid"

// Branch represents a physical location (clinic, bank office, service center)
// that runs its own schedules, service points and booking policy.
type Branch struct {
	Base
	Name     string `db:"name" json:"name"`
	Address  string `db:"address" json:"address,omitempty"`
	IsActive bool   `db:"is_active" json:"is_active"`

	// Policy settings. Guarded lifecycle operations always read these as one
	// snapshot, never field by field mid-evaluation.
	CancellationHours     int  `db:"cancellation_hours" json:"cancellation_hours"`
	RescheduleLimitHours  int  `db:"reschedule_limit_hours" json:"reschedule_limit_hours"`
	MaxAdvanceBookingDays int  `db:"max_advance_booking_days" json:"max_advance_booking_days"`
	RemindersEnabled      bool `db:"reminders_enabled" json:"reminders_enabled"`
	EmergencyMode         bool `db:"emergency_mode" json:"emergency_mode"`
}

// Policy returns the branch's booking policy as an immutable snapshot.
func (b *Branch) Policy() BranchPolicy {
	return BranchPolicy{
		BranchID:              b.ID,
		CancellationHours:     b.CancellationHours,
		RescheduleLimitHours:  b.RescheduleLimitHours,
		MaxAdvanceBookingDays: b.MaxAdvanceBookingDays,
		RemindersEnabled:      b.RemindersEnabled,
		EmergencyMode:         b.EmergencyMode,
	}
}

// BranchPolicy is the point-in-time policy snapshot passed into guarded
// appointment operations. Copying it by value keeps a single guard evaluation
// consistent even if an admin toggles emergency mode concurrently.
type BranchPolicy struct {
	BranchID              uuid.UUID `json:"branch_id"`
	CancellationHours     int       `json:"cancellation_hours"`
	RescheduleLimitHours  int       `json:"reschedule_limit_hours"`
	MaxAdvanceBookingDays int       `json:"max_advance_booking_days"`
	RemindersEnabled      bool      `json:"reminders_enabled"`
	EmergencyMode         bool      `json:"emergency_mode"`
}

type UpdateBranchPolicyRequest struct {
	CancellationHours     *int  `json:"cancellation_hours" binding:"omitempty,min=0"`
	RescheduleLimitHours  *int  `json:"reschedule_limit_hours" binding:"omitempty,min=0"`
	MaxAdvanceBookingDays *int  `json:"max_advance_booking_days" binding:"omitempty,min=1"`
	RemindersEnabled      *bool `json:"reminders_enabled"`
	EmergencyMode         *bool `json:"emergency_mode"`
}
