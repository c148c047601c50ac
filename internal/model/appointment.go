package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCheckedIn AppointmentStatus = "checked_in"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// IsTerminal reports whether the status admits no further transitions.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow:
		return true
	}
	return false
}

type Appointment struct {
	Base
	// ConfirmationCode is the only identifier ever shown to the public.
	ConfirmationCode  string            `db:"confirmation_code" json:"confirmation_code"`
	BranchID          uuid.UUID         `db:"branch_id" json:"branch_id"`
	ServiceID         uuid.UUID         `db:"service_id" json:"service_id"`
	UserID            uuid.UUID         `db:"user_id" json:"user_id"`
	CustomerName      string            `db:"customer_name" json:"customer_name"`
	CustomerEmail     string            `db:"customer_email" json:"customer_email"`
	ScheduledAt       time.Time         `db:"scheduled_at" json:"scheduled_at"`
	AttendedAt        *time.Time        `db:"attended_at" json:"attended_at,omitempty"`
	Status            AppointmentStatus `db:"status" json:"status"`
	RescheduledFromID *uuid.UUID        `db:"rescheduled_from_id" json:"rescheduled_from_id,omitempty"`
	RescheduledAt     *time.Time        `db:"rescheduled_at" json:"rescheduled_at,omitempty"`
	CancelReason      *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	FormData          JSONMap           `db:"-" json:"form_data,omitempty"`
}

// RescheduleHistoryEntry is an append-only audit record written before the
// matching scheduled_at mutation, inside the same transaction.
type RescheduleHistoryEntry struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	AppointmentID       uuid.UUID `db:"appointment_id" json:"appointment_id"`
	OriginalScheduledAt time.Time `db:"original_scheduled_at" json:"original_scheduled_at"`
	NewScheduledAt      time.Time `db:"new_scheduled_at" json:"new_scheduled_at"`
	Reason              *string   `db:"reason" json:"reason,omitempty"`
	ActorID             uuid.UUID `db:"actor_id" json:"actor_id"`
	ActorName           string    `db:"actor_name" json:"actor_name"`
	ActorRole           string    `db:"actor_role" json:"actor_role"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

type CreateAppointmentRequest struct {
	BranchID      uuid.UUID `json:"branch_id" binding:"required"`
	ServiceID     uuid.UUID `json:"service_id" binding:"required"`
	ScheduledAt   time.Time `json:"scheduled_at" binding:"required"`
	CustomerName  string    `json:"customer_name" binding:"required,max=200"`
	CustomerEmail string    `json:"customer_email" binding:"required,email"`
	FormData      JSONMap   `json:"form_data"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type RescheduleAppointmentRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Reason      string    `json:"reason" binding:"max=500"`
}

// CheckInRequest carries either a decoded QR payload or a manually typed
// confirmation code. QR image decoding happens outside this service.
type CheckInRequest struct {
	QRPayload        string `json:"qr_payload"`
	ConfirmationCode string `json:"confirmation_code"`
}

// QRPayloadBody is the JSON structure embedded in booking QR codes.
type QRPayloadBody struct {
	ConfirmationCode string `json:"confirmation_code"`
}

type AppointmentFilters struct {
	BranchID  uuid.UUID
	ServiceID uuid.UUID
	UserID    uuid.UUID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
