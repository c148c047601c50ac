package model

import (
	"time"

	"github.com/google/uuid"
)

type QueueEntryStatus string

const (
	QueueStatusWaiting   QueueEntryStatus = "waiting"
	QueueStatusServing   QueueEntryStatus = "serving"
	QueueStatusCompleted QueueEntryStatus = "completed"
	QueueStatusCancelled QueueEntryStatus = "cancelled"
)

// IsTerminal reports whether the entry has logically left the queue.
// Terminal entries are retained for reporting, never deleted.
func (s QueueEntryStatus) IsTerminal() bool {
	return s == QueueStatusCompleted || s == QueueStatusCancelled
}

// QueueEntry is the live operational record for a checked-in appointment.
// At most one non-terminal entry exists per appointment at any time.
type QueueEntry struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	AppointmentID  uuid.UUID        `db:"appointment_id" json:"appointment_id"`
	ServicePointID uuid.UUID        `db:"service_point_id" json:"service_point_id"`
	BranchID       uuid.UUID        `db:"branch_id" json:"branch_id"`
	// ConfirmationCode is denormalized from the appointment for display.
	ConfirmationCode string           `db:"confirmation_code" json:"confirmation_code"`
	Status           QueueEntryStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	CalledAt         *time.Time       `db:"called_at" json:"called_at,omitempty"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

type AdmitRequest struct {
	AppointmentID  uuid.UUID `json:"appointment_id" binding:"required"`
	ServicePointID uuid.UUID `json:"service_point_id" binding:"required"`
}

type AdvanceQueueRequest struct {
	Status QueueEntryStatus `json:"status" binding:"required,oneof=serving completed cancelled"`
}

type TransferQueueRequest struct {
	ServicePointID uuid.UUID `json:"service_point_id" binding:"required"`
}

type QueueFilters struct {
	BranchID       uuid.UUID
	ServicePointID uuid.UUID
	Status         QueueEntryStatus
}
