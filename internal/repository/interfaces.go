package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
)

// All repository interfaces in one file
type (
	// BranchRepository is the read-mostly provider of branches, services,
	// weekly schedules and service points. Administration writes these out
	// of band; the only in-core mutation is the branch policy update.
	BranchRepository interface {
		GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error)
		ListBranches(ctx context.Context) ([]*model.Branch, error)
		UpdateBranchPolicy(ctx context.Context, branch *model.Branch) error
		GetService(ctx context.Context, id uuid.UUID) (*model.Service, error)
		ListServices(ctx context.Context, branchID uuid.UUID) ([]*model.Service, error)
		ListSchedules(ctx context.Context, serviceID uuid.UUID) ([]*model.Schedule, error)
		GetServicePoint(ctx context.Context, id uuid.UUID) (*model.ServicePoint, error)
		ListServicePoints(ctx context.Context, branchID uuid.UUID) ([]*model.ServicePoint, error)
	}

	// AppointmentRepository persists appointments and their reschedule audit
	// trail. Status mutations are compare-and-set: they report false when the
	// row was not in the expected state, so concurrent guard evaluations
	// cannot both win.
	AppointmentRepository interface {
		Create(ctx context.Context, apt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetByConfirmationCode(ctx context.Context, code string) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ExistsAtSlot(ctx context.Context, serviceID uuid.UUID, scheduledAt time.Time) (bool, error)
		UpdateStatusFrom(ctx context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus) (bool, error)
		CheckIn(ctx context.Context, id uuid.UUID, attendedAt time.Time) (bool, error)
		Cancel(ctx context.Context, id uuid.UUID, reason *string) (bool, error)
		// Reschedule writes the audit entry and then the scheduled_at mutation
		// in one transaction, guarded on the pre-mutation scheduled_at value.
		Reschedule(ctx context.Context, entry *model.RescheduleHistoryEntry, rescheduledAt time.Time) (bool, error)
		ListRescheduleHistory(ctx context.Context, appointmentID uuid.UUID) ([]*model.RescheduleHistoryEntry, error)
		ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
	}

	// QueueRepository persists queue entries. Admit enforces the
	// at-most-one-active-entry-per-appointment invariant transactionally.
	QueueRepository interface {
		Admit(ctx context.Context, entry *model.QueueEntry) error
		Get(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error)
		GetActiveByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.QueueEntry, error)
		List(ctx context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error)
		Snapshot(ctx context.Context, branchID uuid.UUID) ([]*model.QueueEntry, error)
		AdvanceFrom(ctx context.Context, id uuid.UUID, from, to model.QueueEntryStatus, calledAt *time.Time) (bool, error)
		Transfer(ctx context.Context, id, servicePointID uuid.UUID) (bool, error)
	}

	StaffRepository interface {
		GetByUsername(ctx context.Context, username string) (*model.StaffUser, error)
		Get(ctx context.Context, id uuid.UUID) (*model.StaffUser, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, eventType string, payload interface{}) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	}
)
