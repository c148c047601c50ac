package notification

import (
	"context"
	"time"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/repository"
	"github.com/qline/booking-api/pkg/logger"
)

// Service decides that a notification should fire and records it on the
// transactional outbox. Delivery (SMTP, display hardware) happens in the
// worker, off the request path. A failed outbox write is logged and
// swallowed: notification loss never fails the booking operation itself.
type Service interface {
	AppointmentCreated(ctx context.Context, apt *model.Appointment)
	AppointmentCancelled(ctx context.Context, apt *model.Appointment)
	AppointmentRescheduled(ctx context.Context, apt *model.Appointment, entry *model.RescheduleHistoryEntry)
	AppointmentCheckedIn(ctx context.Context, apt *model.Appointment)
	AppointmentReminder(ctx context.Context, apt *model.Appointment)
	QueueCalled(ctx context.Context, payload QueueCalledPayload)
}

// AppointmentPayload is the outbox payload for appointment events.
type AppointmentPayload struct {
	AppointmentID    string    `json:"appointment_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	BranchID         string    `json:"branch_id"`
	ServiceID        string    `json:"service_id"`
	CustomerName     string    `json:"customer_name"`
	CustomerEmail    string    `json:"customer_email"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	PreviousTime     time.Time `json:"previous_time,omitempty"`
	Reason           string    `json:"reason,omitempty"`
}

// QueueCalledPayload is the outbox payload for call-out events.
type QueueCalledPayload struct {
	QueueEntryID     string `json:"queue_entry_id"`
	BranchID         string `json:"branch_id"`
	ServicePointName string `json:"service_point_name"`
	ConfirmationCode string `json:"confirmation_code"`
	Priority         string `json:"priority"`
}

type service struct {
	outbox repository.OutboxRepository
	logger *logger.Logger
}

func NewService(outbox repository.OutboxRepository, logger *logger.Logger) Service {
	return &service{outbox: outbox, logger: logger}
}

func (s *service) emit(ctx context.Context, eventType string, payload interface{}) {
	if err := s.outbox.Create(ctx, eventType, payload); err != nil {
		s.logger.Error(err, "failed to record outbox event", "event_type", eventType)
	}
}

func appointmentPayload(apt *model.Appointment) AppointmentPayload {
	return AppointmentPayload{
		AppointmentID:    apt.ID.String(),
		ConfirmationCode: apt.ConfirmationCode,
		BranchID:         apt.BranchID.String(),
		ServiceID:        apt.ServiceID.String(),
		CustomerName:     apt.CustomerName,
		CustomerEmail:    apt.CustomerEmail,
		ScheduledAt:      apt.ScheduledAt,
	}
}

func (s *service) AppointmentCreated(ctx context.Context, apt *model.Appointment) {
	s.emit(ctx, model.EventAppointmentCreated, appointmentPayload(apt))
}

func (s *service) AppointmentCancelled(ctx context.Context, apt *model.Appointment) {
	payload := appointmentPayload(apt)
	if apt.CancelReason != nil {
		payload.Reason = *apt.CancelReason
	}
	s.emit(ctx, model.EventAppointmentCancelled, payload)
}

func (s *service) AppointmentRescheduled(ctx context.Context, apt *model.Appointment, entry *model.RescheduleHistoryEntry) {
	payload := appointmentPayload(apt)
	payload.PreviousTime = entry.OriginalScheduledAt
	if entry.Reason != nil {
		payload.Reason = *entry.Reason
	}
	s.emit(ctx, model.EventAppointmentRescheduled, payload)
}

func (s *service) AppointmentCheckedIn(ctx context.Context, apt *model.Appointment) {
	s.emit(ctx, model.EventAppointmentCheckedIn, appointmentPayload(apt))
}

func (s *service) AppointmentReminder(ctx context.Context, apt *model.Appointment) {
	s.emit(ctx, model.EventAppointmentReminder, appointmentPayload(apt))
}

func (s *service) QueueCalled(ctx context.Context, payload QueueCalledPayload) {
	s.emit(ctx, model.EventQueueCalled, payload)
}
