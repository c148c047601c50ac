package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/repository"
	"github.com/qline/booking-api/internal/service/branch"
	"github.com/qline/booking-api/internal/service/notification"
	"github.com/qline/booking-api/internal/service/slot"
	"github.com/qline/booking-api/pkg/confirmation"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/metrics"
)

type Service struct {
	repo      repository.AppointmentRepository
	branchSvc *branch.Service
	slotSvc   *slot.Service
	notifier  notification.Service
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	branchSvc *branch.Service,
	slotSvc *slot.Service,
	notifier notification.Service,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		branchSvc: branchSvc,
		slotSvc:   slotSvc,
		notifier:  notifier,
		metrics:   metrics,
		now:       time.Now,
	}
}

// emergencyOverride reports whether the policy window checks are relaxed for
// this actor. Emergency mode is branch-wide but only admins may ride it.
func emergencyOverride(policy model.BranchPolicy, actor model.Actor) bool {
	return policy.EmergencyMode && actor.Role == model.RoleAdmin
}

func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest, actor model.Actor) (*model.Appointment, error) {
	policy, err := s.branchSvc.PolicySnapshot(ctx, req.BranchID)
	if err != nil {
		return nil, err
	}

	service, err := s.branchSvc.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if service.BranchID != req.BranchID {
		return nil, apperrors.InvalidInput("service does not belong to the requested branch")
	}

	now := s.now()
	maxAdvance := now.AddDate(0, 0, policy.MaxAdvanceBookingDays)
	if req.ScheduledAt.After(maxAdvance) {
		return nil, apperrors.PolicyViolation(
			"requested time is beyond the %d-day booking horizon", policy.MaxAdvanceBookingDays)
	}

	bookable, err := s.slotSvc.IsBookable(ctx, req.ServiceID, req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if !bookable {
		return nil, apperrors.InvalidInput("requested time is not a bookable slot")
	}

	taken, err := s.repo.ExistsAtSlot(ctx, req.ServiceID, req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict("slot is already booked")
	}

	code, err := confirmation.NewCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	apt := &model.Appointment{
		Base:             model.Base{ID: uuid.New()},
		ConfirmationCode: code,
		BranchID:         req.BranchID,
		ServiceID:        req.ServiceID,
		UserID:           actor.ID,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		ScheduledAt:      req.ScheduledAt,
		Status:           model.AppointmentStatusScheduled,
		FormData:         req.FormData,
	}

	// A unique index on (service_id, scheduled_at) for live statuses backs
	// the slot check above; a lost race surfaces here as Conflict and the
	// caller decides whether to retry with refreshed availability.
	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, err
	}

	s.metrics.AppointmentsCreated.Inc()
	s.notifier.AppointmentCreated(ctx, apt)
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(apt) {
		return nil, apperrors.Unauthorized("appointment is outside your scope")
	}
	return apt, nil
}

// Track is the public status lookup by confirmation code. No actor needed:
// possession of the code is the credential.
func (s *Service) Track(ctx context.Context, code string) (*model.Appointment, error) {
	return s.repo.GetByConfirmationCode(ctx, confirmation.Normalize(code))
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters, actor model.Actor) ([]*model.Appointment, error) {
	// Scope the query to what the actor may see before it runs.
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleStaff:
		if actor.BranchID == nil {
			return nil, apperrors.Unauthorized("staff actor has no assigned branch")
		}
		filters.BranchID = *actor.BranchID
	default:
		filters.UserID = actor.ID
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(apt) {
		return nil, apperrors.Unauthorized("appointment is outside your scope")
	}
	if apt.Status != model.AppointmentStatusScheduled {
		return nil, apperrors.InvalidState("cannot cancel appointment in status %q", apt.Status)
	}

	policy, err := s.branchSvc.PolicySnapshot(ctx, apt.BranchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := apt.ScheduledAt.Add(-time.Duration(policy.CancellationHours) * time.Hour)
	if now.After(deadline) && !emergencyOverride(policy, actor) {
		return nil, apperrors.PolicyViolation(
			"cancellation window (%dh before the appointment) closed %s ago",
			policy.CancellationHours, now.Sub(deadline).Round(time.Minute))
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	ok, err := s.repo.Cancel(ctx, id, reasonPtr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflict("appointment state changed concurrently")
	}

	apt.Status = model.AppointmentStatusCancelled
	apt.CancelReason = reasonPtr

	s.metrics.AppointmentsCancelled.Inc()
	s.notifier.AppointmentCancelled(ctx, apt)
	return apt, nil
}

func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleAppointmentRequest, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(apt) {
		return nil, apperrors.Unauthorized("appointment is outside your scope")
	}
	if apt.Status != model.AppointmentStatusScheduled {
		return nil, apperrors.InvalidState("cannot reschedule appointment in status %q", apt.Status)
	}

	policy, err := s.branchSvc.PolicySnapshot(ctx, apt.BranchID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := apt.ScheduledAt.Add(-time.Duration(policy.RescheduleLimitHours) * time.Hour)
	if now.After(deadline) && !emergencyOverride(policy, actor) {
		return nil, apperrors.PolicyViolation(
			"reschedule window (%dh before the appointment) closed %s ago",
			policy.RescheduleLimitHours, now.Sub(deadline).Round(time.Minute))
	}

	bookable, err := s.slotSvc.IsBookable(ctx, apt.ServiceID, req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if !bookable {
		return nil, apperrors.InvalidInput("requested time is not a bookable slot")
	}

	taken, err := s.repo.ExistsAtSlot(ctx, apt.ServiceID, req.ScheduledAt)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.Conflict("slot is already booked")
	}

	var reasonPtr *string
	if req.Reason != "" {
		reasonPtr = &req.Reason
	}
	entry := &model.RescheduleHistoryEntry{
		ID:                  uuid.New(),
		AppointmentID:       apt.ID,
		OriginalScheduledAt: apt.ScheduledAt,
		NewScheduledAt:      req.ScheduledAt,
		Reason:              reasonPtr,
		ActorID:             actor.ID,
		ActorName:           actor.Username,
		ActorRole:           string(actor.Role),
		CreatedAt:           now,
	}

	// The repository guards on the pre-mutation scheduled_at, so a concurrent
	// reschedule that committed first makes this one lose cleanly.
	ok, err := s.repo.Reschedule(ctx, entry, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflict("appointment was rescheduled concurrently")
	}

	apt.ScheduledAt = req.ScheduledAt
	apt.RescheduledAt = &now

	s.metrics.AppointmentsRescheduled.Inc()
	s.notifier.AppointmentRescheduled(ctx, apt, entry)
	return apt, nil
}

// CheckIn resolves a QR payload or a typed confirmation code to today's
// scheduled appointment and marks it attended.
func (s *Service) CheckIn(ctx context.Context, req *model.CheckInRequest) (*model.Appointment, error) {
	code, err := resolveCode(req)
	if err != nil {
		return nil, err
	}

	apt, err := s.repo.GetByConfirmationCode(ctx, confirmation.Normalize(code))
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !sameDay(apt.ScheduledAt, now) {
		return nil, apperrors.NotFound("appointment scheduled for today")
	}
	if apt.Status != model.AppointmentStatusScheduled {
		return nil, apperrors.InvalidState("appointment was already processed (status %q)", apt.Status)
	}

	ok, err := s.repo.CheckIn(ctx, apt.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.InvalidState("appointment was already processed")
	}

	apt.Status = model.AppointmentStatusCheckedIn
	apt.AttendedAt = &now

	s.metrics.CheckIns.Inc()
	s.notifier.AppointmentCheckedIn(ctx, apt)
	return apt, nil
}

func resolveCode(req *model.CheckInRequest) (string, error) {
	switch {
	case req.QRPayload == "" && req.ConfirmationCode == "":
		return "", apperrors.AmbiguousInput("either qr_payload or confirmation_code is required")
	case req.QRPayload == "":
		return req.ConfirmationCode, nil
	}

	var body model.QRPayloadBody
	if err := json.Unmarshal([]byte(req.QRPayload), &body); err != nil {
		return "", apperrors.InvalidInput("malformed QR payload")
	}
	if body.ConfirmationCode == "" {
		return "", apperrors.InvalidInput("QR payload carries no confirmation code")
	}
	if req.ConfirmationCode != "" &&
		confirmation.Normalize(req.ConfirmationCode) != confirmation.Normalize(body.ConfirmationCode) {
		return "", apperrors.AmbiguousInput("qr_payload and confirmation_code identify different appointments")
	}
	return body.ConfirmationCode, nil
}

// MarkCompleted is the staff-side terminal transition for an attended
// appointment.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.staffTarget(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentStatusCheckedIn {
		return nil, apperrors.InvalidState("cannot complete appointment in status %q", apt.Status)
	}

	ok, err := s.repo.UpdateStatusFrom(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusCheckedIn},
		model.AppointmentStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflict("appointment state changed concurrently")
	}

	apt.Status = model.AppointmentStatusCompleted
	return apt, nil
}

// MarkNoShow records that the customer never turned up once the scheduled
// window has passed.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.staffTarget(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentStatusScheduled && apt.Status != model.AppointmentStatusCheckedIn {
		return nil, apperrors.InvalidState("cannot mark no-show in status %q", apt.Status)
	}

	service, err := s.branchSvc.GetService(ctx, apt.ServiceID)
	if err != nil {
		return nil, err
	}
	windowEnd := apt.ScheduledAt.Add(time.Duration(service.Duration) * time.Minute)
	if s.now().Before(windowEnd) {
		return nil, apperrors.PolicyViolation("scheduled window has not passed yet")
	}

	ok, err := s.repo.UpdateStatusFrom(ctx, id,
		[]model.AppointmentStatus{model.AppointmentStatusScheduled, model.AppointmentStatusCheckedIn},
		model.AppointmentStatusNoShow)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflict("appointment state changed concurrently")
	}

	apt.Status = model.AppointmentStatusNoShow
	return apt, nil
}

func (s *Service) GetRescheduleHistory(ctx context.Context, id uuid.UUID, actor model.Actor) ([]*model.RescheduleHistoryEntry, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(apt) {
		return nil, apperrors.Unauthorized("appointment is outside your scope")
	}
	return s.repo.ListRescheduleHistory(ctx, id)
}

func (s *Service) staffTarget(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Unauthorized("staff role required")
	}
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(apt) {
		return nil, apperrors.Unauthorized("appointment is outside your branch")
	}
	return apt, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
