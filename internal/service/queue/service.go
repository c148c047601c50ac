package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/repository"
	"github.com/qline/booking-api/internal/service/branch"
	"github.com/qline/booking-api/internal/service/notification"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/metrics"
)

// validTransitions maps each queue status to the statuses it may advance to.
var validTransitions = map[model.QueueEntryStatus][]model.QueueEntryStatus{
	model.QueueStatusWaiting: {model.QueueStatusServing, model.QueueStatusCancelled},
	model.QueueStatusServing: {model.QueueStatusCompleted, model.QueueStatusCancelled},
}

type Service struct {
	repo      repository.QueueRepository
	aptRepo   repository.AppointmentRepository
	branchSvc *branch.Service
	notifier  notification.Service
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(
	repo repository.QueueRepository,
	aptRepo repository.AppointmentRepository,
	branchSvc *branch.Service,
	notifier notification.Service,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		aptRepo:   aptRepo,
		branchSvc: branchSvc,
		notifier:  notifier,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Admit binds a checked-in appointment to a service point as a waiting queue
// entry. The repository enforces the one-active-entry invariant; a duplicate
// admission surfaces as Conflict.
func (s *Service) Admit(ctx context.Context, req *model.AdmitRequest, actor model.Actor) (*model.QueueEntry, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Unauthorized("staff role required")
	}

	apt, err := s.aptRepo.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !actor.CanActOn(apt) {
		return nil, apperrors.Unauthorized("appointment is outside your branch")
	}
	if apt.Status != model.AppointmentStatusCheckedIn {
		return nil, apperrors.InvalidState("appointment must be checked in before queue admission, got %q", apt.Status)
	}

	sp, err := s.branchSvc.GetServicePoint(ctx, req.ServicePointID)
	if err != nil {
		return nil, err
	}
	if sp.BranchID != apt.BranchID {
		return nil, apperrors.InvalidInput("service point belongs to a different branch")
	}
	if !sp.IsActive {
		return nil, apperrors.InvalidInput("service point is not active")
	}

	entry := &model.QueueEntry{
		ID:               uuid.New(),
		AppointmentID:    apt.ID,
		ServicePointID:   sp.ID,
		BranchID:         apt.BranchID,
		ConfirmationCode: apt.ConfirmationCode,
		Status:           model.QueueStatusWaiting,
	}
	if err := s.repo.Admit(ctx, entry); err != nil {
		return nil, err
	}

	s.metrics.QueueAdmissions.Inc()
	s.metrics.QueueDepth.WithLabelValues(entry.BranchID.String()).Inc()
	return entry, nil
}

// Advance moves a queue entry along waiting -> serving -> completed (or to
// cancelled from either live state). The transition to serving stamps
// called_at, the one signal the call-out engine reacts to.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, to model.QueueEntryStatus, actor model.Actor) (*model.QueueEntry, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Unauthorized("staff role required")
	}

	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.inBranchScope(actor, entry.BranchID) {
		return nil, apperrors.Unauthorized("queue entry is outside your branch")
	}

	if !transitionAllowed(entry.Status, to) {
		return nil, apperrors.InvalidTransition("cannot advance queue entry from %q to %q", entry.Status, to)
	}

	var calledAt *time.Time
	if to == model.QueueStatusServing {
		now := s.now()
		calledAt = &now
	}

	ok, err := s.repo.AdvanceFrom(ctx, id, entry.Status, to, calledAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflict("queue entry state changed concurrently")
	}

	if entry.Status == model.QueueStatusWaiting {
		s.metrics.QueueDepth.WithLabelValues(entry.BranchID.String()).Dec()
	}
	if to == model.QueueStatusServing && calledAt != nil {
		s.metrics.QueueWaitSeconds.Observe(calledAt.Sub(entry.CreatedAt).Seconds())
		entry.CalledAt = calledAt
	}
	entry.Status = to

	// Reaching completed triggers nothing further here; post-completion
	// steps (surveys etc.) hang off the broker, not off this service.
	return entry, nil
}

// Transfer reassigns the entry to another service point in place, keeping
// created_at and called_at so wait accounting and announcement dedup hold.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID, req *model.TransferQueueRequest, actor model.Actor) (*model.QueueEntry, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Unauthorized("staff role required")
	}

	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.inBranchScope(actor, entry.BranchID) {
		return nil, apperrors.Unauthorized("queue entry is outside your branch")
	}
	if entry.Status.IsTerminal() {
		return nil, apperrors.InvalidTransition("cannot transfer queue entry in status %q", entry.Status)
	}

	sp, err := s.branchSvc.GetServicePoint(ctx, req.ServicePointID)
	if err != nil {
		return nil, err
	}
	if sp.BranchID != entry.BranchID {
		return nil, apperrors.InvalidInput("service point belongs to a different branch")
	}

	ok, err := s.repo.Transfer(ctx, id, sp.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Conflict("queue entry state changed concurrently")
	}

	entry.ServicePointID = sp.ID
	return entry, nil
}

// List returns entries for staff processing, FIFO within a service point.
// Priority never reorders this view; it exists only on the public display.
func (s *Service) List(ctx context.Context, filters *model.QueueFilters, actor model.Actor) ([]*model.QueueEntry, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Unauthorized("staff role required")
	}
	if actor.Role == model.RoleStaff {
		if actor.BranchID == nil {
			return nil, apperrors.Unauthorized("staff actor has no assigned branch")
		}
		filters.BranchID = *actor.BranchID
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) inBranchScope(actor model.Actor, branchID uuid.UUID) bool {
	if actor.Role == model.RoleAdmin {
		return true
	}
	return actor.BranchID != nil && *actor.BranchID == branchID
}

func transitionAllowed(from, to model.QueueEntryStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
