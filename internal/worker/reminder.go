package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/repository"
	"github.com/qline/booking-api/internal/service/notification"
	"github.com/qline/booking-api/pkg/logger"
)

// ReminderSweeper periodically queues next-day reminders for scheduled
// appointments in branches that have reminders enabled. Appointments already
// reminded in this process are skipped; across restarts a duplicate reminder
// is acceptable, a missed one is not.
type ReminderSweeper struct {
	aptRepo    repository.AppointmentRepository
	branchRepo repository.BranchRepository
	notifier   notification.Service
	logger     *logger.Logger
	interval   time.Duration

	mu       sync.Mutex
	reminded map[uuid.UUID]struct{}
}

func NewReminderSweeper(
	aptRepo repository.AppointmentRepository,
	branchRepo repository.BranchRepository,
	notifier notification.Service,
	logger *logger.Logger,
	interval time.Duration,
) *ReminderSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ReminderSweeper{
		aptRepo:    aptRepo,
		branchRepo: branchRepo,
		notifier:   notifier,
		logger:     logger,
		interval:   interval,
		reminded:   make(map[uuid.UUID]struct{}),
	}
}

func (s *ReminderSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("starting reminder sweeper", "interval", s.interval.String())

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down reminder sweeper")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReminderSweeper) sweep(ctx context.Context) {
	now := time.Now()
	tomorrow := now.AddDate(0, 0, 1)
	from := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	appointments, err := s.aptRepo.ListScheduledBetween(ctx, from, to)
	if err != nil {
		s.logger.Error(err, "reminder sweep failed")
		return
	}

	enabled := make(map[uuid.UUID]bool)
	var sent int
	for _, apt := range appointments {
		if apt.Status != model.AppointmentStatusScheduled {
			continue
		}

		on, known := enabled[apt.BranchID]
		if !known {
			branch, err := s.branchRepo.GetBranch(ctx, apt.BranchID)
			if err != nil {
				s.logger.Error(err, "failed to load branch for reminders", "branch_id", apt.BranchID.String())
				continue
			}
			on = branch.RemindersEnabled
			enabled[apt.BranchID] = on
		}
		if !on {
			continue
		}

		s.mu.Lock()
		_, already := s.reminded[apt.ID]
		if !already {
			s.reminded[apt.ID] = struct{}{}
		}
		s.mu.Unlock()
		if already {
			continue
		}

		s.notifier.AppointmentReminder(ctx, apt)
		sent++
	}

	s.prune()

	if sent > 0 {
		s.logger.Info("reminder sweep completed", "reminders", sent, "window_start", from.Format(time.RFC3339))
	}
}

// prune caps the in-process dedup set. A reset only risks one duplicate
// reminder per appointment, which the dedup exists to minimize, not prevent.
func (s *ReminderSweeper) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reminded) > 100000 {
		s.reminded = make(map[uuid.UUID]struct{})
	}
}
