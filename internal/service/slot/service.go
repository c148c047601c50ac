package slot

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/repository"
	apperrors "github.com/qline/booking-api/pkg/errors"
)

type Service struct {
	branchRepo repository.BranchRepository
	aptRepo    repository.AppointmentRepository
	now        func() time.Time
}

func NewService(branchRepo repository.BranchRepository, aptRepo repository.AppointmentRepository) *Service {
	return &Service{
		branchRepo: branchRepo,
		aptRepo:    aptRepo,
		now:        time.Now,
	}
}

// Generate computes the bookable start times for one service on one date.
// Pure: identical inputs always yield identical output.
//
// For a date that is the same calendar day as now, the first candidate is
// now's hour plus ceil(minute/duration)*duration minutes, seconds truncated.
// The offset is measured from the top of the hour, so a duration that does
// not divide 60 skips the earlier in-hour boundaries (duration=20 at 09:05
// yields 09:20, not 09:00). That matches the production rounding rule and is
// kept as is.
func Generate(schedules []*model.Schedule, durationMinutes int, date, now time.Time) ([]time.Time, error) {
	if durationMinutes <= 0 {
		return nil, apperrors.InvalidInput("service duration must be positive, got %d", durationMinutes)
	}

	var day *model.Schedule
	for _, s := range schedules {
		if s.DayOfWeek == int(date.Weekday()) {
			day = s
			break
		}
	}
	if day == nil {
		return nil, nil
	}

	start, err := onDate(date, day.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := onDate(date, day.EndTime)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, nil
	}

	duration := time.Duration(durationMinutes) * time.Minute

	cursor := start
	if sameDay(date, now) {
		rounded := roundUpFromHour(now, durationMinutes)
		if rounded.After(cursor) {
			cursor = rounded
		}
	}

	var slots []time.Time
	for !cursor.Add(duration).After(end) {
		slots = append(slots, cursor)
		cursor = cursor.Add(duration)
	}
	return slots, nil
}

// roundUpFromHour returns now's hour plus the next multiple of duration
// minutes at or after now's minute, sub-minute precision dropped.
func roundUpFromHour(now time.Time, durationMinutes int) time.Time {
	hour := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())
	offset := (now.Minute() + durationMinutes - 1) / durationMinutes * durationMinutes
	return hour.Add(time.Duration(offset) * time.Minute)
}

func onDate(date time.Time, timeOfDay string) (time.Time, error) {
	t, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("malformed schedule time %q", timeOfDay)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// AvailableSlots returns the open start times for a service on a date:
// everything Generate emits minus points already held by a live booking.
func (s *Service) AvailableSlots(ctx context.Context, serviceID uuid.UUID, date time.Time) ([]time.Time, error) {
	service, err := s.branchRepo.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !service.IsActive {
		return nil, apperrors.NotFound("service")
	}

	schedules, err := s.branchRepo.ListSchedules(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	slots, err := Generate(schedules, service.Duration, date, s.now())
	if err != nil {
		return nil, err
	}

	available := make([]time.Time, 0, len(slots))
	for _, slot := range slots {
		taken, err := s.aptRepo.ExistsAtSlot(ctx, serviceID, slot)
		if err != nil {
			return nil, err
		}
		if !taken {
			available = append(available, slot)
		}
	}
	return available, nil
}

// IsBookable reports whether scheduledAt is one of the generator's emitted
// points for the service on that date. Booking and rescheduling both route
// through this check.
func (s *Service) IsBookable(ctx context.Context, serviceID uuid.UUID, scheduledAt time.Time) (bool, error) {
	service, err := s.branchRepo.GetService(ctx, serviceID)
	if err != nil {
		return false, err
	}

	schedules, err := s.branchRepo.ListSchedules(ctx, serviceID)
	if err != nil {
		return false, err
	}

	slots, err := Generate(schedules, service.Duration, scheduledAt, s.now())
	if err != nil {
		return false, err
	}
	for _, slot := range slots {
		if slot.Equal(scheduledAt) {
			return true, nil
		}
	}
	return false, nil
}
