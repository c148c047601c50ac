package appointment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/service/branch"
	"github.com/qline/booking-api/internal/service/notification"
	"github.com/qline/booking-api/internal/service/slot"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/metrics"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = metrics.NewMetrics("appointment_test")

// Monday 10:00 UTC.
var testNow = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

type fakeBranchRepo struct {
	branches  map[uuid.UUID]*model.Branch
	services  map[uuid.UUID]*model.Service
	schedules map[uuid.UUID][]*model.Schedule
	points    map[uuid.UUID]*model.ServicePoint
}

func newFakeBranchRepo() *fakeBranchRepo {
	return &fakeBranchRepo{
		branches:  make(map[uuid.UUID]*model.Branch),
		services:  make(map[uuid.UUID]*model.Service),
		schedules: make(map[uuid.UUID][]*model.Schedule),
		points:    make(map[uuid.UUID]*model.ServicePoint),
	}
}

func (f *fakeBranchRepo) GetBranch(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return nil, apperrors.NotFound("branch")
	}
	return b, nil
}

func (f *fakeBranchRepo) ListBranches(_ context.Context) ([]*model.Branch, error) {
	out := make([]*model.Branch, 0, len(f.branches))
	for _, b := range f.branches {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBranchRepo) UpdateBranchPolicy(_ context.Context, b *model.Branch) error {
	f.branches[b.ID] = b
	return nil
}

func (f *fakeBranchRepo) GetService(_ context.Context, id uuid.UUID) (*model.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return nil, apperrors.NotFound("service")
	}
	return s, nil
}

func (f *fakeBranchRepo) ListServices(_ context.Context, branchID uuid.UUID) ([]*model.Service, error) {
	var out []*model.Service
	for _, s := range f.services {
		if s.BranchID == branchID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeBranchRepo) ListSchedules(_ context.Context, serviceID uuid.UUID) ([]*model.Schedule, error) {
	return f.schedules[serviceID], nil
}

func (f *fakeBranchRepo) GetServicePoint(_ context.Context, id uuid.UUID) (*model.ServicePoint, error) {
	p, ok := f.points[id]
	if !ok {
		return nil, apperrors.NotFound("service point")
	}
	return p, nil
}

func (f *fakeBranchRepo) ListServicePoints(_ context.Context, branchID uuid.UUID) ([]*model.ServicePoint, error) {
	var out []*model.ServicePoint
	for _, p := range f.points {
		if p.BranchID == branchID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	history      []*model.RescheduleHistoryEntry
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeAppointmentRepo) Create(_ context.Context, apt *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *apt
	f.appointments[apt.ID] = &copied
	return nil
}

func (f *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	copied := *apt
	return &copied, nil
}

func (f *fakeAppointmentRepo) GetByConfirmationCode(_ context.Context, code string) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, apt := range f.appointments {
		if apt.ConfirmationCode == code {
			copied := *apt
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("appointment")
}

func (f *fakeAppointmentRepo) List(_ context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range f.appointments {
		if filters.BranchID != uuid.Nil && apt.BranchID != filters.BranchID {
			continue
		}
		if filters.UserID != uuid.Nil && apt.UserID != filters.UserID {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		copied := *apt
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeAppointmentRepo) ExistsAtSlot(_ context.Context, serviceID uuid.UUID, scheduledAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, apt := range f.appointments {
		if apt.ServiceID == serviceID && apt.ScheduledAt.Equal(scheduledAt) && !apt.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppointmentRepo) UpdateStatusFrom(_ context.Context, id uuid.UUID, from []model.AppointmentStatus, to model.AppointmentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.appointments[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if apt.Status == s {
			apt.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppointmentRepo) CheckIn(_ context.Context, id uuid.UUID, attendedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.appointments[id]
	if !ok || apt.Status != model.AppointmentStatusScheduled {
		return false, nil
	}
	apt.Status = model.AppointmentStatusCheckedIn
	apt.AttendedAt = &attendedAt
	return true, nil
}

func (f *fakeAppointmentRepo) Cancel(_ context.Context, id uuid.UUID, reason *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.appointments[id]
	if !ok || apt.Status != model.AppointmentStatusScheduled {
		return false, nil
	}
	apt.Status = model.AppointmentStatusCancelled
	apt.CancelReason = reason
	return true, nil
}

func (f *fakeAppointmentRepo) Reschedule(_ context.Context, entry *model.RescheduleHistoryEntry, rescheduledAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.appointments[entry.AppointmentID]
	if !ok || apt.Status != model.AppointmentStatusScheduled || !apt.ScheduledAt.Equal(entry.OriginalScheduledAt) {
		return false, nil
	}
	f.history = append(f.history, entry)
	apt.ScheduledAt = entry.NewScheduledAt
	apt.RescheduledAt = &rescheduledAt
	return true, nil
}

func (f *fakeAppointmentRepo) ListRescheduleHistory(_ context.Context, appointmentID uuid.UUID) ([]*model.RescheduleHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RescheduleHistoryEntry
	for _, e := range f.history {
		if e.AppointmentID == appointmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAppointmentRepo) ListScheduledBetween(_ context.Context, from, to time.Time) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range f.appointments {
		if apt.Status == model.AppointmentStatusScheduled && !apt.ScheduledAt.Before(from) && apt.ScheduledAt.Before(to) {
			copied := *apt
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) AppointmentCreated(_ context.Context, _ *model.Appointment) {
	f.record(model.EventAppointmentCreated)
}
func (f *fakeNotifier) AppointmentCancelled(_ context.Context, _ *model.Appointment) {
	f.record(model.EventAppointmentCancelled)
}
func (f *fakeNotifier) AppointmentRescheduled(_ context.Context, _ *model.Appointment, _ *model.RescheduleHistoryEntry) {
	f.record(model.EventAppointmentRescheduled)
}
func (f *fakeNotifier) AppointmentCheckedIn(_ context.Context, _ *model.Appointment) {
	f.record(model.EventAppointmentCheckedIn)
}
func (f *fakeNotifier) AppointmentReminder(_ context.Context, _ *model.Appointment) {
	f.record(model.EventAppointmentReminder)
}
func (f *fakeNotifier) QueueCalled(_ context.Context, _ notification.QueueCalledPayload) {
	f.record(model.EventQueueCalled)
}

var _ notification.Service = (*fakeNotifier)(nil)

type fixture struct {
	svc        *Service
	repo       *fakeAppointmentRepo
	branchRepo *fakeBranchRepo
	notifier   *fakeNotifier
	branchID   uuid.UUID
	serviceID  uuid.UUID
	branch     *model.Branch
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	branchRepo := newFakeBranchRepo()
	b := &model.Branch{
		Base:                  model.Base{ID: uuid.New()},
		Name:                  "Central",
		IsActive:              true,
		CancellationHours:     24,
		RescheduleLimitHours:  12,
		MaxAdvanceBookingDays: 30,
		RemindersEnabled:      true,
	}
	branchRepo.branches[b.ID] = b

	svcModel := &model.Service{
		Base:     model.Base{ID: uuid.New()},
		BranchID: b.ID,
		Name:     "Passport renewal",
		Duration: 30,
		IsActive: true,
	}
	branchRepo.services[svcModel.ID] = svcModel

	// Open every day so date arithmetic in tests stays simple.
	for day := 0; day < 7; day++ {
		branchRepo.schedules[svcModel.ID] = append(branchRepo.schedules[svcModel.ID], &model.Schedule{
			ServiceID: svcModel.ID,
			DayOfWeek: day,
			StartTime: "08:00",
			EndTime:   "18:00",
		})
	}

	aptRepo := newFakeAppointmentRepo()
	notifier := &fakeNotifier{}

	branchSvc := branch.NewService(branchRepo)
	slotSvc := slot.NewService(branchRepo, aptRepo)
	svc := NewService(aptRepo, branchSvc, slotSvc, notifier, testMetrics)
	svc.now = func() time.Time { return testNow }

	return &fixture{
		svc:        svc,
		repo:       aptRepo,
		branchRepo: branchRepo,
		notifier:   notifier,
		branchID:   b.ID,
		serviceID:  svcModel.ID,
		branch:     b,
	}
}

func (fx *fixture) createRequest(scheduledAt time.Time) *model.CreateAppointmentRequest {
	return &model.CreateAppointmentRequest{
		BranchID:      fx.branchID,
		ServiceID:     fx.serviceID,
		ScheduledAt:   scheduledAt,
		CustomerName:  "Dana Petrov",
		CustomerEmail: "dana@example.com",
	}
}

func (fx *fixture) seed(t *testing.T, scheduledAt time.Time, userID uuid.UUID, status model.AppointmentStatus) *model.Appointment {
	t.Helper()
	apt := &model.Appointment{
		Base:             model.Base{ID: uuid.New()},
		ConfirmationCode: fmt.Sprintf("SEED-%04d", len(fx.repo.appointments)),
		BranchID:         fx.branchID,
		ServiceID:        fx.serviceID,
		UserID:           userID,
		CustomerName:     "Dana Petrov",
		CustomerEmail:    "dana@example.com",
		ScheduledAt:      scheduledAt,
		Status:           status,
	}
	require.NoError(t, fx.repo.Create(context.Background(), apt))
	return apt
}

func userActor(id uuid.UUID) model.Actor {
	return model.Actor{ID: id, Username: "customer", Role: model.RoleUser}
}

func staffActor(branchID uuid.UUID) model.Actor {
	return model.Actor{ID: uuid.New(), Username: "clerk", Role: model.RoleStaff, BranchID: &branchID}
}

func adminActor() model.Actor {
	return model.Actor{ID: uuid.New(), Username: "ops", Role: model.RoleAdmin}
}

// Tomorrow at 10:00, always on the slot grid.
func tomorrowTen() time.Time {
	return testNow.AddDate(0, 0, 1)
}

func TestCreateAppointment(t *testing.T) {
	fx := newFixture(t)
	actor := userActor(uuid.New())

	apt, err := fx.svc.Create(context.Background(), fx.createRequest(tomorrowTen()), actor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusScheduled, apt.Status)
	assert.Equal(t, actor.ID, apt.UserID)
	assert.Len(t, apt.ConfirmationCode, 9)
	assert.Equal(t, byte('-'), apt.ConfirmationCode[4])
	assert.Equal(t, []string{model.EventAppointmentCreated}, fx.notifier.events)

	stored, err := fx.repo.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, apt.ConfirmationCode, stored.ConfirmationCode)
}

func TestCreateBeyondBookingHorizon(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Create(context.Background(), fx.createRequest(testNow.AddDate(0, 0, 31)), userActor(uuid.New()))
	assert.Equal(t, apperrors.CodePolicyViolation, apperrors.CodeOf(err))
}

func TestCreateOffGridTime(t *testing.T) {
	fx := newFixture(t)

	// 10:10 is not a multiple of the 30-minute grid.
	_, err := fx.svc.Create(context.Background(), fx.createRequest(tomorrowTen().Add(10*time.Minute)), userActor(uuid.New()))
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestCreateTakenSlot(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t, tomorrowTen(), uuid.New(), model.AppointmentStatusScheduled)

	_, err := fx.svc.Create(context.Background(), fx.createRequest(tomorrowTen()), userActor(uuid.New()))
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestCreateCancelledSlotIsFreeAgain(t *testing.T) {
	fx := newFixture(t)
	fx.seed(t, tomorrowTen(), uuid.New(), model.AppointmentStatusCancelled)

	_, err := fx.svc.Create(context.Background(), fx.createRequest(tomorrowTen()), userActor(uuid.New()))
	assert.NoError(t, err)
}

func TestCreateServiceBranchMismatch(t *testing.T) {
	fx := newFixture(t)

	foreign := &model.Service{
		Base:     model.Base{ID: uuid.New()},
		BranchID: uuid.New(),
		Name:     "Visa interview",
		Duration: 30,
		IsActive: true,
	}
	fx.branchRepo.services[foreign.ID] = foreign

	req := fx.createRequest(tomorrowTen())
	req.ServiceID = foreign.ID

	_, err := fx.svc.Create(context.Background(), req, userActor(uuid.New()))
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestCancelInsideWindow(t *testing.T) {
	fx := newFixture(t)
	owner := uuid.New()
	apt := fx.seed(t, testNow.AddDate(0, 0, 3), owner, model.AppointmentStatusScheduled)

	got, err := fx.svc.Cancel(context.Background(), apt.ID, "travel", userActor(owner))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, "travel", *got.CancelReason)
	assert.Contains(t, fx.notifier.events, model.EventAppointmentCancelled)
}

func TestCancelAfterDeadline(t *testing.T) {
	fx := newFixture(t)
	owner := uuid.New()
	// 23h out with a 24h window: the deadline has passed.
	apt := fx.seed(t, testNow.Add(23*time.Hour), owner, model.AppointmentStatusScheduled)

	_, err := fx.svc.Cancel(context.Background(), apt.ID, "", userActor(owner))
	assert.Equal(t, apperrors.CodePolicyViolation, apperrors.CodeOf(err))
}

func TestCancelAfterDeadlineEmergencyAdmin(t *testing.T) {
	fx := newFixture(t)
	fx.branch.EmergencyMode = true
	apt := fx.seed(t, testNow.Add(23*time.Hour), uuid.New(), model.AppointmentStatusScheduled)

	_, err := fx.svc.Cancel(context.Background(), apt.ID, "branch closure", adminActor())
	assert.NoError(t, err)
}

func TestCancelAfterDeadlineEmergencyDoesNotCoverUsers(t *testing.T) {
	fx := newFixture(t)
	fx.branch.EmergencyMode = true
	owner := uuid.New()
	apt := fx.seed(t, testNow.Add(23*time.Hour), owner, model.AppointmentStatusScheduled)

	_, err := fx.svc.Cancel(context.Background(), apt.ID, "", userActor(owner))
	assert.Equal(t, apperrors.CodePolicyViolation, apperrors.CodeOf(err))
}

func TestCancelWrongStatus(t *testing.T) {
	fx := newFixture(t)
	owner := uuid.New()
	apt := fx.seed(t, testNow.AddDate(0, 0, 3), owner, model.AppointmentStatusCompleted)

	_, err := fx.svc.Cancel(context.Background(), apt.ID, "", userActor(owner))
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestCancelForeignAppointment(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, testNow.AddDate(0, 0, 3), uuid.New(), model.AppointmentStatusScheduled)

	_, err := fx.svc.Cancel(context.Background(), apt.ID, "", userActor(uuid.New()))
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestRescheduleWritesAuditEntry(t *testing.T) {
	fx := newFixture(t)
	owner := uuid.New()
	original := testNow.AddDate(0, 0, 3)
	apt := fx.seed(t, original, owner, model.AppointmentStatusScheduled)

	newTime := original.Add(2 * time.Hour)
	got, err := fx.svc.Reschedule(context.Background(), apt.ID, &model.RescheduleAppointmentRequest{
		ScheduledAt: newTime,
		Reason:      "conflict",
	}, userActor(owner))
	require.NoError(t, err)

	assert.True(t, got.ScheduledAt.Equal(newTime))
	assert.Equal(t, model.AppointmentStatusScheduled, got.Status)
	require.NotNil(t, got.RescheduledAt)

	history, err := fx.svc.GetRescheduleHistory(context.Background(), apt.ID, userActor(owner))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].OriginalScheduledAt.Equal(original))
	assert.True(t, history[0].NewScheduledAt.Equal(newTime))
	assert.Equal(t, string(model.RoleUser), history[0].ActorRole)
	assert.Contains(t, fx.notifier.events, model.EventAppointmentRescheduled)
}

func TestRescheduleAfterDeadline(t *testing.T) {
	fx := newFixture(t)
	owner := uuid.New()
	// 11h out with a 12h reschedule window.
	apt := fx.seed(t, testNow.Add(11*time.Hour), owner, model.AppointmentStatusScheduled)

	_, err := fx.svc.Reschedule(context.Background(), apt.ID, &model.RescheduleAppointmentRequest{
		ScheduledAt: testNow.AddDate(0, 0, 3),
	}, userActor(owner))
	assert.Equal(t, apperrors.CodePolicyViolation, apperrors.CodeOf(err))
}

func TestRescheduleToTakenSlot(t *testing.T) {
	fx := newFixture(t)
	owner := uuid.New()
	target := testNow.AddDate(0, 0, 4)
	fx.seed(t, target, uuid.New(), model.AppointmentStatusScheduled)
	apt := fx.seed(t, testNow.AddDate(0, 0, 3), owner, model.AppointmentStatusScheduled)

	_, err := fx.svc.Reschedule(context.Background(), apt.ID, &model.RescheduleAppointmentRequest{
		ScheduledAt: target,
	}, userActor(owner))
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestCheckInByConfirmationCode(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, testNow.Add(2*time.Hour), uuid.New(), model.AppointmentStatusScheduled)

	got, err := fx.svc.CheckIn(context.Background(), &model.CheckInRequest{ConfirmationCode: apt.ConfirmationCode})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCheckedIn, got.Status)
	require.NotNil(t, got.AttendedAt)
	assert.True(t, got.AttendedAt.Equal(testNow))
	assert.Contains(t, fx.notifier.events, model.EventAppointmentCheckedIn)
}

func TestCheckInByQRPayload(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, testNow.Add(2*time.Hour), uuid.New(), model.AppointmentStatusScheduled)

	got, err := fx.svc.CheckIn(context.Background(), &model.CheckInRequest{
		QRPayload: fmt.Sprintf(`{"confirmation_code":%q}`, apt.ConfirmationCode),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCheckedIn, got.Status)
}

func TestCheckInWrongDay(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, tomorrowTen(), uuid.New(), model.AppointmentStatusScheduled)

	_, err := fx.svc.CheckIn(context.Background(), &model.CheckInRequest{ConfirmationCode: apt.ConfirmationCode})
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestCheckInAlreadyProcessed(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, testNow.Add(2*time.Hour), uuid.New(), model.AppointmentStatusCheckedIn)

	_, err := fx.svc.CheckIn(context.Background(), &model.CheckInRequest{ConfirmationCode: apt.ConfirmationCode})
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestCheckInNoIdentifier(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.CheckIn(context.Background(), &model.CheckInRequest{})
	assert.Equal(t, apperrors.CodeAmbiguousInput, apperrors.CodeOf(err))
}

func TestCheckInConflictingIdentifiers(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, testNow.Add(2*time.Hour), uuid.New(), model.AppointmentStatusScheduled)

	_, err := fx.svc.CheckIn(context.Background(), &model.CheckInRequest{
		QRPayload:        fmt.Sprintf(`{"confirmation_code":%q}`, apt.ConfirmationCode),
		ConfirmationCode: "ZZZZ-9999",
	})
	assert.Equal(t, apperrors.CodeAmbiguousInput, apperrors.CodeOf(err))
}

func TestCheckInMalformedQR(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.CheckIn(context.Background(), &model.CheckInRequest{QRPayload: "not json"})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}

func TestMarkCompleted(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, testNow.Add(-time.Hour), uuid.New(), model.AppointmentStatusCheckedIn)

	got, err := fx.svc.MarkCompleted(context.Background(), apt.ID, staffActor(fx.branchID))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)
}

func TestMarkCompletedRequiresCheckIn(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, testNow.Add(-time.Hour), uuid.New(), model.AppointmentStatusScheduled)

	_, err := fx.svc.MarkCompleted(context.Background(), apt.ID, staffActor(fx.branchID))
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestMarkCompletedRequiresStaff(t *testing.T) {
	fx := newFixture(t)
	owner := uuid.New()
	apt := fx.seed(t, testNow.Add(-time.Hour), owner, model.AppointmentStatusCheckedIn)

	_, err := fx.svc.MarkCompleted(context.Background(), apt.ID, userActor(owner))
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestMarkNoShowBeforeWindowEnds(t *testing.T) {
	fx := newFixture(t)
	// Started 10 minutes ago; the 30-minute window is still open.
	apt := fx.seed(t, testNow.Add(-10*time.Minute), uuid.New(), model.AppointmentStatusScheduled)

	_, err := fx.svc.MarkNoShow(context.Background(), apt.ID, staffActor(fx.branchID))
	assert.Equal(t, apperrors.CodePolicyViolation, apperrors.CodeOf(err))
}

func TestMarkNoShowAfterWindow(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, testNow.Add(-time.Hour), uuid.New(), model.AppointmentStatusScheduled)

	got, err := fx.svc.MarkNoShow(context.Background(), apt.ID, staffActor(fx.branchID))
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusNoShow, got.Status)
}

func TestListScoping(t *testing.T) {
	fx := newFixture(t)
	mine := uuid.New()
	fx.seed(t, testNow.AddDate(0, 0, 2), mine, model.AppointmentStatusScheduled)
	fx.seed(t, testNow.AddDate(0, 0, 3), uuid.New(), model.AppointmentStatusScheduled)

	own, err := fx.svc.List(context.Background(), &model.AppointmentFilters{}, userActor(mine))
	require.NoError(t, err)
	assert.Len(t, own, 1)

	all, err := fx.svc.List(context.Background(), &model.AppointmentFilters{}, adminActor())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	branchScoped, err := fx.svc.List(context.Background(), &model.AppointmentFilters{}, staffActor(fx.branchID))
	require.NoError(t, err)
	assert.Len(t, branchScoped, 2)
}

func TestTrackByCode(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seed(t, tomorrowTen(), uuid.New(), model.AppointmentStatusScheduled)

	got, err := fx.svc.Track(context.Background(), apt.ConfirmationCode)
	require.NoError(t, err)
	assert.Equal(t, apt.ID, got.ID)
}
