package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/service/branch"
	"github.com/qline/booking-api/internal/service/notification"
	apperrors "github.com/qline/booking-api/pkg/errors"
	"github.com/qline/booking-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("queue_test")

var testNow = time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*model.QueueEntry
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: make(map[uuid.UUID]*model.QueueEntry)}
}

func (f *fakeQueueRepo) Admit(_ context.Context, entry *model.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.AppointmentID == entry.AppointmentID && !e.Status.IsTerminal() {
			return apperrors.Conflict("appointment already has an active queue entry")
		}
	}
	copied := *entry
	copied.CreatedAt = testNow
	f.entries[entry.ID] = &copied
	entry.CreatedAt = copied.CreatedAt
	return nil
}

func (f *fakeQueueRepo) Get(_ context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return nil, apperrors.NotFound("queue entry")
	}
	copied := *e
	return &copied, nil
}

func (f *fakeQueueRepo) GetActiveByAppointment(_ context.Context, appointmentID uuid.UUID) (*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.AppointmentID == appointmentID && !e.Status.IsTerminal() {
			copied := *e
			return &copied, nil
		}
	}
	return nil, apperrors.NotFound("queue entry")
}

func (f *fakeQueueRepo) List(_ context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.QueueEntry
	for _, e := range f.entries {
		if filters.BranchID != uuid.Nil && e.BranchID != filters.BranchID {
			continue
		}
		if filters.ServicePointID != uuid.Nil && e.ServicePointID != filters.ServicePointID {
			continue
		}
		if filters.Status != "" && e.Status != filters.Status {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeQueueRepo) Snapshot(_ context.Context, branchID uuid.UUID) ([]*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.QueueEntry
	for _, e := range f.entries {
		if e.BranchID == branchID && !e.Status.IsTerminal() {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeQueueRepo) AdvanceFrom(_ context.Context, id uuid.UUID, from, to model.QueueEntryStatus, calledAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Status != from {
		return false, nil
	}
	e.Status = to
	if calledAt != nil {
		e.CalledAt = calledAt
	}
	return true, nil
}

func (f *fakeQueueRepo) Transfer(_ context.Context, id, servicePointID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || e.Status.IsTerminal() {
		return false, nil
	}
	e.ServicePointID = servicePointID
	return true, nil
}

// Minimal appointment repo: only Get is exercised by the queue service.
type fakeAppointmentRepo struct {
	appointments map[uuid.UUID]*model.Appointment
}

func (f *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, ok := f.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	return apt, nil
}

func (f *fakeAppointmentRepo) Create(context.Context, *model.Appointment) error { return nil }
func (f *fakeAppointmentRepo) GetByConfirmationCode(context.Context, string) (*model.Appointment, error) {
	return nil, apperrors.NotFound("appointment")
}
func (f *fakeAppointmentRepo) List(context.Context, *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeAppointmentRepo) ExistsAtSlot(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}
func (f *fakeAppointmentRepo) UpdateStatusFrom(context.Context, uuid.UUID, []model.AppointmentStatus, model.AppointmentStatus) (bool, error) {
	return false, nil
}
func (f *fakeAppointmentRepo) CheckIn(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}
func (f *fakeAppointmentRepo) Cancel(context.Context, uuid.UUID, *string) (bool, error) {
	return false, nil
}
func (f *fakeAppointmentRepo) Reschedule(context.Context, *model.RescheduleHistoryEntry, time.Time) (bool, error) {
	return false, nil
}
func (f *fakeAppointmentRepo) ListRescheduleHistory(context.Context, uuid.UUID) ([]*model.RescheduleHistoryEntry, error) {
	return nil, nil
}
func (f *fakeAppointmentRepo) ListScheduledBetween(context.Context, time.Time, time.Time) ([]*model.Appointment, error) {
	return nil, nil
}

type fakeBranchRepo struct {
	branches map[uuid.UUID]*model.Branch
	points   map[uuid.UUID]*model.ServicePoint
}

func (f *fakeBranchRepo) GetBranch(_ context.Context, id uuid.UUID) (*model.Branch, error) {
	b, ok := f.branches[id]
	if !ok {
		return nil, apperrors.NotFound("branch")
	}
	return b, nil
}
func (f *fakeBranchRepo) ListBranches(context.Context) ([]*model.Branch, error) { return nil, nil }
func (f *fakeBranchRepo) UpdateBranchPolicy(context.Context, *model.Branch) error {
	return nil
}
func (f *fakeBranchRepo) GetService(context.Context, uuid.UUID) (*model.Service, error) {
	return nil, apperrors.NotFound("service")
}
func (f *fakeBranchRepo) ListServices(context.Context, uuid.UUID) ([]*model.Service, error) {
	return nil, nil
}
func (f *fakeBranchRepo) ListSchedules(context.Context, uuid.UUID) ([]*model.Schedule, error) {
	return nil, nil
}
func (f *fakeBranchRepo) GetServicePoint(_ context.Context, id uuid.UUID) (*model.ServicePoint, error) {
	p, ok := f.points[id]
	if !ok {
		return nil, apperrors.NotFound("service point")
	}
	return p, nil
}
func (f *fakeBranchRepo) ListServicePoints(context.Context, uuid.UUID) ([]*model.ServicePoint, error) {
	return nil, nil
}

type fakeNotifier struct{}

func (fakeNotifier) AppointmentCreated(context.Context, *model.Appointment)   {}
func (fakeNotifier) AppointmentCancelled(context.Context, *model.Appointment) {}
func (fakeNotifier) AppointmentRescheduled(context.Context, *model.Appointment, *model.RescheduleHistoryEntry) {
}
func (fakeNotifier) AppointmentCheckedIn(context.Context, *model.Appointment)        {}
func (fakeNotifier) AppointmentReminder(context.Context, *model.Appointment)         {}
func (fakeNotifier) QueueCalled(context.Context, notification.QueueCalledPayload)    {}

type fixture struct {
	svc       *Service
	queueRepo *fakeQueueRepo
	aptRepo   *fakeAppointmentRepo
	branchID  uuid.UUID
	pointID   uuid.UUID
	otherPt   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	branchID := uuid.New()
	pointID := uuid.New()
	otherPt := uuid.New()

	branchRepo := &fakeBranchRepo{
		branches: map[uuid.UUID]*model.Branch{},
		points: map[uuid.UUID]*model.ServicePoint{
			pointID: {Base: model.Base{ID: pointID}, BranchID: branchID, Name: "Counter 1", IsActive: true},
			otherPt: {Base: model.Base{ID: otherPt}, BranchID: branchID, Name: "Counter 2", IsActive: true},
		},
	}

	queueRepo := newFakeQueueRepo()
	aptRepo := &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}

	svc := NewService(queueRepo, aptRepo, branch.NewService(branchRepo), fakeNotifier{}, testMetrics)
	svc.now = func() time.Time { return testNow }

	return &fixture{
		svc:       svc,
		queueRepo: queueRepo,
		aptRepo:   aptRepo,
		branchID:  branchID,
		pointID:   pointID,
		otherPt:   otherPt,
	}
}

func (fx *fixture) seedAppointment(status model.AppointmentStatus) *model.Appointment {
	apt := &model.Appointment{
		Base:             model.Base{ID: uuid.New()},
		ConfirmationCode: "ABCD-2345",
		BranchID:         fx.branchID,
		ServiceID:        uuid.New(),
		UserID:           uuid.New(),
		ScheduledAt:      testNow,
		Status:           status,
	}
	fx.aptRepo.appointments[apt.ID] = apt
	return apt
}

func staffActor(branchID uuid.UUID) model.Actor {
	return model.Actor{ID: uuid.New(), Username: "clerk", Role: model.RoleStaff, BranchID: &branchID}
}

func TestAdmitCheckedInAppointment(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)

	entry, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, staffActor(fx.branchID))
	require.NoError(t, err)

	assert.Equal(t, model.QueueStatusWaiting, entry.Status)
	assert.Equal(t, apt.ConfirmationCode, entry.ConfirmationCode)
	assert.Equal(t, fx.branchID, entry.BranchID)
}

func TestAdmitRequiresCheckIn(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusScheduled)

	_, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, staffActor(fx.branchID))
	assert.Equal(t, apperrors.CodeInvalidState, apperrors.CodeOf(err))
}

func TestAdmitTwiceConflicts(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)
	actor := staffActor(fx.branchID)
	req := &model.AdmitRequest{AppointmentID: apt.ID, ServicePointID: fx.pointID}

	_, err := fx.svc.Admit(context.Background(), req, actor)
	require.NoError(t, err)

	_, err = fx.svc.Admit(context.Background(), req, actor)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestAdmitAgainAfterTerminalEntry(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)
	actor := staffActor(fx.branchID)
	req := &model.AdmitRequest{AppointmentID: apt.ID, ServicePointID: fx.pointID}

	entry, err := fx.svc.Admit(context.Background(), req, actor)
	require.NoError(t, err)

	_, err = fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusCancelled, actor)
	require.NoError(t, err)

	// The terminal entry no longer blocks a fresh admission.
	_, err = fx.svc.Admit(context.Background(), req, actor)
	assert.NoError(t, err)
}

func TestAdmitRequiresStaff(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)

	_, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, model.Actor{ID: apt.UserID, Role: model.RoleUser})
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestAdvanceToServingStampsCalledAt(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)
	actor := staffActor(fx.branchID)

	entry, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, actor)
	require.NoError(t, err)

	serving, err := fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusServing, actor)
	require.NoError(t, err)
	assert.Equal(t, model.QueueStatusServing, serving.Status)
	require.NotNil(t, serving.CalledAt)
	assert.True(t, serving.CalledAt.Equal(testNow))
}

func TestAdvanceIllegalTransitions(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)
	actor := staffActor(fx.branchID)

	entry, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, actor)
	require.NoError(t, err)

	// waiting -> completed skips serving.
	_, err = fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusCompleted, actor)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))

	// waiting -> waiting is not a transition.
	_, err = fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusWaiting, actor)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))

	_, err = fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusServing, actor)
	require.NoError(t, err)
	_, err = fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusCompleted, actor)
	require.NoError(t, err)

	// Terminal entries admit nothing.
	_, err = fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusServing, actor)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
}

func TestTransferPreservesCalledAt(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)
	actor := staffActor(fx.branchID)

	entry, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, actor)
	require.NoError(t, err)
	serving, err := fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusServing, actor)
	require.NoError(t, err)

	moved, err := fx.svc.Transfer(context.Background(), entry.ID, &model.TransferQueueRequest{
		ServicePointID: fx.otherPt,
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, fx.otherPt, moved.ServicePointID)
	assert.Equal(t, model.QueueStatusServing, moved.Status)

	stored, err := fx.queueRepo.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CalledAt)
	assert.True(t, stored.CalledAt.Equal(*serving.CalledAt))
	assert.True(t, stored.CreatedAt.Equal(entry.CreatedAt))
}

func TestTransferTerminalEntry(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)
	actor := staffActor(fx.branchID)

	entry, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, actor)
	require.NoError(t, err)
	_, err = fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusCancelled, actor)
	require.NoError(t, err)

	_, err = fx.svc.Transfer(context.Background(), entry.ID, &model.TransferQueueRequest{
		ServicePointID: fx.otherPt,
	}, actor)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
}

func TestAdvanceOutsideBranchScope(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)
	actor := staffActor(fx.branchID)

	entry, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, actor)
	require.NoError(t, err)

	foreign := staffActor(uuid.New())
	_, err = fx.svc.Advance(context.Background(), entry.ID, model.QueueStatusServing, foreign)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))
}

func TestListScopedToStaffBranch(t *testing.T) {
	fx := newFixture(t)
	apt := fx.seedAppointment(model.AppointmentStatusCheckedIn)
	actor := staffActor(fx.branchID)

	_, err := fx.svc.Admit(context.Background(), &model.AdmitRequest{
		AppointmentID:  apt.ID,
		ServicePointID: fx.pointID,
	}, actor)
	require.NoError(t, err)

	entries, err := fx.svc.List(context.Background(), &model.QueueFilters{}, actor)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	foreign := staffActor(uuid.New())
	entries, err = fx.svc.List(context.Background(), &model.QueueFilters{}, foreign)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
