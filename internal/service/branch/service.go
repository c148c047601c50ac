package branch

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/qline/booking-api/internal/model"
	"github.com/qline/booking-api/internal/repository"
	apperrors "github.com/qline/booking-api/pkg/errors"
)

// Policy snapshots are cached briefly: branch settings are read on every
// guarded operation but change rarely. The TTL bounds how long a toggled
// emergency mode takes to reach guard evaluations.
const policyCacheTTL = 15 * time.Second

type Service struct {
	repo  repository.BranchRepository
	cache *gocache.Cache
}

func NewService(repo repository.BranchRepository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(policyCacheTTL, time.Minute),
	}
}

func (s *Service) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	return s.repo.GetBranch(ctx, id)
}

func (s *Service) ListBranches(ctx context.Context) ([]*model.Branch, error) {
	return s.repo.ListBranches(ctx)
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	return s.repo.GetService(ctx, id)
}

func (s *Service) ListServices(ctx context.Context, branchID uuid.UUID) ([]*model.Service, error) {
	return s.repo.ListServices(ctx, branchID)
}

func (s *Service) ListSchedules(ctx context.Context, serviceID uuid.UUID) ([]*model.Schedule, error) {
	return s.repo.ListSchedules(ctx, serviceID)
}

func (s *Service) GetServicePoint(ctx context.Context, id uuid.UUID) (*model.ServicePoint, error) {
	return s.repo.GetServicePoint(ctx, id)
}

func (s *Service) ListServicePoints(ctx context.Context, branchID uuid.UUID) ([]*model.ServicePoint, error) {
	return s.repo.ListServicePoints(ctx, branchID)
}

// PolicySnapshot returns the branch policy as a value. A single guard
// evaluation works off one snapshot; concurrent admin edits become visible
// only to later evaluations.
func (s *Service) PolicySnapshot(ctx context.Context, branchID uuid.UUID) (model.BranchPolicy, error) {
	if cached, ok := s.cache.Get(branchID.String()); ok {
		return cached.(model.BranchPolicy), nil
	}

	branch, err := s.repo.GetBranch(ctx, branchID)
	if err != nil {
		return model.BranchPolicy{}, err
	}
	if !branch.IsActive {
		return model.BranchPolicy{}, apperrors.NotFound("branch")
	}

	policy := branch.Policy()
	s.cache.Set(branchID.String(), policy, policyCacheTTL)
	return policy, nil
}

// UpdatePolicy applies a partial policy update. Admin only.
func (s *Service) UpdatePolicy(ctx context.Context, branchID uuid.UUID, req *model.UpdateBranchPolicyRequest, actor model.Actor) (*model.Branch, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Unauthorized("only admins may change branch policy")
	}

	branch, err := s.repo.GetBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	if req.CancellationHours != nil {
		branch.CancellationHours = *req.CancellationHours
	}
	if req.RescheduleLimitHours != nil {
		branch.RescheduleLimitHours = *req.RescheduleLimitHours
	}
	if req.MaxAdvanceBookingDays != nil {
		branch.MaxAdvanceBookingDays = *req.MaxAdvanceBookingDays
	}
	if req.RemindersEnabled != nil {
		branch.RemindersEnabled = *req.RemindersEnabled
	}
	if req.EmergencyMode != nil {
		branch.EmergencyMode = *req.EmergencyMode
	}

	if err := s.repo.UpdateBranchPolicy(ctx, branch); err != nil {
		return nil, err
	}
	s.cache.Delete(branchID.String())
	return branch, nil
}
