package callout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qline/booking-api/internal/repository"
	"github.com/qline/booking-api/internal/service/notification"
	"github.com/qline/booking-api/pkg/logger"
	"github.com/qline/booking-api/pkg/metrics"
)

const DefaultPollInterval = 3 * time.Second

// Poller drives one Engine per branch: it refreshes queue snapshots on a
// fixed interval, forwards new call-outs to the notifier, and rotates the
// display pages on their own timer.
type Poller struct {
	branchRepo repository.BranchRepository
	queueRepo  repository.QueueRepository
	notifier   notification.Service
	metrics    *metrics.Metrics
	logger     *logger.Logger

	pollInterval   time.Duration
	rotateInterval time.Duration

	mu      sync.RWMutex
	engines map[uuid.UUID]*Engine
}

func NewPoller(
	branchRepo repository.BranchRepository,
	queueRepo repository.QueueRepository,
	notifier notification.Service,
	metrics *metrics.Metrics,
	logger *logger.Logger,
	pollInterval time.Duration,
) *Poller {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Poller{
		branchRepo:     branchRepo,
		queueRepo:      queueRepo,
		notifier:       notifier,
		metrics:        metrics,
		logger:         logger,
		pollInterval:   pollInterval,
		rotateInterval: RotateInterval,
		engines:        make(map[uuid.UUID]*Engine),
	}
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("call-out poller started",
		"poll_interval", p.pollInterval.String(),
		"rotate_interval", p.rotateInterval.String())

	poll := time.NewTicker(p.pollInterval)
	defer poll.Stop()
	rotate := time.NewTicker(p.rotateInterval)
	defer rotate.Stop()

	p.pollAll(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("call-out poller stopped")
			return
		case <-poll.C:
			p.pollAll(ctx)
		case <-rotate.C:
			p.rotateAll()
		}
	}
}

// DisplayState returns the current display page for a branch. The zero
// state is returned for branches the poller has not yet observed.
func (p *Poller) DisplayState(branchID uuid.UUID) DisplayState {
	p.mu.RLock()
	engine, ok := p.engines[branchID]
	p.mu.RUnlock()
	if !ok {
		return DisplayState{}
	}
	return engine.Snapshot()
}

func (p *Poller) engineFor(branchID uuid.UUID) *Engine {
	p.mu.Lock()
	defer p.mu.Unlock()
	engine, ok := p.engines[branchID]
	if !ok {
		engine = NewEngine()
		p.engines[branchID] = engine
	}
	return engine
}

func (p *Poller) pollAll(ctx context.Context) {
	branches, err := p.branchRepo.ListBranches(ctx)
	if err != nil {
		p.logger.Error(err, "failed to list branches for call-out poll")
		p.markAllStale()
		return
	}

	for _, branch := range branches {
		if !branch.IsActive {
			continue
		}
		p.pollBranch(ctx, branch.ID)
	}
}

func (p *Poller) pollBranch(ctx context.Context, branchID uuid.UUID) {
	engine := p.engineFor(branchID)

	entries, err := p.queueRepo.Snapshot(ctx, branchID)
	if err != nil {
		p.logger.Error(err, "queue snapshot failed, retaining display state", "branch_id", branchID.String())
		engine.MarkStale()
		return
	}

	points, err := p.branchRepo.ListServicePoints(ctx, branchID)
	if err != nil {
		p.logger.Error(err, "service point lookup failed, retaining display state", "branch_id", branchID.String())
		engine.MarkStale()
		return
	}
	pointNames := make(map[uuid.UUID]string, len(points))
	for _, sp := range points {
		pointNames[sp.ID] = sp.Name
	}

	for _, a := range engine.Evaluate(entries, pointNames) {
		p.notifier.QueueCalled(ctx, notification.QueueCalledPayload{
			QueueEntryID:     a.QueueEntryID.String(),
			BranchID:         branchID.String(),
			ServicePointName: a.ServicePointName,
			ConfirmationCode: a.ConfirmationCode,
			Priority:         string(a.Priority),
		})
		p.metrics.CallOutsEmitted.Inc()
		p.logger.Info("call-out announced",
			"branch_id", branchID.String(),
			"service_point", a.ServicePointName,
			"confirmation_code", a.ConfirmationCode,
			"priority", string(a.Priority))
	}
}

func (p *Poller) rotateAll() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, engine := range p.engines {
		engine.Rotate()
	}
}

func (p *Poller) markAllStale() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, engine := range p.engines {
		engine.MarkStale()
	}
}
