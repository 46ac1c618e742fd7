package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/logger"
	"github.com/isrcanalytics/streamledger/internal/providers/temporal"
	"github.com/isrcanalytics/streamledger/internal/workflows"
)

// TenantSource lists the tenants a maintenance sweep fans out over.
// Satisfied by store.Store.
type TenantSource interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// BackfillSweeperConfig holds configuration for the backfill sweeper
type BackfillSweeperConfig struct {
	// Interval between self-heal cycles
	Interval time.Duration
	// WorkerPoolSize bounds concurrent workflow starts
	WorkerPoolSize int
	TaskQueue      string
}

// backfillSweeper periodically starts a full recompute of every tenant's
// catalogue. Delta derivation is deterministic from snapshots, so the sweep
// repairs any drift left behind by missed events without double counting.
type backfillSweeper struct {
	config       BackfillSweeperConfig
	store        TenantSource
	orchestrator temporal.TemporalOrchestrator
	clock        adapter.Clock
	pool         pond.Pool
	running      atomic.Bool
	stopChan     chan struct{}
	stoppedCh    chan struct{}
}

// NewBackfillSweeper creates a new backfill sweeper
func NewBackfillSweeper(
	config BackfillSweeperConfig,
	st TenantSource,
	orchestrator temporal.TemporalOrchestrator,
	clock adapter.Clock,
) Sweeper {
	return &backfillSweeper{
		config:       config,
		store:        st,
		orchestrator: orchestrator,
		clock:        clock,
		stopChan:     make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *backfillSweeper) Name() string {
	return "backfill-sweeper"
}

// Start begins the sweeper's main loop
func (s *backfillSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting backfill sweeper",
		zap.Duration("interval", s.config.Interval),
		zap.Int("worker_pool_size", s.config.WorkerPoolSize),
	)

	for {
		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Backfill sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
			return nil
		case <-s.stopChan:
			logger.InfoCtx(ctx, "Backfill sweeper stop requested")
			return nil
		default:
			if err := s.runSweepCycle(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.ErrorCtx(ctx, err)
				}
			}
			if !s.sleep(ctx) {
				return nil
			}
		}
	}
}

// Stop gracefully stops the sweeper with timeout support
func (s *backfillSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping backfill sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Backfill sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Backfill sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// runSweepCycle fans a backfill workflow out to every tenant and entity kind
func (s *backfillSweeper) runSweepCycle(ctx context.Context) error {
	startTime := s.clock.Now()
	logger.InfoCtx(ctx, "Starting backfill cycle")

	tenantIDs, err := s.store.ListTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if len(tenantIDs) == 0 {
		return nil
	}

	var started, failed atomic.Int32

	s.pool = pond.NewPool(
		s.config.WorkerPoolSize,
		pond.WithContext(ctx),
	)
	day := domain.NewDay(s.clock.Now())
	w := workflows.NewWorker(nil, workflows.WorkerConfig{})
	for _, tenantID := range tenantIDs {
		for _, kind := range []domain.EntityKind{domain.EntityKindTrack, domain.EntityKindPlaylist} {
			s.pool.Submit(func() {
				input := workflows.BackfillInput{
					TenantID: tenantID,
					Kind:     kind,
				}
				opt := client.StartWorkflowOptions{
					ID:                    fmt.Sprintf("backfill-%s-%s-%s", tenantID, kind, day),
					TaskQueue:             s.config.TaskQueue,
					WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
					WorkflowRunTimeout:    12 * time.Hour,
				}
				if _, err := s.orchestrator.ExecuteWorkflow(ctx, opt, w.BackfillTenant, input); err != nil {
					logger.ErrorCtx(ctx, fmt.Errorf("failed to start backfill: %w", err),
						zap.String("tenant_id", tenantID.String()),
						zap.String("kind", string(kind)),
					)
					failed.Add(1)
					return
				}
				started.Add(1)
			})
		}
	}

	s.pool.StopAndWait()

	logger.InfoCtx(ctx, "Backfill cycle completed",
		zap.Duration("duration", s.clock.Since(startTime)),
		zap.Int("tenants", len(tenantIDs)),
		zap.Int32("started", started.Load()),
		zap.Int32("failed", failed.Load()),
	)

	return nil
}

// sleep waits out the configured interval, returning false when interrupted
func (s *backfillSweeper) sleep(ctx context.Context) bool {
	select {
	case <-s.clock.After(s.config.Interval):
		return true
	case <-ctx.Done():
		return false
	case <-s.stopChan:
		return false
	}
}
