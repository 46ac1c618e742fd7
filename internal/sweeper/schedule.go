package sweeper

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/logger"
	"github.com/isrcanalytics/streamledger/internal/providers/temporal"
	"github.com/isrcanalytics/streamledger/internal/workflows"
)

// ScheduleSweeperConfig holds configuration for the schedule sweeper
type ScheduleSweeperConfig struct {
	// FinalizeCronSpec schedules the nightly reconciliation pass
	FinalizeCronSpec string
	// RetentionCronSpec schedules snapshot retention and compression
	RetentionCronSpec string
	TaskQueue         string
}

// scheduleSweeper starts the periodic maintenance workflows on a cron
// schedule. Workflow IDs carry the calendar date, so a restarted sweeper
// cannot start a second pass for the same day.
type scheduleSweeper struct {
	config       ScheduleSweeperConfig
	orchestrator temporal.TemporalOrchestrator
	clock        adapter.Clock
	cron         *cron.Cron
	running      atomic.Bool
	stopChan     chan struct{}
	stoppedCh    chan struct{}
}

// NewScheduleSweeper creates a new schedule sweeper
func NewScheduleSweeper(
	config ScheduleSweeperConfig,
	orchestrator temporal.TemporalOrchestrator,
	clock adapter.Clock,
) Sweeper {
	return &scheduleSweeper{
		config:       config,
		orchestrator: orchestrator,
		clock:        clock,
		stopChan:     make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

// Name returns the sweeper's name
func (s *scheduleSweeper) Name() string {
	return "schedule-sweeper"
}

// Start registers the cron entries and blocks until the context is canceled
// or Stop is called
func (s *scheduleSweeper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("sweeper already running")
	}
	defer func() {
		s.running.Store(false)
		close(s.stoppedCh)
	}()

	logger.InfoCtx(ctx, "Starting schedule sweeper",
		zap.String("finalize_cron", s.config.FinalizeCronSpec),
		zap.String("retention_cron", s.config.RetentionCronSpec),
	)

	s.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{})))

	w := workflows.NewWorker(nil, workflows.WorkerConfig{})
	if _, err := s.cron.AddFunc(s.config.FinalizeCronSpec, func() {
		s.startSweep(ctx, "finalize-sweep", w.FinalizeSweep)
	}); err != nil {
		return fmt.Errorf("failed to schedule finalize sweep: %w", err)
	}
	if _, err := s.cron.AddFunc(s.config.RetentionCronSpec, func() {
		s.startSweep(ctx, "retention-sweep", w.RetentionSweep)
	}); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	s.cron.Start()

	select {
	case <-ctx.Done():
		logger.InfoCtx(ctx, "Schedule sweeper stopping due to context cancellation", zap.Error(ctx.Err()))
	case <-s.stopChan:
		logger.InfoCtx(ctx, "Schedule sweeper stop requested")
	}

	// Wait for any in-flight cron entries to finish
	<-s.cron.Stop().Done()
	return nil
}

// Stop gracefully stops the sweeper with timeout support
func (s *scheduleSweeper) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil // Already stopped
	}

	logger.InfoCtx(ctx, "Stopping schedule sweeper")
	close(s.stopChan)

	select {
	case <-s.stoppedCh:
		logger.InfoCtx(ctx, "Schedule sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Schedule sweeper stop interrupted by context timeout")
		return ctx.Err()
	}
}

// startSweep starts one maintenance workflow, keyed by today's date
func (s *scheduleSweeper) startSweep(ctx context.Context, name string, workflowFunc interface{}) {
	day := domain.NewDay(s.clock.Now())
	opt := client.StartWorkflowOptions{
		ID:                    fmt.Sprintf("%s-%s", name, day),
		TaskQueue:             s.config.TaskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
		WorkflowRunTimeout:    time.Hour,
	}

	if _, err := s.orchestrator.ExecuteWorkflow(ctx, opt, workflowFunc); err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to start %s: %w", name, err))
		return
	}

	logger.InfoCtx(ctx, "Maintenance workflow started",
		zap.String("sweep", name),
		zap.String("day", day.String()),
	)
}

// cronLogger adapts the global logger to the cron.Logger interface
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Info(msg, zap.Any("details", keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(fmt.Errorf("%s: %w", msg, err), zap.Any("details", keysAndValues))
}
