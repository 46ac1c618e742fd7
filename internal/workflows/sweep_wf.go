package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/logger"
)

// FinalizeSweep runs the nightly reconciliation pass: reset per-pass credit
// counters, finalize every day that aged out of the lag window, then audit
// conservation across all tenants.
func (w *worker) FinalizeSweep(ctx workflow.Context) error {
	logger.InfoWf(ctx, "Starting finalize sweep")

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	if err := workflow.ExecuteActivity(ctx, w.executor.StartReconcilePass).Get(ctx, nil); err != nil {
		logger.ErrorWf(ctx, fmt.Errorf("failed to start reconcile pass"), zap.Error(err))
		return err
	}

	var finalized int64
	if err := workflow.ExecuteActivity(ctx, w.executor.FinalizeDueDays).Get(ctx, &finalized); err != nil {
		logger.ErrorWf(ctx, fmt.Errorf("failed to finalize due days"), zap.Error(err))
		return err
	}

	if err := workflow.ExecuteActivity(ctx, w.executor.VerifyConservation).Get(ctx, nil); err != nil {
		logger.ErrorWf(ctx, fmt.Errorf("failed to verify conservation"), zap.Error(err))
		return err
	}

	logger.InfoWf(ctx, "Finalize sweep complete", zap.Int64("finalized_days", finalized))
	return nil
}

// RetentionSweep deletes raw snapshots past the retention window and thins
// older history to monthly anchors. Both activities refuse to run while any
// affected day is still open, so a failed sweep is safe to retry later.
func (w *worker) RetentionSweep(ctx workflow.Context) error {
	logger.InfoWf(ctx, "Starting retention sweep")

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var deleted int64
	if err := workflow.ExecuteActivity(ctx, w.executor.ApplyRetention).Get(ctx, &deleted); err != nil {
		logger.ErrorWf(ctx, fmt.Errorf("failed to apply retention"), zap.Error(err))
		return err
	}

	var compressed int64
	if err := workflow.ExecuteActivity(ctx, w.executor.ApplyCompression).Get(ctx, &compressed); err != nil {
		logger.ErrorWf(ctx, fmt.Errorf("failed to compress snapshots"), zap.Error(err))
		return err
	}

	logger.InfoWf(ctx, "Retention sweep complete",
		zap.Int64("deleted_snapshots", deleted),
		zap.Int64("compressed_snapshots", compressed),
	)
	return nil
}
