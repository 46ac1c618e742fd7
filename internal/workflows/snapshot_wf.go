package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/ingest"
	"github.com/isrcanalytics/streamledger/internal/logger"
)

// ProcessSnapshot ingests one snapshot event and recomputes the affected
// entity. The workflow ID carries the event ID, so a redelivered event joins
// the running execution instead of processing twice.
func (w *worker) ProcessSnapshot(ctx workflow.Context, event *domain.SnapshotEvent) error {
	logger.InfoWf(ctx, "Processing snapshot event",
		zap.String("event_id", event.EventID),
		zap.String("platform", string(event.Platform)),
		zap.String("entity_code", event.EntityCode),
		zap.String("date", event.Date),
	)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Step 1: validate and persist the fact
	var accepted ingest.Accepted
	err := workflow.ExecuteActivity(ctx, w.executor.IngestSnapshot, event).Get(ctx, &accepted)
	if err != nil {
		logger.ErrorWf(ctx,
			fmt.Errorf("failed to ingest snapshot"),
			zap.Error(err),
			zap.String("event_id", event.EventID),
		)
		return err
	}

	// Step 2: rebuild derived deltas from the snapshot's day forward
	input := RecomputeInput{
		TenantID: accepted.Ref.TenantID,
		Platform: accepted.Ref.Platform,
		Kind:     accepted.Ref.Kind,
		EntityID: accepted.Ref.EntityID,
		FromDay:  accepted.Day.String(),
	}
	if err := workflow.ExecuteActivity(ctx, w.executor.RecomputeEntity, input).Get(ctx, nil); err != nil {
		logger.ErrorWf(ctx,
			fmt.Errorf("failed to recompute entity"),
			zap.Error(err),
			zap.String("entity", accepted.Ref.String()),
		)
		return err
	}

	logger.InfoWf(ctx, "Snapshot processed",
		zap.String("event_id", event.EventID),
		zap.String("entity", accepted.Ref.String()),
	)
	return nil
}

// RecomputeEntity rebuilds one entity's deltas from a day forward. Used for
// targeted replays when an entity's history needs a rebuild without a full
// tenant backfill.
func (w *worker) RecomputeEntity(ctx workflow.Context, input RecomputeInput) error {
	logger.InfoWf(ctx, "Recomputing entity",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("platform", string(input.Platform)),
		zap.Int64("entity_id", input.EntityID),
		zap.String("from_day", input.FromDay),
	)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	return workflow.ExecuteActivity(ctx, w.executor.RecomputeEntity, input).Get(ctx, nil)
}
