package workflows

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/logger"
)

// backfillEpoch rebuilds an entity's full history
const backfillEpoch = "1970-01-01"

// BackfillInput identifies one tenant backfill run.
type BackfillInput struct {
	TenantID uuid.UUID         `json:"tenant_id"`
	Kind     domain.EntityKind `json:"kind"`
	// AfterID is the pagination cursor, zero on the first run
	AfterID int64 `json:"after_id"`
}

// BackfillTenant recomputes every entity of one tenant and stream from its
// first snapshot. Each run handles one page of entities and continues as new,
// so the workflow history stays bounded for catalogues of any size.
func (w *worker) BackfillTenant(ctx workflow.Context, input BackfillInput) error {
	logger.InfoWf(ctx, "Backfilling tenant",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("kind", string(input.Kind)),
		zap.Int64("after_id", input.AfterID),
	)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	listInput := ListEntitiesInput{
		TenantID: input.TenantID,
		Kind:     input.Kind,
		AfterID:  input.AfterID,
		Limit:    w.config.BackfillPageSize,
	}
	var entityIDs []int64
	if err := workflow.ExecuteActivity(ctx, w.executor.ListEntityIDs, listInput).Get(ctx, &entityIDs); err != nil {
		logger.ErrorWf(ctx,
			fmt.Errorf("failed to list entity page"),
			zap.Error(err),
			zap.String("tenant_id", input.TenantID.String()),
		)
		return err
	}

	if len(entityIDs) == 0 {
		logger.InfoWf(ctx, "Backfill complete", zap.String("tenant_id", input.TenantID.String()))
		return nil
	}

	// both platforms are rebuilt per entity; entities without snapshots on a
	// platform produce an empty replacement, which is a no-op
	for _, entityID := range entityIDs {
		for _, platform := range []domain.Platform{domain.PlatformSpotify, domain.PlatformAppleMusic} {
			recompute := RecomputeInput{
				TenantID: input.TenantID,
				Platform: platform,
				Kind:     input.Kind,
				EntityID: entityID,
				FromDay:  backfillEpoch,
			}
			if err := workflow.ExecuteActivity(ctx, w.executor.RecomputeEntity, recompute).Get(ctx, nil); err != nil {
				logger.ErrorWf(ctx,
					fmt.Errorf("failed to recompute entity during backfill"),
					zap.Error(err),
					zap.Int64("entity_id", entityID),
					zap.String("platform", string(platform)),
				)
				return err
			}
		}
	}

	input.AfterID = entityIDs[len(entityIDs)-1]
	return workflow.NewContinueAsNewError(ctx, w.BackfillTenant, input)
}
