package workflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/isrcanalytics/streamledger/internal/delta"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/ingest"
	"github.com/isrcanalytics/streamledger/internal/reconcile"
	"github.com/isrcanalytics/streamledger/internal/retention"
	"github.com/isrcanalytics/streamledger/internal/store"
)

// errTypeValidation marks ingestion failures that retrying cannot fix
const errTypeValidation = "SnapshotValidation"

// RecomputeInput identifies one entity recompute.
type RecomputeInput struct {
	TenantID uuid.UUID         `json:"tenant_id"`
	Platform domain.Platform   `json:"platform"`
	Kind     domain.EntityKind `json:"kind"`
	EntityID int64             `json:"entity_id"`
	// FromDay is the first day to rebuild, formatted 2006-01-02
	FromDay string `json:"from_day"`
}

// ListEntitiesInput pages a tenant's entity IDs for backfills.
type ListEntitiesInput struct {
	TenantID uuid.UUID         `json:"tenant_id"`
	Kind     domain.EntityKind `json:"kind"`
	AfterID  int64             `json:"after_id"`
	Limit    int               `json:"limit"`
}

// Executor defines the interface for executing activities
//
//go:generate mockgen -source=executor.go -destination=../mocks/executor.go -package=mocks -mock_names=Executor=MockExecutor
type Executor interface {
	// IngestSnapshot validates and persists one snapshot event
	IngestSnapshot(ctx context.Context, event *domain.SnapshotEvent) (*ingest.Accepted, error)

	// RecomputeEntity rebuilds one entity's deltas from a day forward
	RecomputeEntity(ctx context.Context, input RecomputeInput) (*store.RecomputeResult, error)

	// ListEntityIDs pages a tenant's track or playlist IDs in ascending order
	ListEntityIDs(ctx context.Context, input ListEntitiesInput) ([]int64, error)

	// StartReconcilePass resets per-pass credit counters across all tenants
	StartReconcilePass(ctx context.Context) error

	// FinalizeDueDays finalizes every day that aged out of the lag window
	FinalizeDueDays(ctx context.Context) (int64, error)

	// VerifyConservation audits reconciled volume for every tenant
	VerifyConservation(ctx context.Context) error

	// ApplyRetention deletes raw snapshots past the retention window
	ApplyRetention(ctx context.Context) (int64, error)

	// ApplyCompression thins old raw snapshots to monthly anchors
	ApplyCompression(ctx context.Context) (int64, error)
}

// executor is the concrete implementation of Executor
type executor struct {
	store      store.Store
	engine     *delta.Engine
	reconciler *reconcile.Reconciler
	retention  *retention.Manager
	ingestor   *ingest.Ingestor
}

// NewExecutor creates a new executor instance
func NewExecutor(
	s store.Store,
	engine *delta.Engine,
	reconciler *reconcile.Reconciler,
	retentionManager *retention.Manager,
	ingestor *ingest.Ingestor,
) Executor {
	return &executor{
		store:      s,
		engine:     engine,
		reconciler: reconciler,
		retention:  retentionManager,
		ingestor:   ingestor,
	}
}

func (e *executor) IngestSnapshot(ctx context.Context, event *domain.SnapshotEvent) (*ingest.Accepted, error) {
	accepted, err := e.ingestor.Ingest(ctx, event)
	if err != nil {
		if isValidationError(err) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeValidation, err)
		}
		return nil, err
	}
	return accepted, nil
}

func (e *executor) RecomputeEntity(ctx context.Context, input RecomputeInput) (*store.RecomputeResult, error) {
	from, err := domain.ParseDay(input.FromDay)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("invalid from day %q", input.FromDay), errTypeValidation, err)
	}

	if input.Kind == domain.EntityKindPlaylist {
		return e.engine.RecomputeFollowers(ctx, input.TenantID, input.Platform, input.EntityID, from)
	}
	return e.engine.RecomputeStreams(ctx, input.TenantID, input.Platform, input.EntityID, from)
}

func (e *executor) ListEntityIDs(ctx context.Context, input ListEntitiesInput) ([]int64, error) {
	if input.Kind == domain.EntityKindPlaylist {
		return e.store.ListPlaylistIDs(ctx, input.TenantID, input.AfterID, input.Limit)
	}
	return e.store.ListTrackIDs(ctx, input.TenantID, input.AfterID, input.Limit)
}

func (e *executor) StartReconcilePass(ctx context.Context) error {
	return e.reconciler.StartPass(ctx)
}

func (e *executor) FinalizeDueDays(ctx context.Context) (int64, error) {
	return e.reconciler.FinalizeDue(ctx)
}

func (e *executor) VerifyConservation(ctx context.Context) error {
	return e.reconciler.VerifyAllTenants(ctx)
}

func (e *executor) ApplyRetention(ctx context.Context) (int64, error) {
	return e.retention.ApplyRetention(ctx)
}

func (e *executor) ApplyCompression(ctx context.Context) (int64, error) {
	return e.retention.ApplyCompression(ctx)
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrUnknownPlatform) ||
		errors.Is(err, domain.ErrNegativeValue) ||
		errors.Is(err, domain.ErrFutureDate) ||
		errors.Is(err, domain.ErrTenantNotFound) ||
		errors.Is(err, domain.ErrPlaylistNotFound)
}
