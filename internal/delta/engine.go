package delta

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/logger"
	"github.com/isrcanalytics/streamledger/internal/store"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

const applyMaxElapsedTime = 30 * time.Second

// EngineStore is the slice of the store the engine reads snapshots from and
// writes derived deltas through.
type EngineStore interface {
	PriorStreamSnapshot(ctx context.Context, platform domain.Platform, trackID int64, before time.Time) (*schema.StreamSnapshot, error)
	StreamSnapshotsFrom(ctx context.Context, platform domain.Platform, trackID int64, from time.Time) ([]schema.StreamSnapshot, error)
	ApplyStreamRecompute(ctx context.Context, input store.ApplyRecomputeInput) (*store.RecomputeResult, error)
	PriorFollowerSnapshot(ctx context.Context, platform domain.Platform, playlistID int64, before time.Time) (*schema.FollowerSnapshot, error)
	FollowerSnapshotsFrom(ctx context.Context, platform domain.Platform, playlistID int64, from time.Time) ([]schema.FollowerSnapshot, error)
	ApplyFollowerRecompute(ctx context.Context, input store.ApplyRecomputeInput) (*store.RecomputeResult, error)
}

// Engine recomputes derived deltas for single entities. Concurrent recomputes
// of the same entity are serialized with an in-process mutex; the replace plus
// reconcile write itself is retried with exponential backoff so transient
// database contention does not fail the caller.
type Engine struct {
	store EngineStore
	locks *xsync.Map[string, *sync.Mutex]
}

// NewEngine creates a delta engine backed by the given store
func NewEngine(s EngineStore) *Engine {
	return &Engine{
		store: s,
		locks: xsync.NewMap[string, *sync.Mutex](),
	}
}

// RecomputeStreams rebuilds a track's deltas from a given day forward and
// reconciles every affected daily total.
func (e *Engine) RecomputeStreams(ctx context.Context, tenantID uuid.UUID, platform domain.Platform, trackID int64, from domain.Day) (*store.RecomputeResult, error) {
	ref := domain.EntityRef{TenantID: tenantID, Platform: platform, Kind: domain.EntityKindTrack, EntityID: trackID}
	unlock := e.lock(ref)
	defer unlock()

	baseline, points, err := e.loadStreamPoints(ctx, platform, trackID, from)
	if err != nil {
		return nil, err
	}

	input := store.ApplyRecomputeInput{
		TenantID: tenantID,
		Platform: platform,
		EntityID: trackID,
		From:     from.Time(),
		Deltas:   ComputeDeltas(baseline, points),
	}

	var result *store.RecomputeResult
	apply := func() error {
		var applyErr error
		result, applyErr = e.store.ApplyStreamRecompute(ctx, input)
		return applyErr
	}
	if err := e.retryApply(ctx, ref, apply); err != nil {
		return nil, err
	}

	e.logResult(ctx, ref, result)
	return result, nil
}

// RecomputeFollowers is the playlist mirror of RecomputeStreams
func (e *Engine) RecomputeFollowers(ctx context.Context, tenantID uuid.UUID, platform domain.Platform, playlistID int64, from domain.Day) (*store.RecomputeResult, error) {
	ref := domain.EntityRef{TenantID: tenantID, Platform: platform, Kind: domain.EntityKindPlaylist, EntityID: playlistID}
	unlock := e.lock(ref)
	defer unlock()

	baseline, points, err := e.loadFollowerPoints(ctx, platform, playlistID, from)
	if err != nil {
		return nil, err
	}

	input := store.ApplyRecomputeInput{
		TenantID: tenantID,
		Platform: platform,
		EntityID: playlistID,
		From:     from.Time(),
		Deltas:   ComputeDeltas(baseline, points),
	}

	var result *store.RecomputeResult
	apply := func() error {
		var applyErr error
		result, applyErr = e.store.ApplyFollowerRecompute(ctx, input)
		return applyErr
	}
	if err := e.retryApply(ctx, ref, apply); err != nil {
		return nil, err
	}

	e.logResult(ctx, ref, result)
	return result, nil
}

func (e *Engine) lock(ref domain.EntityRef) func() {
	mu, _ := e.locks.LoadOrStore(ref.LockKey(), &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) loadStreamPoints(ctx context.Context, platform domain.Platform, trackID int64, from domain.Day) (*int64, []Point, error) {
	prior, err := e.store.PriorStreamSnapshot(ctx, platform, trackID, from.Time())
	if err != nil {
		return nil, nil, err
	}
	var baseline *int64
	if prior != nil {
		baseline = &prior.Playcount
	}

	snapshots, err := e.store.StreamSnapshotsFrom(ctx, platform, trackID, from.Time())
	if err != nil {
		return nil, nil, err
	}
	points := make([]Point, 0, len(snapshots))
	for _, s := range snapshots {
		points = append(points, Point{Day: domain.NewDay(s.SnapshotDate).Time(), Value: s.Playcount})
	}
	return baseline, points, nil
}

func (e *Engine) loadFollowerPoints(ctx context.Context, platform domain.Platform, playlistID int64, from domain.Day) (*int64, []Point, error) {
	prior, err := e.store.PriorFollowerSnapshot(ctx, platform, playlistID, from.Time())
	if err != nil {
		return nil, nil, err
	}
	var baseline *int64
	if prior != nil {
		baseline = &prior.Followers
	}

	snapshots, err := e.store.FollowerSnapshotsFrom(ctx, platform, playlistID, from.Time())
	if err != nil {
		return nil, nil, err
	}
	points := make([]Point, 0, len(snapshots))
	for _, s := range snapshots {
		points = append(points, Point{Day: domain.NewDay(s.SnapshotDate).Time(), Value: s.Followers})
	}
	return baseline, points, nil
}

func (e *Engine) retryApply(ctx context.Context, ref domain.EntityRef, apply func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = applyMaxElapsedTime

	notify := func(err error, next time.Duration) {
		logger.WarnCtx(ctx, "recompute write contention, retrying",
			zap.String("entity", ref.String()),
			zap.Duration("next_attempt_in", next),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(apply, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrRecomputeContention, err)
	}
	return nil
}

func (e *Engine) logResult(ctx context.Context, ref domain.EntityRef, result *store.RecomputeResult) {
	fields := []zap.Field{
		zap.String("entity", ref.String()),
		zap.Int("affected_days", len(result.AffectedDays)),
	}
	for _, c := range result.Credits {
		fields = append(fields, zap.Int64("credit_"+domain.NewDay(c.Day).String(), c.Credit))
	}
	logger.InfoCtx(ctx, "recompute applied", fields...)
}
