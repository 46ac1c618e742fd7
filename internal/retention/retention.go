// Package retention ages out raw snapshot history. Derived deltas, daily
// totals, lag credits and the journal are kept forever; only the raw counter
// observations are deleted or thinned, and never while any day they cover is
// still open for reconciliation.
package retention

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/logger"
)

// RetentionStore is the slice of the store the manager drives.
type RetentionStore interface {
	MinUnfinalizedDay(ctx context.Context) (time.Time, bool, error)
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CompressSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Manager applies the retention and compression policies.
type Manager struct {
	store          RetentionStore
	clock          adapter.Clock
	rawRetention   time.Duration
	compressionAge time.Duration
}

// NewManager creates a retention manager. Non-positive durations fall back to
// the defaults.
func NewManager(s RetentionStore, clock adapter.Clock, rawRetention, compressionAge time.Duration) *Manager {
	if rawRetention <= 0 {
		rawRetention = domain.DEFAULT_RAW_RETENTION
	}
	if compressionAge <= 0 {
		compressionAge = domain.DEFAULT_COMPRESSION_AGE
	}
	return &Manager{
		store:          s,
		clock:          clock,
		rawRetention:   rawRetention,
		compressionAge: compressionAge,
	}
}

// ApplyRetention deletes raw snapshots older than the retention window.
func (m *Manager) ApplyRetention(ctx context.Context) (int64, error) {
	cutoff := domain.NewDay(m.clock.Now().Add(-m.rawRetention))
	if err := m.guard(ctx, cutoff); err != nil {
		return 0, err
	}

	deleted, err := m.store.DeleteSnapshotsBefore(ctx, cutoff.Time())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		logger.InfoCtx(ctx, "raw snapshots aged out",
			zap.String("cutoff", cutoff.String()),
			zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// ApplyCompression thins raw snapshots older than the compression age to the
// last observation per entity per month. Recomputes over compressed history
// still see a correct baseline, so derived facts are unaffected.
func (m *Manager) ApplyCompression(ctx context.Context) (int64, error) {
	cutoff := domain.NewDay(m.clock.Now().Add(-m.compressionAge))
	if err := m.guard(ctx, cutoff); err != nil {
		return 0, err
	}

	thinned, err := m.store.CompressSnapshotsBefore(ctx, cutoff.Time())
	if err != nil {
		return 0, err
	}
	if thinned > 0 {
		logger.InfoCtx(ctx, "raw snapshots compressed to monthly anchors",
			zap.String("cutoff", cutoff.String()),
			zap.Int64("thinned", thinned))
	}
	return thinned, nil
}

// guard refuses any cutoff that reaches into days still open for
// reconciliation, so corrections never land on deleted history.
func (m *Manager) guard(ctx context.Context, cutoff domain.Day) error {
	openDay, ok, err := m.store.MinUnfinalizedDay(ctx)
	if err != nil {
		return err
	}
	if ok && domain.NewDay(openDay).Before(cutoff) {
		return fmt.Errorf("%w: day %s is still open", domain.ErrRetentionWindowActive, domain.NewDay(openDay))
	}
	return nil
}
