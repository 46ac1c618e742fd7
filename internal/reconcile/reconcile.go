// Package reconcile owns the lag reconciliation policy: how long a day stays
// open for in-place corrections, when it finalizes, and how reconciled volume
// is audited against raw counters.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/logger"
	"github.com/isrcanalytics/streamledger/internal/store"
)

// ReconcilerStore is the slice of the store the reconciler drives.
type ReconcilerStore interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	ApplyDayCorrection(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, day time.Time, newTotal int64) (int64, error)
	ResetPassCredits(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind) error
	FinalizeDailyTotals(ctx context.Context, cutoff time.Time) (int64, error)
	ConservationReport(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind) (*store.ConservationReport, error)
}

// Reconciler applies the lag window policy across tenants.
type Reconciler struct {
	store     ReconcilerStore
	clock     adapter.Clock
	lagWindow time.Duration
}

// NewReconciler creates a reconciler. A non-positive lagWindow falls back to
// the default.
func NewReconciler(s ReconcilerStore, clock adapter.Clock, lagWindow time.Duration) *Reconciler {
	if lagWindow <= 0 {
		lagWindow = domain.DEFAULT_LAG_WINDOW
	}
	return &Reconciler{
		store:     s,
		clock:     clock,
		lagWindow: lagWindow,
	}
}

// FinalizationCutoff returns the most recent day old enough to finalize. Days
// after the cutoff are still inside the lag window and stay mutable.
func (r *Reconciler) FinalizationCutoff() domain.Day {
	return domain.NewDay(r.clock.Now().Add(-r.lagWindow))
}

// StartPass resets per-pass credit counters for every tenant and stream so
// moved_today reflects only the coming pass.
func (r *Reconciler) StartPass(ctx context.Context) error {
	tenants, err := r.store.ListTenantIDs(ctx)
	if err != nil {
		return err
	}
	for _, tenantID := range tenants {
		for _, kind := range []domain.AggregateKind{domain.AggregateKindStreams, domain.AggregateKindFollowers} {
			if err := r.store.ResetPassCredits(ctx, tenantID, kind); err != nil {
				return err
			}
		}
	}
	logger.DebugCtx(ctx, "reconciliation pass started", zap.Int("tenants", len(tenants)))
	return nil
}

// ApplyCorrection reconciles one day of one tenant against a newly computed
// total, returning the lag credit when the day was already finalized.
func (r *Reconciler) ApplyCorrection(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, day domain.Day, newTotal int64) (int64, error) {
	return r.store.ApplyDayCorrection(ctx, tenantID, kind, day.Time(), newTotal)
}

// FinalizeDue closes every day that has aged out of the lag window.
func (r *Reconciler) FinalizeDue(ctx context.Context) (int64, error) {
	cutoff := r.FinalizationCutoff()
	finalized, err := r.store.FinalizeDailyTotals(ctx, cutoff.Time())
	if err != nil {
		return 0, err
	}
	if finalized > 0 {
		logger.InfoCtx(ctx, "daily totals finalized",
			zap.String("cutoff", cutoff.String()),
			zap.Int64("days", finalized))
	}
	return finalized, nil
}

// VerifyConservation audits one tenant's reconciled volume against its latest
// raw counters. Drift is logged, never surfaced as a failure; imperfect
// platform counters are expected and the report exists for observability.
func (r *Reconciler) VerifyConservation(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind) (*store.ConservationReport, error) {
	report, err := r.store.ConservationReport(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	if report.Drift != 0 {
		logger.WarnCtx(ctx, "conservation drift detected",
			zap.String("tenant_id", tenantID.String()),
			zap.String("kind", string(kind)),
			zap.Int64("totals_sum", report.TotalsSum),
			zap.Int64("credits_sum", report.CreditsSum),
			zap.Int64("latest_sum", report.LatestSum),
			zap.Int64("drift", report.Drift))
	}
	return report, nil
}

// VerifyAllTenants runs the conservation audit for every tenant and stream.
func (r *Reconciler) VerifyAllTenants(ctx context.Context) error {
	tenants, err := r.store.ListTenantIDs(ctx)
	if err != nil {
		return err
	}
	for _, tenantID := range tenants {
		for _, kind := range []domain.AggregateKind{domain.AggregateKindStreams, domain.AggregateKindFollowers} {
			if _, err := r.VerifyConservation(ctx, tenantID, kind); err != nil {
				return err
			}
		}
	}
	return nil
}
