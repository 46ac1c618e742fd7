package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

func (s *pgStore) ApplyStreamRecompute(ctx context.Context, input ApplyRecomputeInput) (*RecomputeResult, error) {
	var result *RecomputeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldDays []time.Time
		if err := tx.Model(&schema.StreamDailyDelta{}).
			Where("platform = ? AND track_id = ? AND delta_date >= ?", input.Platform, input.EntityID, input.From).
			Distinct().
			Pluck("delta_date", &oldDays).Error; err != nil {
			return err
		}

		if err := tx.
			Where("platform = ? AND track_id = ? AND delta_date >= ?", input.Platform, input.EntityID, input.From).
			Delete(&schema.StreamDailyDelta{}).Error; err != nil {
			return err
		}

		if len(input.Deltas) > 0 {
			rows := make([]schema.StreamDailyDelta, 0, len(input.Deltas))
			for _, d := range input.Deltas {
				rows = append(rows, schema.StreamDailyDelta{
					TenantID:  input.TenantID,
					Platform:  input.Platform,
					TrackID:   input.EntityID,
					DeltaDate: d.Day,
					Delta:     d.Delta,
				})
			}
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return err
			}
		}

		r, err := reconcileDaysTx(tx, input.TenantID, domain.AggregateKindStreams, mergeAffectedDays(oldDays, input.Deltas),
			func(day time.Time) (int64, error) {
				return sumDeltasTx(tx, &schema.StreamDailyDelta{}, input.TenantID, day)
			})
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *pgStore) ApplyFollowerRecompute(ctx context.Context, input ApplyRecomputeInput) (*RecomputeResult, error) {
	var result *RecomputeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var oldDays []time.Time
		if err := tx.Model(&schema.FollowerDailyDelta{}).
			Where("platform = ? AND playlist_id = ? AND delta_date >= ?", input.Platform, input.EntityID, input.From).
			Distinct().
			Pluck("delta_date", &oldDays).Error; err != nil {
			return err
		}

		if err := tx.
			Where("platform = ? AND playlist_id = ? AND delta_date >= ?", input.Platform, input.EntityID, input.From).
			Delete(&schema.FollowerDailyDelta{}).Error; err != nil {
			return err
		}

		if len(input.Deltas) > 0 {
			rows := make([]schema.FollowerDailyDelta, 0, len(input.Deltas))
			for _, d := range input.Deltas {
				rows = append(rows, schema.FollowerDailyDelta{
					TenantID:   input.TenantID,
					Platform:   input.Platform,
					PlaylistID: input.EntityID,
					DeltaDate:  d.Day,
					Delta:      d.Delta,
				})
			}
			if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
				return err
			}
		}

		r, err := reconcileDaysTx(tx, input.TenantID, domain.AggregateKindFollowers, mergeAffectedDays(oldDays, input.Deltas),
			func(day time.Time) (int64, error) {
				return sumDeltasTx(tx, &schema.FollowerDailyDelta{}, input.TenantID, day)
			})
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *pgStore) ApplyDayCorrection(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, day time.Time, newTotal int64) (int64, error) {
	var credit int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		credit, err = applyDayCorrectionTx(tx, tenantID, kind, day, newTotal)
		return err
	})
	if err != nil {
		return 0, err
	}
	return credit, nil
}

func (s *pgStore) ResetPassCredits(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind) error {
	return s.db.WithContext(ctx).
		Model(&schema.LagCredit{}).
		Where("tenant_id = ? AND kind = ? AND moved_today <> 0", tenantID, kind).
		Updates(map[string]interface{}{
			"moved_today": 0,
			"updated_at":  time.Now(),
		}).Error
}

func (s *pgStore) FinalizeDailyTotals(ctx context.Context, cutoff time.Time) (int64, error) {
	var finalized int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []schema.DailyTotal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("day <= ? AND finalized = false", cutoff).
			Find(&candidates).Error; err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		now := time.Now()
		ids := make([]int64, 0, len(candidates))
		entries := make([]schema.ReconciliationJournal, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
			meta, err := json.Marshal(schema.CorrectionMeta{OldTotal: c.TotalDelta, NewTotal: c.TotalDelta})
			if err != nil {
				return err
			}
			entries = append(entries, schema.ReconciliationJournal{
				TenantID: c.TenantID,
				Kind:     c.Kind,
				Day:      c.Day,
				Action:   schema.ActionFinalize,
				Meta:     meta,
			})
		}

		if err := tx.Model(&schema.DailyTotal{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"finalized":    true,
				"finalized_at": now,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}
		if err := tx.CreateInBatches(entries, insertBatchSize).Error; err != nil {
			return err
		}

		finalized = int64(len(candidates))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return finalized, nil
}

func (s *pgStore) ConservationReport(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind) (*ConservationReport, error) {
	report := ConservationReport{}

	if err := s.db.WithContext(ctx).
		Model(&schema.DailyTotal{}).
		Where("tenant_id = ? AND kind = ?", tenantID, kind).
		Select("COALESCE(SUM(total_delta), 0)").
		Scan(&report.TotalsSum).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(&schema.LagCredit{}).
		Where("tenant_id = ? AND kind = ?", tenantID, kind).
		Select("COALESCE(SUM(moved_alltime), 0)").
		Scan(&report.CreditsSum).Error; err != nil {
		return nil, err
	}

	// latest counter per (platform, entity), summed across the tenant
	latestQuery := `
		SELECT COALESCE(SUM(v), 0) FROM (
			SELECT DISTINCT ON (platform, track_id) playcount AS v
			FROM stream_snapshots
			WHERE tenant_id = ?
			ORDER BY platform, track_id, snapshot_date DESC
		) latest`
	if kind == domain.AggregateKindFollowers {
		latestQuery = `
			SELECT COALESCE(SUM(v), 0) FROM (
				SELECT DISTINCT ON (platform, playlist_id) followers AS v
				FROM follower_snapshots
				WHERE tenant_id = ?
				ORDER BY platform, playlist_id, snapshot_date DESC
			) latest`
	}
	if err := s.db.WithContext(ctx).Raw(latestQuery, tenantID).Scan(&report.LatestSum).Error; err != nil {
		return nil, err
	}

	report.Drift = report.TotalsSum + report.CreditsSum - report.LatestSum
	return &report, nil
}

// sumDeltasTx computes the tenant-wide total for one day across all entities
// and platforms of one delta table.
func sumDeltasTx(tx *gorm.DB, model interface{}, tenantID uuid.UUID, day time.Time) (int64, error) {
	var total int64
	if err := tx.Model(model).
		Where("tenant_id = ? AND delta_date = ?", tenantID, day).
		Select("COALESCE(SUM(delta), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// reconcileDaysTx reapplies the daily total of every affected day, ascending,
// within the caller's transaction.
func reconcileDaysTx(tx *gorm.DB, tenantID uuid.UUID, kind domain.AggregateKind, days []time.Time, dayTotal func(time.Time) (int64, error)) (*RecomputeResult, error) {
	result := RecomputeResult{AffectedDays: days}
	for _, day := range days {
		total, err := dayTotal(day)
		if err != nil {
			return nil, err
		}
		credit, err := applyDayCorrectionTx(tx, tenantID, kind, day, total)
		if err != nil {
			return nil, err
		}
		if credit != 0 {
			result.Credits = append(result.Credits, AppliedCredit{Day: day, Credit: credit})
		}
	}
	return &result, nil
}

// applyDayCorrectionTx reconciles one (tenant, kind, day) total. Unfinalized
// days are overwritten in place; finalized days absorb the difference as a lag
// credit. Every decision lands in the journal.
func applyDayCorrectionTx(tx *gorm.DB, tenantID uuid.UUID, kind domain.AggregateKind, day time.Time, newTotal int64) (int64, error) {
	var total schema.DailyTotal
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND kind = ? AND day = ?", tenantID, kind, day).
		First(&total).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		total = schema.DailyTotal{
			TenantID:   tenantID,
			Kind:       kind,
			Day:        day,
			TotalDelta: newTotal,
		}
		if err := tx.Create(&total).Error; err != nil {
			return 0, err
		}
		return 0, journalTx(tx, tenantID, kind, day, schema.ActionCorrection, schema.CorrectionMeta{NewTotal: newTotal})
	}
	if err != nil {
		return 0, err
	}

	if total.TotalDelta == newTotal {
		return 0, nil
	}

	if !total.Finalized {
		if err := tx.Model(&schema.DailyTotal{}).
			Where("id = ?", total.ID).
			Updates(map[string]interface{}{
				"total_delta": newTotal,
				"updated_at":  time.Now(),
			}).Error; err != nil {
			return 0, err
		}
		return 0, journalTx(tx, tenantID, kind, day, schema.ActionCorrection, schema.CorrectionMeta{
			OldTotal: total.TotalDelta,
			NewTotal: newTotal,
		})
	}

	credit := newTotal - total.TotalDelta
	lagCredit := schema.LagCredit{
		TenantID:     tenantID,
		Kind:         kind,
		Day:          day,
		MovedToday:   credit,
		MovedAlltime: credit,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "kind"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"moved_today":   gorm.Expr("lag_credits.moved_today + ?", credit),
			"moved_alltime": gorm.Expr("lag_credits.moved_alltime + ?", credit),
			"updated_at":    time.Now(),
		}),
	}).Create(&lagCredit).Error; err != nil {
		return 0, err
	}
	if err := journalTx(tx, tenantID, kind, day, schema.ActionCredit, schema.CorrectionMeta{
		OldTotal: total.TotalDelta,
		NewTotal: newTotal,
		Credit:   credit,
	}); err != nil {
		return 0, err
	}
	return credit, nil
}

func journalTx(tx *gorm.DB, tenantID uuid.UUID, kind domain.AggregateKind, day time.Time, action schema.ReconciliationAction, meta schema.CorrectionMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return tx.Create(&schema.ReconciliationJournal{
		TenantID: tenantID,
		Kind:     kind,
		Day:      day,
		Action:   action,
		Meta:     payload,
	}).Error
}

// mergeAffectedDays unions previously stored days with freshly written ones,
// deduplicated and ascending so corrections replay in date order.
func mergeAffectedDays(oldDays []time.Time, deltas []DeltaRow) []time.Time {
	seen := make(map[time.Time]struct{}, len(oldDays)+len(deltas))
	for _, d := range oldDays {
		seen[domain.NewDay(d).Time()] = struct{}{}
	}
	for _, d := range deltas {
		seen[domain.NewDay(d.Day).Time()] = struct{}{}
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
