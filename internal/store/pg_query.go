package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

func (s *pgStore) TotalDeltaByDay(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, from, to time.Time) ([]DayValue, error) {
	var values []DayValue
	if err := s.db.WithContext(ctx).
		Model(&schema.DailyTotal{}).
		Select("day, total_delta AS value").
		Where("tenant_id = ? AND kind = ? AND day >= ? AND day <= ?", tenantID, kind, from, to).
		Order("day ASC").
		Scan(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (s *pgStore) LagCreditsByDay(ctx context.Context, tenantID uuid.UUID, kind domain.AggregateKind, from, to time.Time) ([]schema.LagCredit, error) {
	var credits []schema.LagCredit
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND kind = ? AND day >= ? AND day <= ?", tenantID, kind, from, to).
		Order("day ASC").
		Find(&credits).Error; err != nil {
		return nil, err
	}
	return credits, nil
}

func (s *pgStore) TopTrackDeltas(ctx context.Context, tenantID uuid.UUID, day time.Time, limit int) ([]TrackDelta, error) {
	var entries []TrackDelta
	if err := s.db.WithContext(ctx).
		Model(&schema.StreamDailyDelta{}).
		Select("tracks.id AS track_id, tracks.isrc, tracks.title, tracks.artist, SUM(stream_daily_deltas.delta) AS delta").
		Joins("JOIN tracks ON tracks.id = stream_daily_deltas.track_id").
		Where("stream_daily_deltas.tenant_id = ? AND stream_daily_deltas.delta_date = ?", tenantID, day).
		Group("tracks.id, tracks.isrc, tracks.title, tracks.artist").
		Order("delta DESC, tracks.isrc ASC").
		Limit(limit).
		Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *pgStore) TrackDeltaSeries(ctx context.Context, tenantID uuid.UUID, trackID int64, from, to time.Time) ([]DayValue, error) {
	var values []DayValue
	if err := s.db.WithContext(ctx).
		Model(&schema.StreamDailyDelta{}).
		Select("delta_date AS day, SUM(delta) AS value").
		Where("tenant_id = ? AND track_id = ? AND delta_date >= ? AND delta_date <= ?", tenantID, trackID, from, to).
		Group("delta_date").
		Order("delta_date ASC").
		Scan(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (s *pgStore) SnapshotDates(ctx context.Context, tenantID uuid.UUID) ([]time.Time, error) {
	var dates []time.Time
	if err := s.db.WithContext(ctx).
		Model(&schema.StreamSnapshot{}).
		Where("tenant_id = ?", tenantID).
		Distinct().
		Order("snapshot_date ASC").
		Pluck("snapshot_date", &dates).Error; err != nil {
		return nil, err
	}
	return dates, nil
}

func (s *pgStore) FollowerSeries(ctx context.Context, tenantID uuid.UUID, playlistID int64, from, to time.Time) ([]DayValue, error) {
	var values []DayValue
	if err := s.db.WithContext(ctx).
		Model(&schema.FollowerSnapshot{}).
		Select("snapshot_date AS day, SUM(followers) AS value").
		Where("tenant_id = ? AND playlist_id = ? AND snapshot_date >= ? AND snapshot_date <= ?", tenantID, playlistID, from, to).
		Group("snapshot_date").
		Order("snapshot_date ASC").
		Scan(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (s *pgStore) TotalFollowerSeries(ctx context.Context, tenantID uuid.UUID, playlistIDs []int64, from, to time.Time) ([]DayValue, error) {
	query := s.db.WithContext(ctx).
		Model(&schema.FollowerSnapshot{}).
		Select("snapshot_date AS day, SUM(followers) AS value").
		Where("tenant_id = ? AND snapshot_date >= ? AND snapshot_date <= ?", tenantID, from, to)
	if len(playlistIDs) > 0 {
		query = query.Where("playlist_id IN ?", playlistIDs)
	}

	var values []DayValue
	if err := query.
		Group("snapshot_date").
		Order("snapshot_date ASC").
		Scan(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (s *pgStore) TopArtistShare(ctx context.Context, tenantID uuid.UUID, from, to time.Time, limit int) ([]ArtistShare, error) {
	var shares []ArtistShare
	if err := s.db.WithContext(ctx).
		Model(&schema.StreamDailyDelta{}).
		Select("tracks.artist AS artist, SUM(stream_daily_deltas.delta) AS delta").
		Joins("JOIN tracks ON tracks.id = stream_daily_deltas.track_id").
		Where("stream_daily_deltas.tenant_id = ? AND stream_daily_deltas.delta_date >= ? AND stream_daily_deltas.delta_date <= ? AND tracks.artist <> ''", tenantID, from, to).
		Group("tracks.artist").
		Order("delta DESC, tracks.artist ASC").
		Limit(limit).
		Scan(&shares).Error; err != nil {
		return nil, err
	}
	return shares, nil
}

func (s *pgStore) CatalogueSizeSeries(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]DayValue, error) {
	var values []DayValue
	if err := s.db.WithContext(ctx).Raw(`
		SELECT d::date AS day,
		       (SELECT COUNT(*) FROM tracks t
		        WHERE t.tenant_id = ? AND t.created_at < d + interval '1 day') AS value
		FROM generate_series(?::date, ?::date, interval '1 day') d
		ORDER BY day ASC`,
		tenantID, from, to).
		Scan(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (s *pgStore) MinUnfinalizedDay(ctx context.Context) (time.Time, bool, error) {
	var totalDay sql.NullTime
	if err := s.db.WithContext(ctx).
		Model(&schema.DailyTotal{}).
		Where("finalized = false").
		Select("MIN(day)").
		Scan(&totalDay).Error; err != nil {
		return time.Time{}, false, err
	}

	// snapshot days never reconciled into a finalized total are open too
	var streamDay sql.NullTime
	if err := s.db.WithContext(ctx).Raw(`
		SELECT MIN(snapshot_date) FROM stream_snapshots s
		WHERE NOT EXISTS (
			SELECT 1 FROM daily_totals dt
			WHERE dt.tenant_id = s.tenant_id AND dt.kind = 'streams'
			  AND dt.day = s.snapshot_date AND dt.finalized
		)`).Scan(&streamDay).Error; err != nil {
		return time.Time{}, false, err
	}

	var followerDay sql.NullTime
	if err := s.db.WithContext(ctx).Raw(`
		SELECT MIN(snapshot_date) FROM follower_snapshots s
		WHERE NOT EXISTS (
			SELECT 1 FROM daily_totals dt
			WHERE dt.tenant_id = s.tenant_id AND dt.kind = 'followers'
			  AND dt.day = s.snapshot_date AND dt.finalized
		)`).Scan(&followerDay).Error; err != nil {
		return time.Time{}, false, err
	}

	found := false
	var min time.Time
	for _, c := range []sql.NullTime{totalDay, streamDay, followerDay} {
		if !c.Valid {
			continue
		}
		if !found || c.Time.Before(min) {
			min = c.Time
			found = true
		}
	}
	return min, found, nil
}

func (s *pgStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64

	result := s.db.WithContext(ctx).
		Where("snapshot_date < ?", cutoff).
		Delete(&schema.StreamSnapshot{})
	if result.Error != nil {
		return 0, result.Error
	}
	deleted += result.RowsAffected

	result = s.db.WithContext(ctx).
		Where("snapshot_date < ?", cutoff).
		Delete(&schema.FollowerSnapshot{})
	if result.Error != nil {
		return 0, result.Error
	}
	deleted += result.RowsAffected

	return deleted, nil
}

func (s *pgStore) CompressSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var thinned int64

	// keep only the last observation per entity per month
	result := s.db.WithContext(ctx).Exec(`
		DELETE FROM stream_snapshots s
		WHERE s.snapshot_date < ?
		  AND EXISTS (
			SELECT 1 FROM stream_snapshots k
			WHERE k.platform = s.platform AND k.track_id = s.track_id
			  AND date_trunc('month', k.snapshot_date) = date_trunc('month', s.snapshot_date)
			  AND k.snapshot_date > s.snapshot_date
		  )`, cutoff)
	if result.Error != nil {
		return 0, result.Error
	}
	thinned += result.RowsAffected

	result = s.db.WithContext(ctx).Exec(`
		DELETE FROM follower_snapshots s
		WHERE s.snapshot_date < ?
		  AND EXISTS (
			SELECT 1 FROM follower_snapshots k
			WHERE k.platform = s.platform AND k.playlist_id = s.playlist_id
			  AND date_trunc('month', k.snapshot_date) = date_trunc('month', s.snapshot_date)
			  AND k.snapshot_date > s.snapshot_date
		  )`, cutoff)
	if result.Error != nil {
		return 0, result.Error
	}
	thinned += result.RowsAffected

	return thinned, nil
}
