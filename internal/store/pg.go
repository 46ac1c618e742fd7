package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/store/schema"
)

const insertBatchSize = 500

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL-backed store
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool applies pool limits to the underlying sql.DB
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return nil
}

// UseReadReplica routes read queries to a replica so serving reads do not
// contend with recompute writes. Writes and transactions stay on the primary.
func UseReadReplica(db *gorm.DB, readDSN string) error {
	return db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: []gorm.Dialector{postgres.Open(readDSN)},
	}))
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

func (s *pgStore) CreateTenant(ctx context.Context, tenant *schema.Tenant) error {
	return s.db.WithContext(ctx).Create(tenant).Error
}

func (s *pgStore) GetTenant(ctx context.Context, id uuid.UUID) (*schema.Tenant, error) {
	var tenant schema.Tenant
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (s *pgStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&schema.Tenant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (s *pgStore) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.WithContext(ctx).
		Model(&schema.Tenant{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *pgStore) EnsureTrack(ctx context.Context, input EnsureTrackInput) (*schema.Track, error) {
	track := schema.Track{
		TenantID:    input.TenantID,
		ISRC:        input.ISRC,
		ReleaseDate: input.ReleaseDate,
	}
	if input.Title != nil {
		track.Title = *input.Title
	}
	if input.Artist != nil {
		track.Artist = *input.Artist
	}

	assignments := map[string]interface{}{"updated_at": time.Now()}
	if input.Title != nil {
		assignments["title"] = *input.Title
	}
	if input.Artist != nil {
		assignments["artist"] = *input.Artist
	}
	if input.ReleaseDate != nil {
		assignments["release_date"] = *input.ReleaseDate
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "isrc"}},
		DoNothing: true,
	}
	if len(assignments) > 1 {
		onConflict = clause.OnConflict{
			Columns:   onConflict.Columns,
			DoUpdates: clause.Assignments(assignments),
		}
	}

	if err := s.db.WithContext(ctx).Clauses(onConflict).Create(&track).Error; err != nil {
		return nil, err
	}

	// DO NOTHING does not report the surviving row, so read it back
	var saved schema.Track
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND isrc = ?", input.TenantID, input.ISRC).
		First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *pgStore) GetTrackByID(ctx context.Context, tenantID uuid.UUID, trackID int64) (*schema.Track, error) {
	var track schema.Track
	query := func(db *gorm.DB) error {
		return db.WithContext(ctx).
			Where("tenant_id = ? AND id = ?", tenantID, trackID).
			First(&track).Error
	}

	err := query(s.db)
	if err == nil {
		return &track, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !hasDBResolver(s.db) {
		return nil, domain.ErrTrackNotFound
	}

	// Replica can lag behind primary; retry on primary before returning not found.
	err = query(s.db.Clauses(dbresolver.Write))
	if err == nil {
		return &track, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTrackNotFound
	}
	return nil, err
}

func (s *pgStore) GetTrackByISRC(ctx context.Context, tenantID uuid.UUID, isrc string) (*schema.Track, error) {
	var track schema.Track
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND isrc = ?", tenantID, isrc).
		First(&track).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTrackNotFound
		}
		return nil, err
	}
	return &track, nil
}

func (s *pgStore) ListTracks(ctx context.Context, tenantID uuid.UUID) ([]schema.Track, error) {
	var tracks []schema.Track
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("isrc ASC").
		Find(&tracks).Error; err != nil {
		return nil, err
	}
	return tracks, nil
}

func (s *pgStore) ListTrackIDs(ctx context.Context, tenantID uuid.UUID, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).
		Model(&schema.Track{}).
		Where("tenant_id = ? AND id > ?", tenantID, afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *pgStore) UpdateTrack(ctx context.Context, tenantID uuid.UUID, trackID int64, input UpdateTrackInput) error {
	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Artist != nil {
		updates["artist"] = *input.Artist
	}
	if input.ReleaseDate != nil {
		updates["release_date"] = *input.ReleaseDate
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()

	result := s.db.WithContext(ctx).
		Model(&schema.Track{}).
		Where("tenant_id = ? AND id = ?", tenantID, trackID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTrackNotFound
	}
	return nil
}

func (s *pgStore) DeleteTrack(ctx context.Context, tenantID uuid.UUID, trackID int64) error {
	result := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, trackID).
		Delete(&schema.Track{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTrackNotFound
	}
	return nil
}

func (s *pgStore) EnsurePlaylist(ctx context.Context, input EnsurePlaylistInput) (*schema.Playlist, error) {
	playlist := schema.Playlist{
		TenantID:   input.TenantID,
		Platform:   input.Platform,
		ExternalID: input.ExternalID,
	}
	if input.Name != nil {
		playlist.Name = *input.Name
	}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "platform"}, {Name: "external_id"}},
		DoNothing: true,
	}
	if input.Name != nil {
		onConflict = clause.OnConflict{
			Columns: onConflict.Columns,
			DoUpdates: clause.Assignments(map[string]interface{}{
				"name":       *input.Name,
				"updated_at": time.Now(),
			}),
		}
	}

	if err := s.db.WithContext(ctx).Clauses(onConflict).Create(&playlist).Error; err != nil {
		return nil, err
	}

	var saved schema.Playlist
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ? AND external_id = ?", input.TenantID, input.Platform, input.ExternalID).
		First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *pgStore) GetPlaylistByID(ctx context.Context, tenantID uuid.UUID, playlistID int64) (*schema.Playlist, error) {
	var playlist schema.Playlist
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, playlistID).
		First(&playlist).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlaylistNotFound
		}
		return nil, err
	}
	return &playlist, nil
}

func (s *pgStore) GetPlaylistByExternalID(ctx context.Context, tenantID uuid.UUID, platform domain.Platform, externalID string) (*schema.Playlist, error) {
	var playlist schema.Playlist
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND platform = ? AND external_id = ?", tenantID, platform, externalID).
		First(&playlist).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlaylistNotFound
		}
		return nil, err
	}
	return &playlist, nil
}

func (s *pgStore) ListPlaylists(ctx context.Context, tenantID uuid.UUID) ([]schema.Playlist, error) {
	var playlists []schema.Playlist
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&playlists).Error; err != nil {
		return nil, err
	}
	return playlists, nil
}

func (s *pgStore) ListPlaylistIDs(ctx context.Context, tenantID uuid.UUID, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).
		Model(&schema.Playlist{}).
		Where("tenant_id = ? AND id > ?", tenantID, afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *pgStore) UpsertStreamSnapshot(ctx context.Context, snapshot *schema.StreamSnapshot) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "platform"}, {Name: "track_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"playcount":  snapshot.Playcount,
			"updated_at": time.Now(),
		}),
	}).Create(snapshot).Error
}

func (s *pgStore) UpsertFollowerSnapshot(ctx context.Context, snapshot *schema.FollowerSnapshot) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "platform"}, {Name: "playlist_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"followers":  snapshot.Followers,
			"updated_at": time.Now(),
		}),
	}).Create(snapshot).Error
}

func (s *pgStore) StreamSnapshotsFrom(ctx context.Context, platform domain.Platform, trackID int64, from time.Time) ([]schema.StreamSnapshot, error) {
	var snapshots []schema.StreamSnapshot
	if err := s.db.WithContext(ctx).
		Where("platform = ? AND track_id = ? AND snapshot_date >= ?", platform, trackID, from).
		Order("snapshot_date ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *pgStore) PriorStreamSnapshot(ctx context.Context, platform domain.Platform, trackID int64, before time.Time) (*schema.StreamSnapshot, error) {
	var snapshot schema.StreamSnapshot
	err := s.db.WithContext(ctx).
		Where("platform = ? AND track_id = ? AND snapshot_date < ?", platform, trackID, before).
		Order("snapshot_date DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *pgStore) FollowerSnapshotsFrom(ctx context.Context, platform domain.Platform, playlistID int64, from time.Time) ([]schema.FollowerSnapshot, error) {
	var snapshots []schema.FollowerSnapshot
	if err := s.db.WithContext(ctx).
		Where("platform = ? AND playlist_id = ? AND snapshot_date >= ?", platform, playlistID, from).
		Order("snapshot_date ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *pgStore) PriorFollowerSnapshot(ctx context.Context, platform domain.Platform, playlistID int64, before time.Time) (*schema.FollowerSnapshot, error) {
	var snapshot schema.FollowerSnapshot
	err := s.db.WithContext(ctx).
		Where("platform = ? AND playlist_id = ? AND snapshot_date < ?", platform, playlistID, before).
		Order("snapshot_date DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *pgStore) UpsertCatalogueHealth(ctx context.Context, snapshot *schema.CatalogueHealthSnapshot) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "track_id"}, {Name: "check_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"spotify_available":     snapshot.SpotifyAvailable,
			"apple_music_available": snapshot.AppleMusicAvailable,
			"updated_at":            time.Now(),
		}),
	}).Create(snapshot).Error
}

func (s *pgStore) HealthSnapshots(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]schema.CatalogueHealthSnapshot, error) {
	var snapshots []schema.CatalogueHealthSnapshot
	if err := s.db.WithContext(ctx).
		Preload("Track").
		Where("tenant_id = ? AND check_date >= ? AND check_date <= ?", tenantID, from, to).
		Order("track_id ASC, check_date ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}
