package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// StreamDailyDelta represents the stream_daily_deltas table - the derived
// per-track daily increment. Rows are replaced wholesale per entity window by
// the delta engine; they are never written by ingestion.
type StreamDailyDelta struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID is carried directly so tenant isolation needs no join
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;index:idx_stream_daily_deltas_tenant_date,priority:1"`
	// Platform is the reporting platform
	Platform domain.Platform `gorm:"column:platform;not null;type:text;uniqueIndex:idx_stream_daily_deltas_key,priority:1"`
	// TrackID references the track the delta belongs to
	TrackID int64 `gorm:"column:track_id;not null;uniqueIndex:idx_stream_daily_deltas_key,priority:2"`
	// DeltaDate is the day the increment is attributed to
	DeltaDate time.Time `gorm:"column:delta_date;not null;type:date;uniqueIndex:idx_stream_daily_deltas_key,priority:3;index:idx_stream_daily_deltas_tenant_date,priority:2"`
	// Delta is the derived increment, never negative
	Delta int64 `gorm:"column:delta;not null"`
	// CreatedAt is when this derivation was last written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Track Track `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the StreamDailyDelta model
func (StreamDailyDelta) TableName() string {
	return "stream_daily_deltas"
}

// FollowerDailyDelta represents the follower_daily_deltas table - the playlist
// mirror of StreamDailyDelta
type FollowerDailyDelta struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID is carried directly so tenant isolation needs no join
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;index:idx_follower_daily_deltas_tenant_date,priority:1"`
	// Platform is the reporting platform
	Platform domain.Platform `gorm:"column:platform;not null;type:text;uniqueIndex:idx_follower_daily_deltas_key,priority:1"`
	// PlaylistID references the playlist the delta belongs to
	PlaylistID int64 `gorm:"column:playlist_id;not null;uniqueIndex:idx_follower_daily_deltas_key,priority:2"`
	// DeltaDate is the day the increment is attributed to
	DeltaDate time.Time `gorm:"column:delta_date;not null;type:date;uniqueIndex:idx_follower_daily_deltas_key,priority:3;index:idx_follower_daily_deltas_tenant_date,priority:2"`
	// Delta is the derived increment, never negative
	Delta int64 `gorm:"column:delta;not null"`
	// CreatedAt is when this derivation was last written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`

	// Associations
	Playlist Playlist `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the FollowerDailyDelta model
func (FollowerDailyDelta) TableName() string {
	return "follower_daily_deltas"
}
