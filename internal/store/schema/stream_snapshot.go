package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// StreamSnapshot represents the stream_snapshots table - one reported
// cumulative play count for a track on a date. Repeated writes for the same
// key overwrite the value; deltas are always derived, never stored here.
type StreamSnapshot struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID is carried directly so tenant isolation needs no join
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;index:idx_stream_snapshots_tenant"`
	// Platform is the reporting platform
	Platform domain.Platform `gorm:"column:platform;not null;type:text;uniqueIndex:idx_stream_snapshots_key,priority:1"`
	// TrackID references the track being counted
	TrackID int64 `gorm:"column:track_id;not null;uniqueIndex:idx_stream_snapshots_key,priority:2"`
	// SnapshotDate is the calendar date the counter was observed for
	SnapshotDate time.Time `gorm:"column:snapshot_date;not null;type:date;uniqueIndex:idx_stream_snapshots_key,priority:3"`
	// Playcount is the cumulative play count at that date
	Playcount int64 `gorm:"column:playcount;not null"`
	// Timestamps
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Track Track `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the StreamSnapshot model
func (StreamSnapshot) TableName() string {
	return "stream_snapshots"
}

// FollowerSnapshot represents the follower_snapshots table - the playlist
// mirror of StreamSnapshot for cumulative follower counts
type FollowerSnapshot struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID is carried directly so tenant isolation needs no join
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;index:idx_follower_snapshots_tenant"`
	// Platform is the reporting platform
	Platform domain.Platform `gorm:"column:platform;not null;type:text;uniqueIndex:idx_follower_snapshots_key,priority:1"`
	// PlaylistID references the playlist being counted
	PlaylistID int64 `gorm:"column:playlist_id;not null;uniqueIndex:idx_follower_snapshots_key,priority:2"`
	// SnapshotDate is the calendar date the counter was observed for
	SnapshotDate time.Time `gorm:"column:snapshot_date;not null;type:date;uniqueIndex:idx_follower_snapshots_key,priority:3"`
	// Followers is the cumulative follower count at that date
	Followers int64 `gorm:"column:followers;not null"`
	// Timestamps
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Playlist Playlist `gorm:"foreignKey:PlaylistID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the FollowerSnapshot model
func (FollowerSnapshot) TableName() string {
	return "follower_snapshots"
}
