package schema

import (
	"time"

	"github.com/google/uuid"
)

// CatalogueHealthSnapshot represents the catalogue_health_snapshots table -
// a per-track, per-day availability observation across platforms. Point in
// time booleans, overwritten per day, never reconciled.
type CatalogueHealthSnapshot struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID is carried directly so tenant isolation needs no join
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;index:idx_catalogue_health_tenant"`
	// TrackID references the track that was checked
	TrackID int64 `gorm:"column:track_id;not null;uniqueIndex:idx_catalogue_health_key,priority:1"`
	// CheckDate is the calendar date of the availability check
	CheckDate time.Time `gorm:"column:check_date;not null;type:date;uniqueIndex:idx_catalogue_health_key,priority:2"`
	// SpotifyAvailable records whether the track was found on Spotify
	SpotifyAvailable bool `gorm:"column:spotify_available;not null;default:false"`
	// AppleMusicAvailable records whether the track was found on Apple Music
	AppleMusicAvailable bool `gorm:"column:apple_music_available;not null;default:false"`
	// Timestamps
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Track Track `gorm:"foreignKey:TrackID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the CatalogueHealthSnapshot model
func (CatalogueHealthSnapshot) TableName() string {
	return "catalogue_health_snapshots"
}
