package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// Playlist represents the playlists table - watched playlists whose follower
// counts are snapshotted
type Playlist struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID scopes the playlist to its owning tenant
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;uniqueIndex:idx_playlists_tenant_platform_ext,priority:1"`
	// Platform is the platform hosting the playlist
	Platform domain.Platform `gorm:"column:platform;not null;type:text;uniqueIndex:idx_playlists_tenant_platform_ext,priority:2"`
	// ExternalID is the platform-side playlist identifier
	ExternalID string `gorm:"column:external_id;not null;type:text;uniqueIndex:idx_playlists_tenant_platform_ext,priority:3"`
	// Name is the playlist display name
	Name string `gorm:"column:name;type:text"`
	// Timestamps
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Playlist model
func (Playlist) TableName() string {
	return "playlists"
}
