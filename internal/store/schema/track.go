package schema

import (
	"time"

	"github.com/google/uuid"
)

// Track represents the tracks table - one catalogue entry per tenant. The same
// ISRC held by two tenants yields two fully independent rows.
type Track struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID scopes the track to its owning tenant
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;uniqueIndex:idx_tracks_tenant_isrc,priority:1"`
	// ISRC is the external catalogue code
	ISRC string `gorm:"column:isrc;not null;type:text;uniqueIndex:idx_tracks_tenant_isrc,priority:2"`
	// Title is the display title, may be empty until metadata arrives
	Title string `gorm:"column:title;type:text"`
	// Artist is the display artist line
	Artist string `gorm:"column:artist;type:text"`
	// ReleaseDate is the catalogue release date when known
	ReleaseDate *time.Time `gorm:"column:release_date;type:date"`
	// Timestamps
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Track model
func (Track) TableName() string {
	return "tracks"
}
