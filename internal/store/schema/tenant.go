package schema

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents the tenants table - the multi-tenancy boundary that owns
// every other tenant-scoped row
type Tenant struct {
	// ID is the tenant identifier, minted by the auth provider
	ID uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	// Name is the display name of the tenant account
	Name string `gorm:"column:name;not null;type:text"`
	// CreatedAt is the timestamp when this tenant was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}
