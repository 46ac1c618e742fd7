package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// DailyTotal represents the daily_totals table - the tenant-wide aggregate of
// per-entity deltas for one day and one reconciliation stream. Mutable until
// finalized; after that only lag credits may account for corrections.
type DailyTotal struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID scopes the total to its owning tenant
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;uniqueIndex:idx_daily_totals_key,priority:1"`
	// Kind separates the streams and followers reconciliation streams
	Kind domain.AggregateKind `gorm:"column:kind;not null;type:text;uniqueIndex:idx_daily_totals_key,priority:2"`
	// Day is the calendar date the total covers
	Day time.Time `gorm:"column:day;not null;type:date;uniqueIndex:idx_daily_totals_key,priority:3"`
	// TotalDelta is the aggregated increment for the day
	TotalDelta int64 `gorm:"column:total_delta;not null"`
	// Finalized marks the day as historically fixed
	Finalized bool `gorm:"column:finalized;not null;default:false"`
	// FinalizedAt records when the day was finalized
	FinalizedAt *time.Time `gorm:"column:finalized_at;type:timestamptz"`
	// Timestamps
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the DailyTotal model
func (DailyTotal) TableName() string {
	return "daily_totals"
}

// LagCredit represents the lag_credits table - compensating adjustments for
// volume discovered after a day finalized. MovedToday holds the credit from
// the most recent processing pass; MovedAlltime accumulates every credit ever
// applied to the day. Credits may be negative when a finalized day is revised
// downward.
type LagCredit struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TenantID scopes the credit to its owning tenant
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;uniqueIndex:idx_lag_credits_key,priority:1"`
	// Kind separates the streams and followers reconciliation streams
	Kind domain.AggregateKind `gorm:"column:kind;not null;type:text;uniqueIndex:idx_lag_credits_key,priority:2"`
	// Day is the finalized calendar date the credit compensates
	Day time.Time `gorm:"column:day;not null;type:date;uniqueIndex:idx_lag_credits_key,priority:3"`
	// MovedToday is the credit applied during the current processing pass
	MovedToday int64 `gorm:"column:moved_today;not null;default:0"`
	// MovedAlltime is the cumulative compensation ever applied to the day
	MovedAlltime int64 `gorm:"column:moved_alltime;not null;default:0"`
	// UpdatedAt is when the credit was last touched
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the LagCredit model
func (LagCredit) TableName() string {
	return "lag_credits"
}
