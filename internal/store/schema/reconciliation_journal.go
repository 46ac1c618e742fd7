package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// ReconciliationAction identifies what kind of reconciliation decision was recorded
type ReconciliationAction string

const (
	// ActionCorrection is an in-place daily total overwrite before finalization
	ActionCorrection ReconciliationAction = "correction"
	// ActionCredit is a lag credit applied to an already-finalized day
	ActionCredit ReconciliationAction = "credit"
	// ActionFinalize marks a day's total as historically fixed
	ActionFinalize ReconciliationAction = "finalize"
)

// ReconciliationJournal represents the reconciliation_journal table - an audit
// log of every reconciliation decision, ordered by an auto-incrementing cursor
type ReconciliationJournal struct {
	// Cursor is an auto-incrementing sequence number for ordering and pagination
	Cursor int64 `gorm:"column:\"cursor\";primaryKey;autoIncrement"`
	// TenantID scopes the entry to its owning tenant
	TenantID uuid.UUID `gorm:"column:tenant_id;not null;type:uuid;index:idx_reconciliation_journal_tenant"`
	// Kind separates the streams and followers reconciliation streams
	Kind domain.AggregateKind `gorm:"column:kind;not null;type:text"`
	// Day is the calendar date the decision concerns
	Day time.Time `gorm:"column:day;not null;type:date"`
	// Action identifies what was decided
	Action ReconciliationAction `gorm:"column:action;not null;type:text"`
	// Meta carries decision context as JSON (old/new totals, credit amount)
	Meta datatypes.JSON `gorm:"column:meta;type:jsonb"`
	// ChangedAt is when the decision was recorded
	ChangedAt time.Time `gorm:"column:changed_at;not null;default:now();type:timestamptz"`

	// Associations
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the ReconciliationJournal model
func (ReconciliationJournal) TableName() string {
	return "reconciliation_journal"
}

// CorrectionMeta is the journal meta payload for corrections and credits
type CorrectionMeta struct {
	OldTotal int64 `json:"old_total"`
	NewTotal int64 `json:"new_total"`
	Credit   int64 `json:"credit,omitempty"`
}
