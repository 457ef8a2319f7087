package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLogModel mirrors the 'audit_logs' table. UserID is nullable so events
// without an authenticated actor (failed logins, anonymous flows) still record.
type AuditLogModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID      *uuid.UUID `gorm:"type:uuid;index"`
	Action      string     `gorm:"type:varchar(50);not null;index"`
	TargetTable string     `gorm:"column:table_name;type:varchar(100)"`
	RecordID    *uuid.UUID `gorm:"type:uuid"`
	Details     string     `gorm:"type:text"`
	IPAddress   string     `gorm:"type:varchar(45)"`
	UserAgent   string     `gorm:"type:varchar(512)"`
	CreatedAt   time.Time  `gorm:"index"`
}

// TableName explicitly sets the table name for GORM.
func (AuditLogModel) TableName() string {
	return "audit_logs"
}
