package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenModel mirrors the 'tokens' table, the server-side ledger for every
// issued credential. TokenHash stores the SHA-256 hex digest, never the
// token string itself.
type TokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_tokens_user_type"`
	TokenHash string    `gorm:"type:varchar(64);unique;not null"`
	Type      string    `gorm:"type:varchar(20);not null;index:idx_tokens_user_type"`
	ExpiresAt time.Time `gorm:"not null;index"`
	IsRevoked bool      `gorm:"not null;default:false"`
	UsedAt    *time.Time
	IPAddress string `gorm:"type:varchar(45)"`
	UserAgent string `gorm:"type:varchar(512)"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (TokenModel) TableName() string {
	return "tokens"
}
