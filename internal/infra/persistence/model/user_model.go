package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via uuid_generate_v7().
// It is an exported type so it can be used by the GORM Gen tool from other packages.
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Email        string    `gorm:"type:varchar(255);unique;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	Status       string    `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	RoleID       uuid.UUID `gorm:"type:uuid;not null;index"`
	LastLoginAt  *time.Time
	LastForgotAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time `gorm:"index"`

	Role   *RoleModel   `gorm:"foreignKey:RoleID"`
	Tokens []TokenModel `gorm:"foreignKey:UserID"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// RoleModel mirrors the 'roles' table.
type RoleModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Name      string    `gorm:"type:varchar(100);unique;not null"`
	IsSystem  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Permissions []PermissionModel `gorm:"foreignKey:RoleID"`
}

// TableName explicitly sets the table name for GORM.
func (RoleModel) TableName() string {
	return "roles"
}

// PermissionModel mirrors the 'permissions' table. One row grants a role a
// single (resource, action) pair.
type PermissionModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	RoleID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_permissions_role_resource_action"`
	Resource  string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_permissions_role_resource_action"`
	Action    string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_permissions_role_resource_action"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (PermissionModel) TableName() string {
	return "permissions"
}
