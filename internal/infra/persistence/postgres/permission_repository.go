package postgres

import (
	"context"

	"cms/internal/domain/entity"
	"cms/internal/domain/repository"
	"cms/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// permissionRepository implements the domain's PermissionRepository interface.
type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository is the constructor for permissionRepository.
func NewPermissionRepository(db *gorm.DB) repository.PermissionRepository {
	return &permissionRepository{db: db}
}

// Exists reports whether a permission row grants the exact (role, resource, action) triple.
func (repo *permissionRepository) Exists(ctx context.Context, roleID uuid.UUID, resource entity.Resource, action entity.Action) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&model.PermissionModel{}).
		Where("role_id = ?", roleID).
		Where("resource = ?", string(resource)).
		Where("action = ?", string(action)).
		Count(&count).Error
	if err != nil {
		return false, errors.WithStack(err)
	}

	return count > 0, nil
}
