package postgres

import (
	"context"

	"cms/internal/domain/entity"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/domain/repository"
	"cms/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// auditRepository implements the domain's AuditRepository interface.
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository is the constructor for auditRepository.
func NewAuditRepository(db *gorm.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

// Create persists one audit entry.
func (repo *auditRepository) Create(ctx context.Context, entry *entity.AuditEntry) error {
	entryM := fromAuditDomain(entry)

	if err := repo.db.WithContext(ctx).Create(entryM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create audit entry")
	}

	entry.ID = entryM.ID
	entry.CreatedAt = entryM.CreatedAt

	return nil
}

// List returns entries newest first.
func (repo *auditRepository) List(ctx context.Context, limit, offset int) ([]*entity.AuditEntry, error) {
	var entryModels []model.AuditLogModel
	err := repo.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entryModels).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	entries := make([]*entity.AuditEntry, 0, len(entryModels))
	for i := range entryModels {
		entries = append(entries, toAuditDomain(&entryModels[i]))
	}

	return entries, nil
}

// --- Mapper Functions ---

// toAuditDomain converts a GORM AuditLogModel to a domain AuditEntry entity.
func toAuditDomain(data *model.AuditLogModel) *entity.AuditEntry {
	if data == nil {
		return nil
	}

	return &entity.AuditEntry{
		ID:        data.ID,
		UserID:    data.UserID,
		Action:    data.Action,
		TableName: data.TargetTable,
		RecordID:  data.RecordID,
		Details:   data.Details,
		IPAddress: data.IPAddress,
		UserAgent: data.UserAgent,
		CreatedAt: data.CreatedAt,
	}
}

// fromAuditDomain converts a domain AuditEntry entity to a GORM AuditLogModel.
func fromAuditDomain(data *entity.AuditEntry) *model.AuditLogModel {
	if data == nil {
		return nil
	}

	return &model.AuditLogModel{
		ID:          data.ID,
		UserID:      data.UserID,
		Action:      data.Action,
		TargetTable: data.TableName,
		RecordID:    data.RecordID,
		Details:     data.Details,
		IPAddress:   data.IPAddress,
		UserAgent:   data.UserAgent,
		CreatedAt:   data.CreatedAt,
	}
}
