package postgres

import (
	"context"
	"time"

	"cms/internal/domain/entity"
	domainerrors "cms/internal/domain/errors"
	"cms/internal/domain/repository"
	"cms/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// userRepository implements the domain's UserRepository interface.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository is the constructor for userRepository.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// activeUsers scopes a query to accounts that are allowed to authenticate.
func activeUsers(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", string(entity.UserStatusActive)).
		Where("deleted_at IS NULL")
}

// FindActiveByEmail retrieves an active user by email with its role preloaded.
func (repo *userRepository) FindActiveByEmail(ctx context.Context, email string) (*entity.User, error) {
	var userM model.UserModel
	err := activeUsers(repo.db.WithContext(ctx)).
		Preload("Role").
		Where("email = ?", email).
		First(&userM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toUserDomain(&userM), nil
}

// FindActiveByID retrieves an active user by ID with its role preloaded.
func (repo *userRepository) FindActiveByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var userM model.UserModel
	err := activeUsers(repo.db.WithContext(ctx)).
		Preload("Role").
		Where("id = ?", id).
		First(&userM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toUserDomain(&userM), nil
}

// UpdateLastLogin stamps the most recent successful login.
func (repo *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return repo.updateColumn(ctx, id, "last_login_at", at)
}

// UpdateLastForgot stamps the forgot-password cooldown anchor.
func (repo *userRepository) UpdateLastForgot(ctx context.Context, id uuid.UUID, at time.Time) error {
	return repo.updateColumn(ctx, id, "last_forgot_at", at)
}

// UpdatePassword replaces the stored password hash.
func (repo *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return repo.updateColumn(ctx, id, "password_hash", passwordHash)
}

func (repo *userRepository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	result := repo.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Update(column, value)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update user "+column)
	}

	// If no rows were affected, the user does not exist.
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	return nil
}

// --- Mapper Functions ---

// toUserDomain converts a GORM UserModel to a domain User entity.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	user := &entity.User{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Status:       entity.UserStatus(data.Status),
		RoleID:       data.RoleID,
		LastLoginAt:  data.LastLoginAt,
		LastForgotAt: data.LastForgotAt,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
		DeletedAt:    data.DeletedAt,
	}
	if data.Role != nil {
		user.RoleName = data.Role.Name
	}

	return user
}
