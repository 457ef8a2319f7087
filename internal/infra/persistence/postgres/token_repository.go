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

// tokenRepository implements the domain's TokenRepository interface.
type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository is the constructor for tokenRepository.
func NewTokenRepository(db *gorm.DB) repository.TokenRepository {
	return &tokenRepository{db: db}
}

// usableTokens scopes a query to ledger entries that still authorize their
// credential: not revoked, not consumed and not expired.
func usableTokens(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("is_revoked = ?", false).
		Where("used_at IS NULL").
		Where("expires_at > ?", now)
}

// Create persists a ledger entry for a freshly issued token.
func (repo *tokenRepository) Create(ctx context.Context, token *entity.Token) error {
	tokenM := fromTokenDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrInvalidToken.WrapMessage("token hash already recorded")
		}
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.NewDatabaseExecuteError(err, "invalid user reference")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create token")
	}

	// Update the entity with generated values
	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindActive retrieves the usable ledger entry for a token hash and type.
func (repo *tokenRepository) FindActive(ctx context.Context, tokenHash string, tokenType entity.TokenType) (*entity.Token, error) {
	var tokenM model.TokenModel
	err := usableTokens(repo.db.WithContext(ctx), time.Now()).
		Where("token_hash = ?", tokenHash).
		Where("type = ?", tokenType.String()).
		First(&tokenM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrTokenNotFound
		}

		return nil, errors.WithStack(err)
	}

	return toTokenDomain(&tokenM), nil
}

// FindActiveByUserID lists usable entries of one type for a user, newest first.
func (repo *tokenRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID, tokenType entity.TokenType) ([]*entity.Token, error) {
	var tokenModels []model.TokenModel
	err := usableTokens(repo.db.WithContext(ctx), time.Now()).
		Where("user_id = ?", userID).
		Where("type = ?", tokenType.String()).
		Order("created_at DESC").
		Find(&tokenModels).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	tokens := make([]*entity.Token, 0, len(tokenModels))
	for i := range tokenModels {
		tokens = append(tokens, toTokenDomain(&tokenModels[i]))
	}

	return tokens, nil
}

// RevokeAllForUser bulk-revokes every usable entry of the given types in one statement.
func (repo *tokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID, types ...entity.TokenType) error {
	if len(types) == 0 {
		return nil
	}

	typeNames := make([]string, 0, len(types))
	for _, t := range types {
		typeNames = append(typeNames, t.String())
	}

	err := usableTokens(repo.db.WithContext(ctx), time.Now()).
		Model(&model.TokenModel{}).
		Where("user_id = ?", userID).
		Where("type IN ?", typeNames).
		Update("is_revoked", true).Error
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to revoke tokens")
	}

	return nil
}

// RevokeAccessTokens revokes every usable access token for a user.
func (repo *tokenRepository) RevokeAccessTokens(ctx context.Context, userID uuid.UUID) error {
	return repo.RevokeAllForUser(ctx, userID, entity.TokenTypeAccess)
}

// ConsumeSingleUse atomically marks a single-use entry as used and revoked.
// The WHERE clause carries the full usability predicate, so of two concurrent
// consumers exactly one sees RowsAffected == 1; the loser gets ErrTokenConsumed.
func (repo *tokenRepository) ConsumeSingleUse(ctx context.Context, tokenHash string) error {
	now := time.Now()

	result := usableTokens(repo.db.WithContext(ctx), now).
		Model(&model.TokenModel{}).
		Where("token_hash = ?", tokenHash).
		Updates(map[string]any{
			"is_revoked": true,
			"used_at":    now,
		})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to consume token")
	}

	if result.RowsAffected == 0 {
		return repository.ErrTokenConsumed
	}

	return nil
}

// DeleteExpired removes expired entries plus revoked entries older than the
// retention window. Returns the number of rows removed.
func (repo *tokenRepository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	now := time.Now()

	result := repo.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Or("is_revoked = ? AND created_at < ?", true, now.Add(-retention)).
		Delete(&model.TokenModel{})
	if result.Error != nil {
		return 0, errors.WithStack(result.Error)
	}

	return result.RowsAffected, nil
}

// --- Mapper Functions ---

// toTokenDomain converts a GORM TokenModel to a domain Token entity.
func toTokenDomain(data *model.TokenModel) *entity.Token {
	if data == nil {
		return nil
	}

	return &entity.Token{
		ID:        data.ID,
		UserID:    data.UserID,
		TokenHash: data.TokenHash,
		Type:      entity.TokenType(data.Type),
		ExpiresAt: data.ExpiresAt,
		IsRevoked: data.IsRevoked,
		UsedAt:    data.UsedAt,
		IPAddress: data.IPAddress,
		UserAgent: data.UserAgent,
		CreatedAt: data.CreatedAt,
	}
}

// fromTokenDomain converts a domain Token entity to a GORM TokenModel.
func fromTokenDomain(data *entity.Token) *model.TokenModel {
	if data == nil {
		return nil
	}

	return &model.TokenModel{
		ID:        data.ID,
		UserID:    data.UserID,
		TokenHash: data.TokenHash,
		Type:      data.Type.String(),
		ExpiresAt: data.ExpiresAt,
		IsRevoked: data.IsRevoked,
		UsedAt:    data.UsedAt,
		IPAddress: data.IPAddress,
		UserAgent: data.UserAgent,
		CreatedAt: data.CreatedAt,
	}
}
