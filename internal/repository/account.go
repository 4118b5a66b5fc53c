package repository

import (
	"context"
	"database/sql"

	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type AccountRepository interface {
	Upsert(ctx context.Context, account *entity.Account) error
	GetByXUserID(ctx context.Context, xUserID string) (*entity.Account, error)
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetConnectedByOwner(ctx context.Context, ownerID string) ([]entity.Account, error)
	GetAllConnected(ctx context.Context) ([]entity.Account, error)
	CountConnectedByOwner(ctx context.Context, ownerID string) (int64, error)
	UpdateTokens(
		ctx context.Context,
		xUserID string,
		encryptedAccessToken string,
		encryptedRefreshToken sql.NullString,
		expiresAt sql.NullTime,
	) error
	Delete(ctx context.Context, id string) error
}

type accountRepository struct{}

func NewAccountRepository() *accountRepository {
	return &accountRepository{}
}

// Upsert is idempotent by platform user id: a repeated OAuth completion
// replaces the stored identity and tokens instead of inserting a second row.
func (r *accountRepository) Upsert(ctx context.Context, account *entity.Account) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "x_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"x_username",
				"is_connected",
				"connected_at",
				"encrypted_access_token",
				"encrypted_refresh_token",
				"encrypted_token_secret",
				"token_expires_at",
				"owner_id",
				"updated_at",
			}),
		}).Create(account).Error
}

func (r *accountRepository) GetByXUserID(ctx context.Context, xUserID string) (*entity.Account, error) {
	var result entity.Account
	if err := xcontext.DB(ctx).Take(&result, "x_user_id=?", xUserID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	var result entity.Account
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *accountRepository) GetConnectedByOwner(ctx context.Context, ownerID string) ([]entity.Account, error) {
	var result []entity.Account
	err := xcontext.DB(ctx).
		Where("owner_id=? AND is_connected=?", ownerID, true).
		Order("connected_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetAllConnected lists every connected account regardless of owner. The
// background poller walks this list.
func (r *accountRepository) GetAllConnected(ctx context.Context) ([]entity.Account, error) {
	var result []entity.Account
	err := xcontext.DB(ctx).
		Where("is_connected=?", true).
		Order("connected_at DESC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *accountRepository) CountConnectedByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := xcontext.DB(ctx).Model(&entity.Account{}).
		Where("owner_id=? AND is_connected=?", ownerID, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *accountRepository) UpdateTokens(
	ctx context.Context,
	xUserID string,
	encryptedAccessToken string,
	encryptedRefreshToken sql.NullString,
	expiresAt sql.NullTime,
) error {
	return xcontext.DB(ctx).Model(&entity.Account{}).
		Where("x_user_id=?", xUserID).
		Updates(map[string]any{
			"encrypted_access_token":  encryptedAccessToken,
			"encrypted_refresh_token": encryptedRefreshToken,
			"token_expires_at":        expiresAt,
		}).Error
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	return xcontext.DB(ctx).Delete(&entity.Account{}, "id=?", id).Error
}
