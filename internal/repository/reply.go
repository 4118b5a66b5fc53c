package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/pkg/xcontext"
	"gorm.io/gorm/clause"
)

type ReplyRepository interface {
	Upsert(ctx context.Context, reply *entity.Reply) error
	Latest(ctx context.Context, targetUserID string) (*entity.Reply, error)
	GetRecent(ctx context.Context, targetUserID string, limit int) ([]entity.Reply, error)
	GetRecentByTargets(ctx context.Context, targetUserIDs []string, limit int) ([]entity.Reply, error)
	Close(ctx context.Context, xPostID string) error
	GetByXPostID(ctx context.Context, xPostID string) (*entity.Reply, error)
	DeleteByTarget(ctx context.Context, targetUserID string) (int64, error)
}

type replyRepository struct{}

func NewReplyRepository() *replyRepository {
	return &replyRepository{}
}

// Upsert's conflict resolution on x_post_id is the source of truth for
// deduplication; there is no pre-check.
func (r *replyRepository) Upsert(ctx context.Context, reply *entity.Reply) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "x_post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"x_author_id",
				"x_author_username",
				"encrypted_text",
				"in_reply_to_post_id",
				"conversation_id",
				"target_user_id",
				"target_username",
				"metadata",
				"updated_at",
			}),
		}).Create(reply).Error
}

// Latest returns the newest stored reply for the target account. Its post id
// is the since_id watermark for the next poll.
func (r *replyRepository) Latest(ctx context.Context, targetUserID string) (*entity.Reply, error) {
	var result entity.Reply
	err := xcontext.DB(ctx).
		Where("target_user_id=?", targetUserID).
		Order("created_at DESC").
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *replyRepository) GetRecent(ctx context.Context, targetUserID string, limit int) ([]entity.Reply, error) {
	var result []entity.Reply
	err := xcontext.DB(ctx).
		Where("target_user_id=?", targetUserID).
		Order("created_at DESC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetRecentByTargets lists the newest replies across a set of accounts in a
// single query, so a multi-account inbox stays correctly ordered.
func (r *replyRepository) GetRecentByTargets(
	ctx context.Context, targetUserIDs []string, limit int,
) ([]entity.Reply, error) {
	var result []entity.Reply
	err := xcontext.DB(ctx).
		Where("target_user_id IN (?)", targetUserIDs).
		Order("created_at DESC").
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *replyRepository) Close(ctx context.Context, xPostID string) error {
	return xcontext.DB(ctx).Model(&entity.Reply{}).
		Where("x_post_id=?", xPostID).
		Updates(map[string]any{
			"status":    entity.ReplyStatusClosed,
			"closed_at": sql.NullTime{Time: time.Now(), Valid: true},
		}).Error
}

func (r *replyRepository) GetByXPostID(ctx context.Context, xPostID string) (*entity.Reply, error) {
	var result entity.Reply
	if err := xcontext.DB(ctx).Take(&result, "x_post_id=?", xPostID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

// DeleteByTarget removes every captured reply for a disconnected account and
// reports how many rows were actually cleaned up.
func (r *replyRepository) DeleteByTarget(ctx context.Context, targetUserID string) (int64, error) {
	tx := xcontext.DB(ctx).Delete(&entity.Reply{}, "target_user_id=?", targetUserID)
	return tx.RowsAffected, tx.Error
}
