package repository

import (
	"context"
	"time"

	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/pkg/xcontext"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	GetByToken(ctx context.Context, token string) (*entity.Session, error)
	Delete(ctx context.Context, token string) error
	DeleteByXUserID(ctx context.Context, xUserID string) error
}

type sessionRepository struct{}

func NewSessionRepository() *sessionRepository {
	return &sessionRepository{}
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	return xcontext.DB(ctx).Create(session).Error
}

// GetByToken only resolves non-expired sessions. Expiry is enforced here so
// every use re-checks it.
func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*entity.Session, error) {
	var result entity.Session
	err := xcontext.DB(ctx).
		Take(&result, "token=? AND expires_at>?", token, time.Now()).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *sessionRepository) Delete(ctx context.Context, token string) error {
	return xcontext.DB(ctx).Delete(&entity.Session{}, "token=?", token).Error
}

func (r *sessionRepository) DeleteByXUserID(ctx context.Context, xUserID string) error {
	return xcontext.DB(ctx).Delete(&entity.Session{}, "x_user_id=?", xUserID).Error
}
