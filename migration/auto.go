package migration

import (
	"context"

	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/pkg/xcontext"
)

func AutoMigrate(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&entity.Account{},
		&entity.Session{},
		&entity.Reply{},
	)
}
