package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/internal/testutil"
	"github.com/stretchr/testify/require"
)

func Test_sessionRepository_GetByToken(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	repo := NewSessionRepository()

	require.NoError(t, repo.Create(ctx, &entity.Session{
		Base:      entity.Base{ID: uuid.NewString()},
		Token:     "live-token",
		XUserID:   "user-1",
		XUsername: "alice",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	session, err := repo.GetByToken(ctx, "live-token")
	require.NoError(t, err)
	require.Equal(t, "user-1", session.XUserID)

	_, err = repo.GetByToken(ctx, "unknown-token")
	require.Error(t, err)
}

func Test_sessionRepository_GetByToken_rejectsExpired(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	repo := NewSessionRepository()

	require.NoError(t, repo.Create(ctx, &entity.Session{
		Base:      entity.Base{ID: uuid.NewString()},
		Token:     "stale-token",
		XUserID:   "user-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := repo.GetByToken(ctx, "stale-token")
	require.Error(t, err)
}

func Test_sessionRepository_DeleteByXUserID(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	repo := NewSessionRepository()

	for _, token := range []string{"token-1", "token-2"} {
		require.NoError(t, repo.Create(ctx, &entity.Session{
			Base:      entity.Base{ID: uuid.NewString()},
			Token:     token,
			XUserID:   "user-1",
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}

	require.NoError(t, repo.DeleteByXUserID(ctx, "user-1"))

	_, err := repo.GetByToken(ctx, "token-1")
	require.Error(t, err)
	_, err = repo.GetByToken(ctx, "token-2")
	require.Error(t, err)
}
