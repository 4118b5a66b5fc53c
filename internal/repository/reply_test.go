package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newReply(postID, targetUserID string, createdAt time.Time) *entity.Reply {
	return &entity.Reply{
		Base:            entity.Base{ID: uuid.NewString(), CreatedAt: createdAt},
		XPostID:         postID,
		XAuthorID:       "author-" + postID,
		XAuthorUsername: "someone",
		EncryptedText:   "blob-" + postID,
		Status:          entity.ReplyStatusOpen,
		TargetUserID:    targetUserID,
		TargetUsername:  "target",
	}
}

func Test_replyRepository_Upsert_deduplicatesOnPostID(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	repo := NewReplyRepository()

	require.NoError(t, repo.Upsert(ctx, newReply("post-1", "user-1", time.Now())))

	updated := newReply("post-1", "user-1", time.Now())
	updated.EncryptedText = "updated-blob"
	require.NoError(t, repo.Upsert(ctx, updated))

	replies, err := repo.GetRecent(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.Equal(t, "updated-blob", replies[0].EncryptedText)
}

func Test_replyRepository_Latest_isTheWatermark(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	repo := NewReplyRepository()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Upsert(ctx, newReply("post-1", "user-1", base)))
	require.NoError(t, repo.Upsert(ctx, newReply("post-2", "user-1", base.Add(time.Minute))))
	require.NoError(t, repo.Upsert(ctx, newReply("post-9", "user-2", base.Add(time.Hour))))

	latest, err := repo.Latest(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "post-2", latest.XPostID)

	_, err = repo.Latest(ctx, "user-3")
	require.Error(t, err)
}

func Test_replyRepository_GetRecentByTargets(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	repo := NewReplyRepository()

	base := time.Now().Add(-time.Hour)
	require.NoError(t, repo.Upsert(ctx, newReply("post-1", "user-1", base)))
	require.NoError(t, repo.Upsert(ctx, newReply("post-2", "user-2", base.Add(time.Minute))))
	require.NoError(t, repo.Upsert(ctx, newReply("post-3", "user-3", base.Add(2*time.Minute))))

	replies, err := repo.GetRecentByTargets(ctx, []string{"user-1", "user-2"}, 10)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	require.Equal(t, "post-2", replies[0].XPostID)
	require.Equal(t, "post-1", replies[1].XPostID)
}

func Test_replyRepository_Close(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	repo := NewReplyRepository()

	require.NoError(t, repo.Upsert(ctx, newReply("post-1", "user-1", time.Now())))
	require.NoError(t, repo.Close(ctx, "post-1"))

	reply, err := repo.GetByXPostID(ctx, "post-1")
	require.NoError(t, err)
	require.Equal(t, entity.ReplyStatusClosed, reply.Status)
	require.True(t, reply.ClosedAt.Valid)
}

func Test_replyRepository_DeleteByTarget_reportsCount(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	repo := NewReplyRepository()

	base := time.Now()
	require.NoError(t, repo.Upsert(ctx, newReply("post-1", "user-1", base)))
	require.NoError(t, repo.Upsert(ctx, newReply("post-2", "user-1", base)))
	require.NoError(t, repo.Upsert(ctx, newReply("post-3", "user-2", base)))

	count, err := repo.DeleteByTarget(ctx, "user-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	remaining, err := repo.GetRecent(ctx, "user-2", 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}
