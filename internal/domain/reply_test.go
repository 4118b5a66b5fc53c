package domain

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/internal/model"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/internal/testutil"
	"github.com/replydesk/backend/pkg/api/xapi"
	"github.com/replydesk/backend/pkg/crypto"
	"github.com/replydesk/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

type replyTestEnv struct {
	ctx         context.Context
	cipher      *crypto.Cipher
	accountRepo repository.AccountRepository
	replyRepo   repository.ReplyRepository
	endpoint    *testutil.MockEndpoint
	replyDomain ReplyDomain
}

func newReplyTestEnv(t *testing.T) *replyTestEnv {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	ctx = xcontext.WithRequestScope(ctx)
	xcontext.SetRequestUserID(ctx, "owner")

	cipher := newTestCipher(t)
	accountRepo := repository.NewAccountRepository()
	replyRepo := repository.NewReplyRepository()
	endpoint := &testutil.MockEndpoint{}
	tokenManager := NewTokenManager(accountRepo, endpoint, cipher)

	return &replyTestEnv{
		ctx:         ctx,
		cipher:      cipher,
		accountRepo: accountRepo,
		replyRepo:   replyRepo,
		endpoint:    endpoint,
		replyDomain: NewReplyDomain(accountRepo, replyRepo, tokenManager, endpoint, cipher),
	}
}

func (env *replyTestEnv) seedConnectedAccount(t *testing.T, xUserID string) {
	encryptedAccess, err := env.cipher.Encrypt("access-" + xUserID)
	require.NoError(t, err)

	require.NoError(t, env.accountRepo.Upsert(env.ctx, &entity.Account{
		Base:                 entity.Base{ID: uuid.NewString()},
		XUserID:              xUserID,
		XUsername:            "handle-" + xUserID,
		IsConnected:          true,
		ConnectedAt:          time.Now(),
		EncryptedAccessToken: encryptedAccess,
		TokenExpiresAt:       sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true},
		OwnerID:              "owner",
	}))
}

func (env *replyTestEnv) seedReply(t *testing.T, postID, targetUserID, text string) {
	encryptedText, err := env.cipher.Encrypt(text)
	require.NoError(t, err)

	require.NoError(t, env.replyRepo.Upsert(env.ctx, &entity.Reply{
		Base:          entity.Base{ID: uuid.NewString()},
		XPostID:       postID,
		EncryptedText: encryptedText,
		Status:        entity.ReplyStatusOpen,
		TargetUserID:  targetUserID,
	}))
}

func Test_replyDomain_GetReplies_decryptsStoredText(t *testing.T) {
	env := newReplyTestEnv(t)
	env.seedConnectedAccount(t, "user-1")
	env.seedReply(t, "post-1", "user-1", "hello there")

	resp, err := env.replyDomain.GetReplies(env.ctx, &model.GetRepliesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Replies, 1)
	require.Equal(t, "hello there", resp.Replies[0].Text)
}

func Test_replyDomain_GetReplies_badRecordGetsSentinelText(t *testing.T) {
	env := newReplyTestEnv(t)
	env.seedConnectedAccount(t, "user-1")
	env.seedReply(t, "post-1", "user-1", "still readable")

	require.NoError(t, env.replyRepo.Upsert(env.ctx, &entity.Reply{
		Base:          entity.Base{ID: uuid.NewString()},
		XPostID:       "post-2",
		EncryptedText: "not-a-cipher-blob",
		Status:        entity.ReplyStatusOpen,
		TargetUserID:  "user-1",
	}))

	resp, err := env.replyDomain.GetReplies(env.ctx, &model.GetRepliesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Replies, 2)

	texts := map[string]string{}
	for _, reply := range resp.Replies {
		texts[reply.XPostID] = reply.Text
	}
	require.Equal(t, "still readable", texts["post-1"])
	require.Equal(t, decryptFailedText, texts["post-2"])
}

func Test_replyDomain_SendReply_postsAndCloses(t *testing.T) {
	env := newReplyTestEnv(t)
	env.seedConnectedAccount(t, "user-1")
	env.seedReply(t, "post-1", "user-1", "question")

	env.endpoint.CreatePostFunc = func(
		_ context.Context, accessToken, text, inReplyToPostID string,
	) (xapi.Post, error) {
		require.Equal(t, "access-user-1", accessToken)
		require.Equal(t, "the answer", text)
		require.Equal(t, "post-1", inReplyToPostID)
		return xapi.Post{ID: "new-post"}, nil
	}

	resp, err := env.replyDomain.SendReply(env.ctx, &model.SendReplyRequest{
		PostID: "post-1",
		Text:   "the answer",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "new-post", resp.XPostID)

	reply, err := env.replyRepo.GetByXPostID(env.ctx, "post-1")
	require.NoError(t, err)
	require.Equal(t, entity.ReplyStatusClosed, reply.Status)
}

func Test_replyDomain_ClearReplies(t *testing.T) {
	env := newReplyTestEnv(t)
	env.seedConnectedAccount(t, "user-1")
	env.seedReply(t, "post-1", "user-1", "one")
	env.seedReply(t, "post-2", "user-1", "two")
	env.seedReply(t, "post-3", "stranger", "not ours")

	resp, err := env.replyDomain.ClearReplies(env.ctx, &model.ClearRepliesRequest{})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.EqualValues(t, 2, resp.Deleted)
}
