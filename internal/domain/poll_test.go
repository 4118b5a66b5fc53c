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
	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

type pollTestEnv struct {
	ctx         context.Context
	cipher      *crypto.Cipher
	accountRepo repository.AccountRepository
	replyRepo   repository.ReplyRepository
	endpoint    *testutil.MockEndpoint
	pollDomain  PollDomain
}

func newPollTestEnv(t *testing.T) *pollTestEnv {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	ctx = xcontext.WithRequestScope(ctx)
	xcontext.SetRequestUserID(ctx, "owner")

	cipher := newTestCipher(t)
	accountRepo := repository.NewAccountRepository()
	replyRepo := repository.NewReplyRepository()
	endpoint := &testutil.MockEndpoint{}
	tokenManager := NewTokenManager(accountRepo, endpoint, cipher)

	return &pollTestEnv{
		ctx:         ctx,
		cipher:      cipher,
		accountRepo: accountRepo,
		replyRepo:   replyRepo,
		endpoint:    endpoint,
		pollDomain:  NewPollDomain(accountRepo, replyRepo, tokenManager, endpoint, cipher),
	}
}

func (env *pollTestEnv) seedConnectedAccount(t *testing.T, xUserID, username string) {
	encryptedAccess, err := env.cipher.Encrypt("access-" + xUserID)
	require.NoError(t, err)

	require.NoError(t, env.accountRepo.Upsert(env.ctx, &entity.Account{
		Base:                 entity.Base{ID: uuid.NewString()},
		XUserID:              xUserID,
		XUsername:            username,
		IsConnected:          true,
		ConnectedAt:          time.Now(),
		EncryptedAccessToken: encryptedAccess,
		TokenExpiresAt:       sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true},
		OwnerID:              "owner",
	}))
}

func Test_pollDomain_storesNewRepliesEncrypted(t *testing.T) {
	env := newPollTestEnv(t)
	env.seedConnectedAccount(t, "user-1", "alice")

	env.endpoint.SearchRepliesFunc = func(
		_ context.Context, accessToken, handle, sinceID string, maxResults int,
	) (xapi.SearchResult, error) {
		require.Equal(t, "access-user-1", accessToken)
		require.Equal(t, "alice", handle)
		require.Empty(t, sinceID)
		require.Equal(t, 10, maxResults)
		return xapi.SearchResult{
			Posts: []xapi.Post{
				{ID: "101", Text: "first mention", AuthorID: "a-1", ConversationID: "c-1"},
				{ID: "102", Text: "second mention", AuthorID: "a-2", ConversationID: "c-2"},
			},
			Users: []xapi.User{{ID: "a-1", Username: "bob"}},
		}, nil
	}

	resp, err := env.pollDomain.Poll(env.ctx, &model.PollRequest{})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.False(t, resp.RateLimited)
	require.Equal(t, 2, resp.TotalNewReplies)
	require.Len(t, resp.AccountResults, 1)
	require.True(t, resp.AccountResults[0].Success)
	require.Equal(t, 2, resp.AccountResults[0].NewReplies)

	reply, err := env.replyRepo.GetByXPostID(env.ctx, "101")
	require.NoError(t, err)
	require.Equal(t, "bob", reply.XAuthorUsername)
	require.Equal(t, entity.ReplyStatusOpen, reply.Status)
	require.Equal(t, "user-1", reply.TargetUserID)
	require.NotEqual(t, "first mention", reply.EncryptedText)

	text, err := env.cipher.Decrypt(reply.EncryptedText)
	require.NoError(t, err)
	require.Equal(t, "first mention", text)

	// Authors missing from the expansion fall back to "unknown".
	other, err := env.replyRepo.GetByXPostID(env.ctx, "102")
	require.NoError(t, err)
	require.Equal(t, "unknown", other.XAuthorUsername)
}

func Test_pollDomain_usesLatestReplyAsWatermark(t *testing.T) {
	env := newPollTestEnv(t)
	env.seedConnectedAccount(t, "user-1", "alice")

	require.NoError(t, env.replyRepo.Upsert(env.ctx, &entity.Reply{
		Base:         entity.Base{ID: uuid.NewString()},
		XPostID:      "100",
		TargetUserID: "user-1",
	}))

	var gotSinceID string
	env.endpoint.SearchRepliesFunc = func(
		_ context.Context, _, _, sinceID string, _ int,
	) (xapi.SearchResult, error) {
		gotSinceID = sinceID
		return xapi.SearchResult{}, nil
	}

	resp, err := env.pollDomain.Poll(env.ctx, &model.PollRequest{})
	require.NoError(t, err)
	require.Equal(t, "100", gotSinceID)
	require.Equal(t, 0, resp.TotalNewReplies)
}

func Test_pollDomain_rateLimitOnOneAccountStillPollsTheOthers(t *testing.T) {
	env := newPollTestEnv(t)
	env.seedConnectedAccount(t, "user-1", "alice")
	env.seedConnectedAccount(t, "user-2", "bob")

	polledHandles := []string{}
	env.endpoint.SearchRepliesFunc = func(
		_ context.Context, _, handle, _ string, _ int,
	) (xapi.SearchResult, error) {
		polledHandles = append(polledHandles, handle)
		if handle == "bob" {
			return xapi.SearchResult{}, &xapi.RateLimitError{ResetAt: "1700000000"}
		}

		return xapi.SearchResult{
			Posts: []xapi.Post{{ID: "201", Text: "hello", AuthorID: "a-1"}},
		}, nil
	}

	resp, err := env.pollDomain.Poll(env.ctx, &model.PollRequest{})
	require.NoError(t, err)
	require.True(t, resp.RateLimited)
	require.Equal(t, "1700000000", resp.RateLimitResetTime)
	require.Len(t, polledHandles, 2)
	require.Equal(t, 1, resp.TotalNewReplies)

	require.Len(t, resp.AccountResults, 2)
	for _, result := range resp.AccountResults {
		if result.Username == "bob" {
			require.False(t, result.Success)
			require.Equal(t, "rate limited", result.Error)
		} else {
			require.True(t, result.Success)
		}
	}

	require.Equal(t, 429, resp.StatusCode())
}

func Test_pollDomain_tokenFailureIsAPerAccountSoftFailure(t *testing.T) {
	env := newPollTestEnv(t)
	env.seedConnectedAccount(t, "user-1", "alice")

	// Expired token with no refresh token: the account fails, the batch
	// does not.
	require.NoError(t, env.accountRepo.UpdateTokens(env.ctx, "user-1",
		"blob", sql.NullString{}, sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true}))

	resp, err := env.pollDomain.Poll(env.ctx, &model.PollRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AccountResults, 1)
	require.False(t, resp.AccountResults[0].Success)
	require.NotEmpty(t, resp.AccountResults[0].Error)
	require.Equal(t, 200, resp.StatusCode())
}

func Test_pollDomain_noConnectedAccounts(t *testing.T) {
	env := newPollTestEnv(t)

	_, err := env.pollDomain.Poll(env.ctx, &model.PollRequest{})
	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, errorx.NotFound, errx.Code)
}
