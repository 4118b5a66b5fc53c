package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/internal/model"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/pkg/api/xapi"
	"github.com/replydesk/backend/pkg/crypto"
	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
)

type PollDomain interface {
	Poll(ctx context.Context, req *model.PollRequest) (*model.PollResponse, error)
	PollAll(ctx context.Context) (*model.PollResponse, error)
}

type pollDomain struct {
	accountRepo  repository.AccountRepository
	replyRepo    repository.ReplyRepository
	tokenManager TokenManager
	endpoint     xapi.IEndpoint
	cipher       *crypto.Cipher
}

func NewPollDomain(
	accountRepo repository.AccountRepository,
	replyRepo repository.ReplyRepository,
	tokenManager TokenManager,
	endpoint xapi.IEndpoint,
	cipher *crypto.Cipher,
) PollDomain {
	return &pollDomain{
		accountRepo:  accountRepo,
		replyRepo:    replyRepo,
		tokenManager: tokenManager,
		endpoint:     endpoint,
		cipher:       cipher,
	}
}

// Poll walks every connected account in turn. A failure on one account,
// including a rate limit, never stops the remaining accounts from being
// polled; it only marks that account's result and, for rate limits, the
// whole batch.
func (d *pollDomain) Poll(ctx context.Context, _ *model.PollRequest) (*model.PollResponse, error) {
	accounts, err := d.accountRepo.GetConnectedByOwner(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot list accounts: %v", err)
		return nil, errorx.Unknown
	}

	if len(accounts) == 0 {
		return nil, errorx.New(errorx.NotFound, "No connected accounts")
	}

	return d.pollAccounts(ctx, accounts), nil
}

// PollAll is the background variant: every connected account of every owner,
// with an empty batch being a no-op rather than an error.
func (d *pollDomain) PollAll(ctx context.Context) (*model.PollResponse, error) {
	accounts, err := d.accountRepo.GetAllConnected(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot list accounts: %v", err)
		return nil, errorx.Unknown
	}

	return d.pollAccounts(ctx, accounts), nil
}

func (d *pollDomain) pollAccounts(ctx context.Context, accounts []entity.Account) *model.PollResponse {
	resp := &model.PollResponse{Success: true, AccountResults: []model.AccountPollResult{}}
	for _, account := range accounts {
		result := model.AccountPollResult{Username: account.XUsername}

		newReplies, err := d.pollAccount(ctx, &account)
		switch {
		case err == nil:
			result.Success = true
			result.NewReplies = newReplies
			resp.TotalNewReplies += newReplies
		default:
			var rateLimit *xapi.RateLimitError
			if errors.As(err, &rateLimit) {
				resp.RateLimited = true
				if rateLimit.ResetAt != "" {
					resp.RateLimitResetTime = rateLimit.ResetAt
				}
				result.Error = "rate limited"
			} else {
				xcontext.Logger(ctx).Warnf("Poll failed for @%s: %v", account.XUsername, err)
				result.Error = err.Error()
			}
		}

		resp.AccountResults = append(resp.AccountResults, result)
	}

	resp.Message = fmt.Sprintf("Found %d new replies across %d accounts",
		resp.TotalNewReplies, len(accounts))
	return resp
}

func (d *pollDomain) pollAccount(ctx context.Context, account *entity.Account) (int, error) {
	accessToken, err := d.tokenManager.GetValidAccessToken(ctx, account.XUserID)
	if err != nil {
		return 0, err
	}

	// The newest stored reply is the watermark: the search only returns
	// posts newer than it.
	sinceID := ""
	if latest, err := d.replyRepo.Latest(ctx, account.XUserID); err == nil {
		sinceID = latest.XPostID
	}

	found, err := d.endpoint.SearchReplies(
		ctx, accessToken, account.XUsername, sinceID, xcontext.Configs(ctx).Poll.MaxResults)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, post := range found.Posts {
		encryptedText, err := d.cipher.Encrypt(post.Text)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot encrypt post %s: %v", post.ID, err)
			continue
		}

		reply := &entity.Reply{
			Base:            entity.Base{ID: uuid.NewString()},
			XPostID:         post.ID,
			XAuthorID:       post.AuthorID,
			XAuthorUsername: found.AuthorUsername(post.AuthorID),
			EncryptedText:   encryptedText,
			ConversationID:  post.ConversationID,
			Status:          entity.ReplyStatusOpen,
			TargetUserID:    account.XUserID,
			TargetUsername:  account.XUsername,
			Metadata: entity.Map{
				"target_username": account.XUsername,
				"conversation_id": post.ConversationID,
				"post_created_at": post.CreatedAt,
			},
		}

		if err := d.replyRepo.Upsert(ctx, reply); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot store reply %s: %v", post.ID, err)
			continue
		}

		stored++
	}

	return stored, nil
}
