package domain

import (
	"context"

	"github.com/replydesk/backend/internal/model"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/pkg/api/xapi"
	"github.com/replydesk/backend/pkg/crypto"
	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
)

const recentRepliesLimit = 50

// decryptFailedText stands in for reply text that no longer decrypts, for
// example after an encryption key change. One bad record must not hide the
// rest of the inbox.
const decryptFailedText = "[unable to decrypt]"

type ReplyDomain interface {
	GetReplies(ctx context.Context, req *model.GetRepliesRequest) (*model.GetRepliesResponse, error)
	SendReply(ctx context.Context, req *model.SendReplyRequest) (*model.SendReplyResponse, error)
	ClearReplies(ctx context.Context, req *model.ClearRepliesRequest) (*model.ClearRepliesResponse, error)
}

type replyDomain struct {
	accountRepo  repository.AccountRepository
	replyRepo    repository.ReplyRepository
	tokenManager TokenManager
	endpoint     xapi.IEndpoint
	cipher       *crypto.Cipher
}

func NewReplyDomain(
	accountRepo repository.AccountRepository,
	replyRepo repository.ReplyRepository,
	tokenManager TokenManager,
	endpoint xapi.IEndpoint,
	cipher *crypto.Cipher,
) ReplyDomain {
	return &replyDomain{
		accountRepo:  accountRepo,
		replyRepo:    replyRepo,
		tokenManager: tokenManager,
		endpoint:     endpoint,
		cipher:       cipher,
	}
}

func (d *replyDomain) GetReplies(
	ctx context.Context, _ *model.GetRepliesRequest,
) (*model.GetRepliesResponse, error) {
	targets, err := d.connectedTargets(ctx)
	if err != nil {
		return nil, err
	}

	resp := &model.GetRepliesResponse{Replies: []model.Reply{}}
	if len(targets) == 0 {
		return resp, nil
	}

	replies, err := d.replyRepo.GetRecentByTargets(ctx, targets, recentRepliesLimit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot list replies: %v", err)
		return nil, errorx.Unknown
	}

	for _, reply := range replies {
		text, err := d.cipher.Decrypt(reply.EncryptedText)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot decrypt reply %s", reply.XPostID)
			text = decryptFailedText
		}

		resp.Replies = append(resp.Replies, model.Reply{
			XPostID:         reply.XPostID,
			AuthorID:        reply.XAuthorID,
			AuthorUsername:  reply.XAuthorUsername,
			Text:            text,
			InReplyToPostID: reply.InReplyToPostID,
			ConversationID:  reply.ConversationID,
			Status:          reply.Status,
			TargetUsername:  reply.TargetUsername,
			CreatedAt:       reply.CreatedAt,
		})
	}

	return resp, nil
}

// SendReply posts an answer to a captured reply with the token of the
// account it was addressed to, then closes it locally.
func (d *replyDomain) SendReply(
	ctx context.Context, req *model.SendReplyRequest,
) (*model.SendReplyResponse, error) {
	if req.PostID == "" || req.Text == "" {
		return nil, errorx.New(errorx.BadRequest, "Missing post id or text")
	}

	reply, err := d.replyRepo.GetByXPostID(ctx, req.PostID)
	if err != nil {
		return nil, errorx.New(errorx.NotFound, "Reply not found")
	}

	account, err := d.accountRepo.GetByXUserID(ctx, reply.TargetUserID)
	if err != nil || account.OwnerID != xcontext.RequestUserID(ctx) {
		return nil, errorx.New(errorx.NotFound, "Reply not found")
	}

	accessToken, err := d.tokenManager.GetValidAccessToken(ctx, account.XUserID)
	if err != nil {
		return nil, err
	}

	post, err := d.endpoint.CreatePost(ctx, accessToken, req.Text, req.PostID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot create the post: %v", err)
		return nil, errorx.New(errorx.Unavailable, "Cannot publish the reply")
	}

	if err := d.replyRepo.Close(ctx, req.PostID); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot close reply %s: %v", req.PostID, err)
	}

	return &model.SendReplyResponse{Success: true, XPostID: post.ID}, nil
}

func (d *replyDomain) ClearReplies(
	ctx context.Context, _ *model.ClearRepliesRequest,
) (*model.ClearRepliesResponse, error) {
	targets, err := d.connectedTargets(ctx)
	if err != nil {
		return nil, err
	}

	var deleted int64
	for _, target := range targets {
		count, err := d.replyRepo.DeleteByTarget(ctx, target)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot clear replies of %s: %v", target, err)
			return nil, errorx.New(errorx.StorageWriteFailed, "Cannot clear the stored replies")
		}

		deleted += count
	}

	return &model.ClearRepliesResponse{Success: true, Deleted: deleted}, nil
}

func (d *replyDomain) connectedTargets(ctx context.Context) ([]string, error) {
	accounts, err := d.accountRepo.GetConnectedByOwner(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot list accounts: %v", err)
		return nil, errorx.Unknown
	}

	targets := make([]string, 0, len(accounts))
	for _, account := range accounts {
		targets = append(targets, account.XUserID)
	}

	return targets, nil
}
