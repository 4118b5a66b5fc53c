package domain

import (
	"context"
	"fmt"

	"github.com/replydesk/backend/internal/model"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/pkg/api/xapi"
	"github.com/replydesk/backend/pkg/crypto"
	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
)

type AccountDomain interface {
	GetAccounts(ctx context.Context, req *model.GetAccountsRequest) (*model.GetAccountsResponse, error)
	Disconnect(ctx context.Context, req *model.DisconnectRequest) (*model.DisconnectResponse, error)
}

type accountDomain struct {
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	replyRepo   repository.ReplyRepository
	endpoint    xapi.IEndpoint
	cipher      *crypto.Cipher
}

func NewAccountDomain(
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	replyRepo repository.ReplyRepository,
	endpoint xapi.IEndpoint,
	cipher *crypto.Cipher,
) AccountDomain {
	return &accountDomain{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		replyRepo:   replyRepo,
		endpoint:    endpoint,
		cipher:      cipher,
	}
}

func (d *accountDomain) GetAccounts(
	ctx context.Context, _ *model.GetAccountsRequest,
) (*model.GetAccountsResponse, error) {
	accounts, err := d.accountRepo.GetConnectedByOwner(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot list accounts: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.GetAccountsResponse{Accounts: []model.Account{}}
	for _, account := range accounts {
		resp.Accounts = append(resp.Accounts, model.Account{
			ID:          account.ID,
			XUserID:     account.XUserID,
			XUsername:   account.XUsername,
			IsConnected: account.IsConnected,
			ConnectedAt: account.ConnectedAt,
		})
	}

	return resp, nil
}

// Disconnect tears an account down in order: captured replies, the remote
// token grant, the account row, and finally the owner's sessions when no
// connected account remains. Only the account delete itself is fatal; the
// other steps report their outcome and move on.
func (d *accountDomain) Disconnect(
	ctx context.Context, req *model.DisconnectRequest,
) (*model.DisconnectResponse, error) {
	if req.AccountID == "" {
		return nil, errorx.New(errorx.BadRequest, "Missing account id")
	}

	userID := xcontext.RequestUserID(ctx)
	account, err := d.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil || account.OwnerID != userID {
		return nil, errorx.New(errorx.NotFound, "Account not found")
	}

	resp := &model.DisconnectResponse{}

	cleaned, err := d.replyRepo.DeleteByTarget(ctx, account.XUserID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot clean up replies of @%s: %v", account.XUsername, err)
		resp.Steps = append(resp.Steps, model.TeardownStep{Name: "clear_replies", Detail: "storage error"})
	} else {
		resp.CleanedReplies = cleaned
		resp.Steps = append(resp.Steps, model.TeardownStep{
			Name:    "clear_replies",
			Success: true,
			Detail:  fmt.Sprintf("%d replies removed", cleaned),
		})
	}

	resp.Steps = append(resp.Steps, d.revokeToken(ctx, account.EncryptedAccessToken))

	if err := d.accountRepo.Delete(ctx, account.ID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot delete account %s: %v", account.ID, err)
		return nil, errorx.New(errorx.StorageWriteFailed, "Cannot remove the account")
	}
	resp.Steps = append(resp.Steps, model.TeardownStep{Name: "remove_account", Success: true})

	remaining, err := d.accountRepo.CountConnectedByOwner(ctx, account.OwnerID)
	if err == nil && remaining == 0 {
		if err := d.sessionRepo.DeleteByXUserID(ctx, account.OwnerID); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot delete sessions of %s: %v", account.OwnerID, err)
		} else {
			resp.Steps = append(resp.Steps, model.TeardownStep{Name: "end_sessions", Success: true})
		}
	}

	resp.Success = true
	resp.Message = fmt.Sprintf("Disconnected @%s", account.XUsername)
	return resp, nil
}

// revokeToken is best effort: the provider invalidates grants of deleted
// apps on its own schedule, so a failed revoke only degrades hygiene.
func (d *accountDomain) revokeToken(ctx context.Context, encryptedAccessToken string) model.TeardownStep {
	accessToken, err := d.cipher.Decrypt(encryptedAccessToken)
	if err != nil {
		return model.TeardownStep{Name: "revoke_token", Detail: "cannot decrypt the stored token"}
	}

	if err := d.endpoint.RevokeToken(ctx, accessToken); err != nil {
		xcontext.Logger(ctx).Warnf("Token revocation failed: %v", err)
		return model.TeardownStep{Name: "revoke_token", Detail: "provider rejected the revocation"}
	}

	return model.TeardownStep{Name: "revoke_token", Success: true}
}
