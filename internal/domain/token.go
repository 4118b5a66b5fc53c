package domain

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync"
	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/pkg/api/xapi"
	"github.com/replydesk/backend/pkg/crypto"
	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
)

// refreshBuffer keeps a safety margin before the recorded expiry: a token
// within this window is treated as already expired.
const refreshBuffer = 5 * time.Minute

type TokenManager interface {
	GetValidAccessToken(ctx context.Context, xUserID string) (string, error)
}

type tokenManager struct {
	accountRepo repository.AccountRepository
	endpoint    xapi.IEndpoint
	cipher      *crypto.Cipher

	// refreshMutexes serializes refreshes per account, so concurrent polls
	// never spend the same refresh token twice.
	refreshMutexes *xsync.MapOf[string, *sync.Mutex]
}

func NewTokenManager(
	accountRepo repository.AccountRepository,
	endpoint xapi.IEndpoint,
	cipher *crypto.Cipher,
) TokenManager {
	return &tokenManager{
		accountRepo:    accountRepo,
		endpoint:       endpoint,
		cipher:         cipher,
		refreshMutexes: xsync.NewMapOf[*sync.Mutex](),
	}
}

func (m *tokenManager) GetValidAccessToken(ctx context.Context, xUserID string) (string, error) {
	mutex, _ := m.refreshMutexes.LoadOrStore(xUserID, &sync.Mutex{})
	mutex.Lock()
	defer mutex.Unlock()

	account, err := m.accountRepo.GetByXUserID(ctx, xUserID)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot load account %s: %v", xUserID, err)
		return "", errorx.New(errorx.NotFound, "Account is not connected")
	}

	// A null expiry means the token never expires (OAuth 1.0a).
	if !account.TokenExpiresAt.Valid {
		return m.decryptAccessToken(account)
	}

	if time.Until(account.TokenExpiresAt.Time) > refreshBuffer {
		return m.decryptAccessToken(account)
	}

	return m.refresh(ctx, account)
}

func (m *tokenManager) decryptAccessToken(account *entity.Account) (string, error) {
	accessToken, err := m.cipher.Decrypt(account.EncryptedAccessToken)
	if err != nil {
		return "", errorx.New(errorx.DecryptionFailed,
			"Cannot decrypt the stored credentials of @%s", account.XUsername)
	}

	return accessToken, nil
}

// refresh spends the stored refresh token once and persists whatever the
// provider hands back. A failed refresh is reported and never retried here;
// the caller decides when to try again.
func (m *tokenManager) refresh(ctx context.Context, account *entity.Account) (string, error) {
	if !account.EncryptedRefreshToken.Valid {
		return "", errorx.New(errorx.TokenRefreshFailed,
			"The token of @%s expired and there is no refresh token", account.XUsername)
	}

	refreshToken, err := m.cipher.Decrypt(account.EncryptedRefreshToken.String)
	if err != nil {
		return "", errorx.New(errorx.DecryptionFailed,
			"Cannot decrypt the stored credentials of @%s", account.XUsername)
	}

	tokens, err := m.endpoint.RefreshToken(ctx, refreshToken)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Token refresh failed for @%s: %v", account.XUsername, err)
		return "", errorx.New(errorx.TokenRefreshFailed,
			"Cannot refresh the token of @%s", account.XUsername)
	}

	encryptedAccess, err := m.cipher.Encrypt(tokens.AccessToken)
	if err != nil {
		return "", err
	}

	encryptedRefresh := account.EncryptedRefreshToken
	if tokens.RefreshToken != "" {
		blob, err := m.cipher.Encrypt(tokens.RefreshToken)
		if err != nil {
			return "", err
		}

		encryptedRefresh = sql.NullString{String: blob, Valid: true}
	} else if xcontext.Configs(ctx).Auth.OAuth2.RotateRefreshToken {
		encryptedRefresh = sql.NullString{}
	}

	expiresAt := sql.NullTime{
		Time:  time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
		Valid: true,
	}

	err = m.accountRepo.UpdateTokens(ctx, account.XUserID, encryptedAccess, encryptedRefresh, expiresAt)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot persist refreshed tokens of @%s: %v", account.XUsername, err)
		return "", errorx.New(errorx.StorageWriteFailed, "Cannot persist the refreshed tokens")
	}

	return tokens.AccessToken, nil
}
