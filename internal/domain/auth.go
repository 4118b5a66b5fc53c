package domain

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/replydesk/backend/config"
	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/internal/model"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/pkg/api/xapi"
	"github.com/replydesk/backend/pkg/crypto"
	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
)

// oauthFlow is one handshake variant. Initiate returns the provider URL to
// redirect the browser to and stores whatever the callback will need in the
// transaction cookie. CompleteCallback consumes the provider redirect and
// returns a fully populated account, tokens already encrypted.
type oauthFlow interface {
	Name() string
	Initiate(ctx context.Context) (string, error)
	CompleteCallback(ctx context.Context) (*entity.Account, error)
}

type AuthDomain interface {
	Start(ctx context.Context, req *model.AuthStartRequest) (*model.AuthStartResponse, error)
	Callback(ctx context.Context, req *model.AuthCallbackRequest) (*model.AuthCallbackResponse, error)
	Logout(ctx context.Context, req *model.LogoutRequest) (*model.LogoutResponse, error)
}

type authDomain struct {
	flow        oauthFlow
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
}

func NewAuthDomain(
	cfg config.AuthConfigs,
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	endpoint xapi.IEndpoint,
	cipher *crypto.Cipher,
) AuthDomain {
	var flow oauthFlow
	switch cfg.Flow {
	case config.OAuth1Flow:
		flow = &oauth1Flow{endpoint: endpoint, cipher: cipher}
	default:
		flow = &pkceFlow{endpoint: endpoint, cipher: cipher}
	}

	return &authDomain{
		flow:        flow,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
	}
}

func (d *authDomain) Start(
	ctx context.Context, _ *model.AuthStartRequest,
) (*model.AuthStartResponse, error) {
	authorizeURL, err := d.flow.Initiate(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot initiate the %s flow: %v", d.flow.Name(), err)
		return nil, errorx.New(errorx.Unavailable, "Cannot start the authorization flow")
	}

	return &model.AuthStartResponse{URL: authorizeURL}, nil
}

// Callback never fails with a JSON error. Whatever happens the browser is
// sent back to the app, carrying an error code in the query on failure.
func (d *authDomain) Callback(
	ctx context.Context, _ *model.AuthCallbackRequest,
) (*model.AuthCallbackResponse, error) {
	appURL := xcontext.Configs(ctx).Auth.AppURL

	account, err := d.flow.CompleteCallback(ctx)
	if err != nil {
		xcontext.Logger(ctx).Warnf("The %s callback failed: %v", d.flow.Name(), err)
		return &model.AuthCallbackResponse{
			RedirectTo: appURL + "/?error=" + callbackErrorCode(err),
		}, nil
	}

	resp := &model.AuthCallbackResponse{RedirectTo: appURL + "/?connected=true"}

	// When a logged-in user links another account, the new account joins
	// the caller's roster and the existing session is kept.
	account.OwnerID = xcontext.RequestUserID(ctx)
	if account.OwnerID == "" {
		account.OwnerID = account.XUserID

		token, err := crypto.GenerateRandomString()
		if err != nil {
			return &model.AuthCallbackResponse{RedirectTo: appURL + "/?error=server_error"}, nil
		}

		expiresAt := time.Now().Add(xcontext.Configs(ctx).Session.Expiration.Duration)
		err = d.sessionRepo.Create(ctx, &entity.Session{
			Base:      entity.Base{ID: uuid.NewString()},
			Token:     token,
			XUserID:   account.XUserID,
			XUsername: account.XUsername,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot create the session: %v", err)
			return &model.AuthCallbackResponse{RedirectTo: appURL + "/?error=server_error"}, nil
		}

		resp.SessionToken = token
		resp.SessionExpiresAt = expiresAt
	}

	if err := d.accountRepo.Upsert(ctx, account); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot store the account: %v", err)
		return &model.AuthCallbackResponse{RedirectTo: appURL + "/?error=server_error"}, nil
	}

	return resp, nil
}

// Logout always succeeds: an expired or missing session still clears the
// cookie on the client.
func (d *authDomain) Logout(
	ctx context.Context, _ *model.LogoutRequest,
) (*model.LogoutResponse, error) {
	req := xcontext.HTTPRequest(ctx)
	if cookie, err := req.Cookie(xcontext.Configs(ctx).Session.TokenName); err == nil && cookie.Value != "" {
		if err := d.sessionRepo.Delete(ctx, cookie.Value); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot delete the session: %v", err)
		}
	}

	return &model.LogoutResponse{Success: true, Message: "Logged out"}, nil
}

func callbackErrorCode(err error) string {
	var errx errorx.Error
	if !errors.As(err, &errx) {
		return "server_error"
	}

	switch errx.Code {
	case errorx.OAuthDenied:
		return "denied"
	case errorx.OAuthMalformedCallback:
		return "missing_params"
	case errorx.OAuthExpiredOrMissingState:
		return "missing_state"
	case errorx.OAuthStateMismatch:
		return "state_mismatch"
	case errorx.OAuthTokenExchangeFailed:
		return "exchange_failed"
	case errorx.OAuthIdentityFetchFailed:
		return "identity_failed"
	default:
		return "server_error"
	}
}

type pkceFlow struct {
	endpoint xapi.IEndpoint
	cipher   *crypto.Cipher
}

func (f *pkceFlow) Name() string {
	return config.OAuth2Flow
}

func (f *pkceFlow) Initiate(ctx context.Context) (string, error) {
	state, err := crypto.RandomURLSafe(32)
	if err != nil {
		return "", err
	}

	verifier, err := crypto.RandomURLSafe(64)
	if err != nil {
		return "", err
	}

	store := xcontext.SessionStore(ctx)
	transaction, _ := store.Get(xcontext.HTTPRequest(ctx))
	transaction.Values["state"] = state
	transaction.Values["code_verifier"] = verifier
	if err := store.Save(xcontext.HTTPRequest(ctx), xcontext.HTTPWriter(ctx), transaction); err != nil {
		return "", err
	}

	cfg := xcontext.Configs(ctx).Auth
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("client_id", cfg.OAuth2.ClientID)
	query.Set("redirect_uri", cfg.CallbackURL)
	query.Set("scope", strings.Join(cfg.OAuth2.Scopes, " "))
	query.Set("state", state)
	query.Set("code_challenge", crypto.SHA256URL([]byte(verifier)))
	query.Set("code_challenge_method", "S256")

	return cfg.OAuth2.AuthorizeURL + "?" + query.Encode(), nil
}

func (f *pkceFlow) CompleteCallback(ctx context.Context) (*entity.Account, error) {
	req := xcontext.HTTPRequest(ctx)
	query := req.URL.Query()

	// The transaction is single-use: clear the cookie no matter how the
	// callback ends.
	defer clearTransaction(ctx)

	if errParam := query.Get("error"); errParam != "" {
		return nil, errorx.New(errorx.OAuthDenied, "Authorization was denied: %s", errParam)
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		return nil, errorx.New(errorx.OAuthMalformedCallback, "Missing code or state parameter")
	}

	transaction, err := xcontext.SessionStore(ctx).Get(req)
	if err != nil {
		return nil, errorx.New(errorx.OAuthExpiredOrMissingState, "The authorization attempt expired")
	}

	expectedState, ok := transaction.Values["state"].(string)
	if !ok || expectedState == "" {
		return nil, errorx.New(errorx.OAuthExpiredOrMissingState, "The authorization attempt expired")
	}

	if !stateMatches(expectedState, state) {
		return nil, errorx.New(errorx.OAuthStateMismatch, "The state parameter does not match")
	}

	verifier, _ := transaction.Values["code_verifier"].(string)

	cfg := xcontext.Configs(ctx).Auth
	tokens, err := f.endpoint.ExchangeAuthorizationCode(ctx, code, verifier, cfg.CallbackURL)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Code exchange failed: %v", err)
		return nil, errorx.New(errorx.OAuthTokenExchangeFailed, "Cannot exchange the authorization code")
	}

	me, err := f.endpoint.GetMe(ctx, tokens.AccessToken)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Identity fetch failed: %v", err)
		return nil, errorx.New(errorx.OAuthIdentityFetchFailed, "Cannot fetch the account identity")
	}

	encryptedAccess, err := f.cipher.Encrypt(tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	account := &entity.Account{
		Base:                 entity.Base{ID: uuid.NewString()},
		XUserID:              me.ID,
		XUsername:            me.Username,
		IsConnected:          true,
		ConnectedAt:          time.Now(),
		EncryptedAccessToken: encryptedAccess,
	}

	if tokens.RefreshToken != "" {
		blob, err := f.cipher.Encrypt(tokens.RefreshToken)
		if err != nil {
			return nil, err
		}

		account.EncryptedRefreshToken = sql.NullString{String: blob, Valid: true}
	}

	if tokens.ExpiresIn > 0 {
		account.TokenExpiresAt = sql.NullTime{
			Time:  time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second),
			Valid: true,
		}
	}

	return account, nil
}

// stateMatches tolerates one extra URL-decode layer: some user agents hand
// the state back percent-decoded.
func stateMatches(expected, got string) bool {
	if got == expected {
		return true
	}

	if decoded, err := url.QueryUnescape(got); err == nil && decoded == expected {
		return true
	}

	return false
}

type oauth1Flow struct {
	endpoint xapi.IEndpoint
	cipher   *crypto.Cipher
}

func (f *oauth1Flow) Name() string {
	return config.OAuth1Flow
}

func (f *oauth1Flow) Initiate(ctx context.Context) (string, error) {
	cfg := xcontext.Configs(ctx).Auth
	token, tokenSecret, err := f.endpoint.RequestToken(ctx, cfg.CallbackURL)
	if err != nil {
		return "", err
	}

	store := xcontext.SessionStore(ctx)
	transaction, _ := store.Get(xcontext.HTTPRequest(ctx))
	transaction.Values["request_token"] = token
	transaction.Values["request_token_secret"] = tokenSecret
	if err := store.Save(xcontext.HTTPRequest(ctx), xcontext.HTTPWriter(ctx), transaction); err != nil {
		return "", err
	}

	return f.endpoint.AuthenticateURL(token), nil
}

func (f *oauth1Flow) CompleteCallback(ctx context.Context) (*entity.Account, error) {
	req := xcontext.HTTPRequest(ctx)
	query := req.URL.Query()

	defer clearTransaction(ctx)

	if query.Get("denied") != "" {
		return nil, errorx.New(errorx.OAuthDenied, "Authorization was denied")
	}

	token := query.Get("oauth_token")
	verifier := query.Get("oauth_verifier")
	if token == "" || verifier == "" {
		return nil, errorx.New(errorx.OAuthMalformedCallback, "Missing oauth_token or oauth_verifier")
	}

	transaction, err := xcontext.SessionStore(ctx).Get(req)
	if err != nil {
		return nil, errorx.New(errorx.OAuthExpiredOrMissingState, "The authorization attempt expired")
	}

	requestToken, ok := transaction.Values["request_token"].(string)
	if !ok || requestToken == "" {
		return nil, errorx.New(errorx.OAuthExpiredOrMissingState, "The authorization attempt expired")
	}

	if token != requestToken {
		return nil, errorx.New(errorx.OAuthStateMismatch, "The returned token does not match")
	}

	tokenSecret, _ := transaction.Values["request_token_secret"].(string)

	access, err := f.endpoint.AccessToken(ctx, token, tokenSecret, verifier)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Access token request failed: %v", err)
		return nil, errorx.New(errorx.OAuthTokenExchangeFailed, "Cannot obtain an access token")
	}

	encryptedAccess, err := f.cipher.Encrypt(access.Token)
	if err != nil {
		return nil, err
	}

	encryptedSecret, err := f.cipher.Encrypt(access.TokenSecret)
	if err != nil {
		return nil, err
	}

	// OAuth 1.0a tokens have no expiry and no refresh token.
	return &entity.Account{
		Base:                 entity.Base{ID: uuid.NewString()},
		XUserID:              access.UserID,
		XUsername:            access.ScreenName,
		IsConnected:          true,
		ConnectedAt:          time.Now(),
		EncryptedAccessToken: encryptedAccess,
		EncryptedTokenSecret: sql.NullString{String: encryptedSecret, Valid: true},
	}, nil
}

func clearTransaction(ctx context.Context) {
	store := xcontext.SessionStore(ctx)
	req := xcontext.HTTPRequest(ctx)
	transaction, _ := store.Get(req)
	if err := store.Delete(req, xcontext.HTTPWriter(ctx), transaction); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot clear the transaction cookie: %v", err)
	}
}
