package domain

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/replydesk/backend/config"
	"github.com/replydesk/backend/internal/model"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/internal/testutil"
	"github.com/replydesk/backend/pkg/api/xapi"
	"github.com/replydesk/backend/pkg/crypto"
	"github.com/replydesk/backend/pkg/session"
	"github.com/replydesk/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authTestEnv struct {
	cfg         config.Configs
	db          *gorm.DB
	baseCtx     context.Context
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	cipher      *crypto.Cipher
	endpoint    *testutil.MockEndpoint
	authDomain  AuthDomain
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	cfg := testutil.NewConfigs()
	db := testutil.NewTestDB(t)

	ctx := testutil.NewContext(t, db)
	store := session.NewCookieStore(
		cfg.Auth.TransactionCookie,
		cfg.Auth.TransactionMaxAge,
		false,
		[]byte(cfg.Auth.TransactionSecret),
	)
	ctx = xcontext.WithSessionStore(ctx, store)

	cipher, err := crypto.NewCipher(cfg.Encryption.Secret)
	require.NoError(t, err)

	env := &authTestEnv{
		cfg:         cfg,
		db:          db,
		baseCtx:     ctx,
		accountRepo: repository.NewAccountRepository(),
		sessionRepo: repository.NewSessionRepository(),
		cipher:      cipher,
		endpoint:    &testutil.MockEndpoint{},
	}
	env.authDomain = NewAuthDomain(
		cfg.Auth, env.accountRepo, env.sessionRepo, env.endpoint, cipher)

	return env
}

func (env *authTestEnv) requestContext(target string, cookies []*httptest.ResponseRecorder) (context.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest("GET", target, nil)
	for _, rec := range cookies {
		for _, cookie := range rec.Result().Cookies() {
			req.AddCookie(cookie)
		}
	}

	rec := httptest.NewRecorder()
	ctx := xcontext.WithHTTPRequest(env.baseCtx, req)
	ctx = xcontext.WithHTTPWriter(ctx, rec)
	ctx = xcontext.WithRequestScope(ctx)
	return ctx, rec
}

func Test_authDomain_pkceHandshake(t *testing.T) {
	env := newAuthTestEnv(t)

	startCtx, startRec := env.requestContext("/auth/start", nil)
	startResp, err := env.authDomain.Start(startCtx, &model.AuthStartRequest{})
	require.NoError(t, err)

	authorizeURL, err := url.Parse(startResp.RedirectURL())
	require.NoError(t, err)
	query := authorizeURL.Query()
	state := query.Get("state")
	challenge := query.Get("code_challenge")
	require.NotEmpty(t, state)
	require.NotEmpty(t, challenge)
	require.Equal(t, "S256", query.Get("code_challenge_method"))
	require.Equal(t, env.cfg.Auth.CallbackURL, query.Get("redirect_uri"))

	env.endpoint.ExchangeAuthorizationCodeFunc = func(
		_ context.Context, code, codeVerifier, redirectURI string,
	) (xapi.TokenResponse, error) {
		require.Equal(t, "the-code", code)
		require.Equal(t, challenge, crypto.SHA256URL([]byte(codeVerifier)))
		require.Equal(t, env.cfg.Auth.CallbackURL, redirectURI)
		return xapi.TokenResponse{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			ExpiresIn:    7200,
		}, nil
	}
	env.endpoint.GetMeFunc = func(_ context.Context, accessToken string) (xapi.User, error) {
		require.Equal(t, "access-token", accessToken)
		return xapi.User{ID: "user-1", Username: "alice"}, nil
	}

	callbackCtx, _ := env.requestContext(
		"/auth/callback?code=the-code&state="+url.QueryEscape(state),
		[]*httptest.ResponseRecorder{startRec},
	)
	callbackResp, err := env.authDomain.Callback(callbackCtx, &model.AuthCallbackRequest{})
	require.NoError(t, err)
	require.Equal(t, env.cfg.Auth.AppURL+"/?connected=true", callbackResp.RedirectURL())
	require.NotEmpty(t, callbackResp.SessionToken)

	account, err := env.accountRepo.GetByXUserID(env.baseCtx, "user-1")
	require.NoError(t, err)
	require.True(t, account.IsConnected)
	require.Equal(t, "alice", account.XUsername)
	require.Equal(t, "user-1", account.OwnerID)
	require.True(t, account.TokenExpiresAt.Valid)

	// Tokens are stored as cipher blobs, never plaintext.
	require.NotEqual(t, "access-token", account.EncryptedAccessToken)
	accessToken, err := env.cipher.Decrypt(account.EncryptedAccessToken)
	require.NoError(t, err)
	require.Equal(t, "access-token", accessToken)

	session, err := env.sessionRepo.GetByToken(env.baseCtx, callbackResp.SessionToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", session.XUserID)
}

func Test_authDomain_Callback_stateMismatch(t *testing.T) {
	env := newAuthTestEnv(t)

	startCtx, startRec := env.requestContext("/auth/start", nil)
	_, err := env.authDomain.Start(startCtx, &model.AuthStartRequest{})
	require.NoError(t, err)

	callbackCtx, _ := env.requestContext(
		"/auth/callback?code=the-code&state=forged-state",
		[]*httptest.ResponseRecorder{startRec},
	)
	resp, err := env.authDomain.Callback(callbackCtx, &model.AuthCallbackRequest{})
	require.NoError(t, err)
	require.Equal(t, env.cfg.Auth.AppURL+"/?error=state_mismatch", resp.RedirectURL())
	require.Empty(t, resp.SessionToken)
}

func Test_authDomain_Callback_withoutTransactionCookie(t *testing.T) {
	env := newAuthTestEnv(t)

	callbackCtx, _ := env.requestContext("/auth/callback?code=the-code&state=some-state", nil)
	resp, err := env.authDomain.Callback(callbackCtx, &model.AuthCallbackRequest{})
	require.NoError(t, err)
	require.Equal(t, env.cfg.Auth.AppURL+"/?error=missing_state", resp.RedirectURL())
}

func Test_authDomain_Callback_denied(t *testing.T) {
	env := newAuthTestEnv(t)

	callbackCtx, _ := env.requestContext("/auth/callback?error=access_denied", nil)
	resp, err := env.authDomain.Callback(callbackCtx, &model.AuthCallbackRequest{})
	require.NoError(t, err)
	require.Equal(t, env.cfg.Auth.AppURL+"/?error=denied", resp.RedirectURL())
}

func Test_authDomain_Callback_missingParams(t *testing.T) {
	env := newAuthTestEnv(t)

	callbackCtx, _ := env.requestContext("/auth/callback?state=only-state", nil)
	resp, err := env.authDomain.Callback(callbackCtx, &model.AuthCallbackRequest{})
	require.NoError(t, err)
	require.Equal(t, env.cfg.Auth.AppURL+"/?error=missing_params", resp.RedirectURL())
}

func Test_stateMatches_toleratesOneDecodeLayer(t *testing.T) {
	require.True(t, stateMatches("abc+def", "abc+def"))
	require.True(t, stateMatches("abc def", "abc%20def"))
	require.False(t, stateMatches("abc", "abd"))
}
