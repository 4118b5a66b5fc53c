package testutil

import (
	"context"
	"errors"

	"github.com/replydesk/backend/pkg/api/xapi"
)

// MockEndpoint implements xapi.IEndpoint with overridable funcs. Calls
// without an override fail, so a test only wires what it expects.
type MockEndpoint struct {
	ExchangeAuthorizationCodeFunc func(ctx context.Context, code, codeVerifier, redirectURI string) (xapi.TokenResponse, error)
	RefreshTokenFunc              func(ctx context.Context, refreshToken string) (xapi.TokenResponse, error)
	RevokeTokenFunc               func(ctx context.Context, token string) error
	GetMeFunc                     func(ctx context.Context, accessToken string) (xapi.User, error)
	SearchRepliesFunc             func(ctx context.Context, accessToken, handle, sinceID string, maxResults int) (xapi.SearchResult, error)
	CreatePostFunc                func(ctx context.Context, accessToken, text, inReplyToPostID string) (xapi.Post, error)
	RequestTokenFunc              func(ctx context.Context, callbackURL string) (string, string, error)
	AccessTokenFunc               func(ctx context.Context, token, tokenSecret, verifier string) (xapi.OAuth1AccessToken, error)
}

var errNotMocked = errors.New("not mocked")

func (m *MockEndpoint) ExchangeAuthorizationCode(
	ctx context.Context, code, codeVerifier, redirectURI string,
) (xapi.TokenResponse, error) {
	if m.ExchangeAuthorizationCodeFunc == nil {
		return xapi.TokenResponse{}, errNotMocked
	}

	return m.ExchangeAuthorizationCodeFunc(ctx, code, codeVerifier, redirectURI)
}

func (m *MockEndpoint) RefreshToken(ctx context.Context, refreshToken string) (xapi.TokenResponse, error) {
	if m.RefreshTokenFunc == nil {
		return xapi.TokenResponse{}, errNotMocked
	}

	return m.RefreshTokenFunc(ctx, refreshToken)
}

func (m *MockEndpoint) RevokeToken(ctx context.Context, token string) error {
	if m.RevokeTokenFunc == nil {
		return errNotMocked
	}

	return m.RevokeTokenFunc(ctx, token)
}

func (m *MockEndpoint) GetMe(ctx context.Context, accessToken string) (xapi.User, error) {
	if m.GetMeFunc == nil {
		return xapi.User{}, errNotMocked
	}

	return m.GetMeFunc(ctx, accessToken)
}

func (m *MockEndpoint) SearchReplies(
	ctx context.Context, accessToken, handle, sinceID string, maxResults int,
) (xapi.SearchResult, error) {
	if m.SearchRepliesFunc == nil {
		return xapi.SearchResult{}, errNotMocked
	}

	return m.SearchRepliesFunc(ctx, accessToken, handle, sinceID, maxResults)
}

func (m *MockEndpoint) CreatePost(
	ctx context.Context, accessToken, text, inReplyToPostID string,
) (xapi.Post, error) {
	if m.CreatePostFunc == nil {
		return xapi.Post{}, errNotMocked
	}

	return m.CreatePostFunc(ctx, accessToken, text, inReplyToPostID)
}

func (m *MockEndpoint) RequestToken(ctx context.Context, callbackURL string) (string, string, error) {
	if m.RequestTokenFunc == nil {
		return "", "", errNotMocked
	}

	return m.RequestTokenFunc(ctx, callbackURL)
}

func (m *MockEndpoint) AccessToken(
	ctx context.Context, token, tokenSecret, verifier string,
) (xapi.OAuth1AccessToken, error) {
	if m.AccessTokenFunc == nil {
		return xapi.OAuth1AccessToken{}, errNotMocked
	}

	return m.AccessTokenFunc(ctx, token, tokenSecret, verifier)
}

func (m *MockEndpoint) AuthenticateURL(token string) string {
	return "https://provider.example/oauth/authenticate?oauth_token=" + token
}
