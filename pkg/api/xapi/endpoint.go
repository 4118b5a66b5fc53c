package xapi

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/replydesk/backend/config"
	"github.com/replydesk/backend/pkg/api"
	"github.com/replydesk/backend/pkg/xcontext"
)

const rateLimitResetHeader = "x-rate-limit-reset"

type IEndpoint interface {
	ExchangeAuthorizationCode(ctx context.Context, code, codeVerifier, redirectURI string) (TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error)
	RevokeToken(ctx context.Context, token string) error
	GetMe(ctx context.Context, accessToken string) (User, error)
	SearchReplies(ctx context.Context, accessToken, handle, sinceID string, maxResults int) (SearchResult, error)
	CreatePost(ctx context.Context, accessToken, text, inReplyToPostID string) (Post, error)
	RequestToken(ctx context.Context, callbackURL string) (token, tokenSecret string, err error)
	AccessToken(ctx context.Context, token, tokenSecret, verifier string) (OAuth1AccessToken, error)
	AuthenticateURL(token string) string
}

type Endpoint struct {
	apiGenerator api.Generator
	// absGenerator issues requests against absolute URLs; the OAuth1
	// endpoints are configured as full URLs rather than API paths.
	absGenerator api.Generator

	clientID     string
	clientSecret string
	oauth1       config.OAuth1Configs
	signer       *OAuth1Signer
}

func New(cfg config.XApiConfigs, auth config.AuthConfigs) *Endpoint {
	return &Endpoint{
		apiGenerator: api.NewGenerator(cfg.Endpoint),
		absGenerator: api.NewGenerator(""),
		clientID:     auth.OAuth2.ClientID,
		clientSecret: auth.OAuth2.ClientSecret,
		oauth1:       auth.OAuth1,
		signer: &OAuth1Signer{
			ConsumerKey:    auth.OAuth1.ConsumerKey,
			ConsumerSecret: auth.OAuth1.ConsumerSecret,
		},
	}
}

func (e *Endpoint) ExchangeAuthorizationCode(
	ctx context.Context, code, codeVerifier, redirectURI string,
) (TokenResponse, error) {
	return e.token(ctx, api.Form{
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  redirectURI,
		"code_verifier": codeVerifier,
		"client_id":     e.clientID,
	})
}

func (e *Endpoint) RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error) {
	return e.token(ctx, api.Form{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"client_id":     e.clientID,
	})
}

func (e *Endpoint) token(ctx context.Context, form api.Form) (TokenResponse, error) {
	resp, err := e.apiGenerator.New("/2/oauth2/token").
		Body(form).
		POST(ctx, api.BasicAuth(e.clientID, e.clientSecret))
	if err != nil {
		return TokenResponse{}, err
	}

	if resp.Code >= 300 {
		xcontext.Logger(ctx).Errorf("Token request failed with %d: %s", resp.Code, resp.RawBody)
		return TokenResponse{}, &StatusError{Code: resp.Code}
	}

	tokens := TokenResponse{}
	if err := mapstructure.Decode(map[string]any(resp.Body), &tokens); err != nil {
		return TokenResponse{}, err
	}

	if tokens.AccessToken == "" {
		return TokenResponse{}, errors.New("no access token in response")
	}

	return tokens, nil
}

func (e *Endpoint) RevokeToken(ctx context.Context, token string) error {
	resp, err := e.apiGenerator.New("/2/oauth2/revoke").
		Body(api.Form{"token": token, "client_id": e.clientID}).
		POST(ctx, api.BasicAuth(e.clientID, e.clientSecret))
	if err != nil {
		return err
	}

	if resp.Code >= 300 {
		return &StatusError{Code: resp.Code}
	}

	return nil
}

func (e *Endpoint) GetMe(ctx context.Context, accessToken string) (User, error) {
	resp, err := e.apiGenerator.New("/2/users/me").
		GET(ctx, api.OAuth2("Bearer", accessToken))
	if err != nil {
		return User{}, err
	}

	if resp.Code >= 300 {
		xcontext.Logger(ctx).Errorf("Cannot get identity, status %d: %s", resp.Code, resp.RawBody)
		return User{}, &StatusError{Code: resp.Code}
	}

	data, err := resp.Body.GetJSON("data")
	if err != nil {
		return User{}, err
	}

	user := User{}
	if err := mapstructure.Decode(map[string]any(data), &user); err != nil {
		return User{}, err
	}

	if user.ID == "" || user.Username == "" {
		return User{}, errors.New("cannot get user info")
	}

	return user, nil
}

// SearchReplies queries the recent-search endpoint for posts addressed to
// the handle. A non-empty sinceID restricts results to newer posts
// (exclusive lower bound).
func (e *Endpoint) SearchReplies(
	ctx context.Context, accessToken, handle, sinceID string, maxResults int,
) (SearchResult, error) {
	query := api.Parameter{
		"query":        "to:" + handle,
		"max_results":  strconv.Itoa(maxResults),
		"tweet.fields": "created_at,author_id,conversation_id,in_reply_to_user_id",
		"user.fields":  "username",
		"expansions":   "author_id",
	}
	if sinceID != "" {
		query["since_id"] = sinceID
	}

	resp, err := e.apiGenerator.New("/2/tweets/search/recent").
		Query(query).
		GET(ctx, api.OAuth2("Bearer", accessToken))
	if err != nil {
		return SearchResult{}, err
	}

	if resp.Code == 429 {
		return SearchResult{}, &RateLimitError{ResetAt: resp.Header.Get(rateLimitResetHeader)}
	}

	if resp.Code >= 300 {
		xcontext.Logger(ctx).Errorf("Search failed with %d: %s", resp.Code, resp.RawBody)
		return SearchResult{}, &StatusError{Code: resp.Code}
	}

	return decodeSearchResult(resp.Body)
}

func decodeSearchResult(body api.JSON) (SearchResult, error) {
	result := SearchResult{}

	posts, err := body.GetArray("data")
	if err != nil {
		// An empty window returns no data field at all.
		return result, nil
	}

	for _, raw := range posts {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		post := Post{}
		if err := mapstructure.Decode(m, &post); err != nil {
			continue
		}
		result.Posts = append(result.Posts, post)
	}

	includes, err := body.GetJSON("includes")
	if err != nil {
		return result, nil
	}

	users, err := includes.GetArray("users")
	if err != nil {
		return result, nil
	}

	for _, raw := range users {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		user := User{}
		if err := mapstructure.Decode(m, &user); err != nil {
			continue
		}
		result.Users = append(result.Users, user)
	}

	return result, nil
}

func (e *Endpoint) CreatePost(
	ctx context.Context, accessToken, text, inReplyToPostID string,
) (Post, error) {
	body := api.JSON{"text": text}
	if inReplyToPostID != "" {
		body["reply"] = map[string]any{"in_reply_to_tweet_id": inReplyToPostID}
	}

	resp, err := e.apiGenerator.New("/2/tweets").
		Body(body).
		POST(ctx, api.OAuth2("Bearer", accessToken))
	if err != nil {
		return Post{}, err
	}

	if resp.Code >= 300 {
		xcontext.Logger(ctx).Errorf("Cannot create post, status %d: %s", resp.Code, resp.RawBody)
		return Post{}, &StatusError{Code: resp.Code}
	}

	data, err := resp.Body.GetJSON("data")
	if err != nil {
		return Post{}, err
	}

	post := Post{}
	if err := mapstructure.Decode(map[string]any(data), &post); err != nil {
		return Post{}, err
	}

	return post, nil
}

// RequestToken performs the first leg of the OAuth 1.0a flow.
func (e *Endpoint) RequestToken(ctx context.Context, callbackURL string) (string, string, error) {
	header, err := e.signer.AuthorizationHeader(
		"POST", e.oauth1.RequestTokenURL,
		api.Parameter{"oauth_callback": callbackURL},
		"", "",
	)
	if err != nil {
		return "", "", err
	}

	resp, err := e.absGenerator.New("%s", e.oauth1.RequestTokenURL).
		POST(ctx, api.OAuth1(header))
	if err != nil {
		return "", "", err
	}

	if resp.Code >= 300 {
		xcontext.Logger(ctx).Errorf("Request token failed with %d: %s", resp.Code, resp.RawBody)
		return "", "", &StatusError{Code: resp.Code}
	}

	values, err := url.ParseQuery(string(resp.RawBody))
	if err != nil {
		return "", "", err
	}

	token, secret := values.Get("oauth_token"), values.Get("oauth_token_secret")
	if token == "" || secret == "" {
		return "", "", errors.New("no request token in response")
	}

	return token, secret, nil
}

// AccessToken performs the third leg, trading the request token and verifier
// for a permanent token pair plus the platform identity.
func (e *Endpoint) AccessToken(
	ctx context.Context, token, tokenSecret, verifier string,
) (OAuth1AccessToken, error) {
	header, err := e.signer.AuthorizationHeader(
		"POST", e.oauth1.AccessTokenURL,
		api.Parameter{"oauth_token": token, "oauth_verifier": verifier},
		token, tokenSecret,
	)
	if err != nil {
		return OAuth1AccessToken{}, err
	}

	resp, err := e.absGenerator.New("%s", e.oauth1.AccessTokenURL).
		POST(ctx, api.OAuth1(header))
	if err != nil {
		return OAuth1AccessToken{}, err
	}

	if resp.Code >= 300 {
		xcontext.Logger(ctx).Errorf("Access token failed with %d: %s", resp.Code, resp.RawBody)
		return OAuth1AccessToken{}, &StatusError{Code: resp.Code}
	}

	values, err := url.ParseQuery(string(resp.RawBody))
	if err != nil {
		return OAuth1AccessToken{}, err
	}

	result := OAuth1AccessToken{
		Token:       values.Get("oauth_token"),
		TokenSecret: values.Get("oauth_token_secret"),
		UserID:      values.Get("user_id"),
		ScreenName:  values.Get("screen_name"),
	}

	if result.Token == "" || result.UserID == "" {
		return OAuth1AccessToken{}, errors.New("incomplete access token response")
	}

	return result, nil
}

func (e *Endpoint) AuthenticateURL(token string) string {
	return e.oauth1.AuthenticateURL + "?oauth_token=" + url.QueryEscape(token)
}
