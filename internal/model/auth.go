package model

import (
	"context"
	"net/http"
	"time"

	"github.com/replydesk/backend/pkg/xcontext"
)

type AuthStartRequest struct{}

type AuthStartResponse struct {
	URL string `json:"-"`
}

func (r *AuthStartResponse) RedirectURL() string {
	return r.URL
}

type AuthCallbackRequest struct{}

type AuthCallbackResponse struct {
	RedirectTo string `json:"-"`

	// SessionToken is set as the session cookie by the cookie middleware; it
	// never appears in a body.
	SessionToken     string    `json:"-"`
	SessionExpiresAt time.Time `json:"-"`
}

func (r *AuthCallbackResponse) RedirectURL() string {
	return r.RedirectTo
}

func (r *AuthCallbackResponse) CookieInfo(ctx context.Context) []http.Cookie {
	if r.SessionToken == "" {
		return nil
	}

	return []http.Cookie{
		{
			Name:     xcontext.Configs(ctx).Session.TokenName,
			Value:    r.SessionToken,
			Path:     "/",
			Expires:  r.SessionExpiresAt,
			Secure:   xcontext.Configs(ctx).Env == "prod",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

type LogoutRequest struct{}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (r *LogoutResponse) CookieInfo(ctx context.Context) []http.Cookie {
	return []http.Cookie{
		{
			Name:     xcontext.Configs(ctx).Session.TokenName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

type DisconnectRequest struct {
	AccountID string `json:"accountId"`
}

// TeardownStep reports one stage of the disconnect cascade. Best-effort
// steps can fail without aborting the teardown.
type TeardownStep struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
}

type DisconnectResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	CleanedReplies int64          `json:"cleanedReplies"`
	Steps          []TeardownStep `json:"steps"`
}
