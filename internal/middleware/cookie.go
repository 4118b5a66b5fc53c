package middleware

import (
	"context"
	"net/http"

	"github.com/replydesk/backend/pkg/router"
	"github.com/replydesk/backend/pkg/xcontext"
)

type CookieResponse interface {
	CookieInfo(ctx context.Context) []http.Cookie
}

// HandleSetCookie writes cookies declared by the response after the handler
// ran, so handlers never touch the writer directly.
func HandleSetCookie() router.MiddlewareFunc {
	return func(ctx context.Context) error {
		resp, ok := xcontext.GetResponse(ctx).(CookieResponse)
		if !ok {
			return nil
		}

		for _, cookie := range resp.CookieInfo(ctx) {
			cookie := cookie
			http.SetCookie(xcontext.HTTPWriter(ctx), &cookie)
		}

		return nil
	}
}
