package middleware

import (
	"context"

	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/router"
	"github.com/replydesk/backend/pkg/xcontext"
)

// Authenticate resolves the session cookie to an account and records the
// caller on the request scope. Requests without a live session are rejected.
func Authenticate(sessionRepo repository.SessionRepository) router.MiddlewareFunc {
	return func(ctx context.Context) error {
		cookie, err := xcontext.HTTPRequest(ctx).Cookie(xcontext.Configs(ctx).Session.TokenName)
		if err != nil || cookie.Value == "" {
			return errorx.New(errorx.Unauthenticated, "You need to authenticate before")
		}

		session, err := sessionRepo.GetByToken(ctx, cookie.Value)
		if err != nil {
			return errorx.New(errorx.Unauthenticated, "Your session is invalid or expired")
		}

		xcontext.SetRequestUserID(ctx, session.XUserID)
		return nil
	}
}

// MaybeAuthenticate is Authenticate without the rejection. Handlers that
// serve both states check the request user id themselves.
func MaybeAuthenticate(sessionRepo repository.SessionRepository) router.MiddlewareFunc {
	return func(ctx context.Context) error {
		cookie, err := xcontext.HTTPRequest(ctx).Cookie(xcontext.Configs(ctx).Session.TokenName)
		if err != nil || cookie.Value == "" {
			return nil
		}

		if session, err := sessionRepo.GetByToken(ctx, cookie.Value); err == nil {
			xcontext.SetRequestUserID(ctx, session.XUserID)
		}

		return nil
	}
}
