package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/replydesk/backend/internal/entity"
	"github.com/replydesk/backend/internal/repository"
	"github.com/replydesk/backend/internal/testutil"
	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func Test_Authenticate(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	sessionRepo := repository.NewSessionRepository()

	require.NoError(t, sessionRepo.Create(ctx, &entity.Session{
		Base:      entity.Base{ID: uuid.NewString()},
		Token:     "live-token",
		XUserID:   "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "live-token"})

	reqCtx := xcontext.WithHTTPRequest(ctx, req)
	reqCtx = xcontext.WithRequestScope(reqCtx)

	require.NoError(t, Authenticate(sessionRepo)(reqCtx))
	require.Equal(t, "user-1", xcontext.RequestUserID(reqCtx))
}

func Test_Authenticate_withoutCookie(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	sessionRepo := repository.NewSessionRepository()

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	reqCtx := xcontext.WithHTTPRequest(ctx, req)
	reqCtx = xcontext.WithRequestScope(reqCtx)

	err := Authenticate(sessionRepo)(reqCtx)
	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, errorx.Unauthenticated, errx.Code)
}

func Test_Authenticate_expiredSession(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	sessionRepo := repository.NewSessionRepository()

	require.NoError(t, sessionRepo.Create(ctx, &entity.Session{
		Base:      entity.Base{ID: uuid.NewString()},
		Token:     "stale-token",
		XUserID:   "user-1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "stale-token"})

	reqCtx := xcontext.WithHTTPRequest(ctx, req)
	reqCtx = xcontext.WithRequestScope(reqCtx)

	err := Authenticate(sessionRepo)(reqCtx)
	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, errorx.Unauthenticated, errx.Code)
}

func Test_MaybeAuthenticate_missingSessionIsNotAnError(t *testing.T) {
	ctx := testutil.NewContext(t, testutil.NewTestDB(t))
	sessionRepo := repository.NewSessionRepository()

	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	reqCtx := xcontext.WithHTTPRequest(ctx, req)
	reqCtx = xcontext.WithRequestScope(reqCtx)

	require.NoError(t, MaybeAuthenticate(sessionRepo)(reqCtx))
	require.Empty(t, xcontext.RequestUserID(reqCtx))
}
