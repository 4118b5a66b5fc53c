package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
)

// Redirecter responses short-circuit the JSON envelope and reply with a 302.
// The OAuth handshake endpoints use this.
type Redirecter interface {
	RedirectURL() string
}

// StatusCoder lets a successful response override the 200 status. The poll
// endpoint reports a rate-limited batch with 429 while still carrying a body.
type StatusCoder interface {
	StatusCode() int
}

type response struct {
	Code  int64  `json:"code"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func writeResponse(ctx context.Context) {
	w := xcontext.HTTPWriter(ctx)

	if err := xcontext.GetError(ctx); err != nil {
		errx := errorx.Error{}
		if !errors.As(err, &errx) {
			errx = errorx.Unknown
		}

		writeJSON(ctx, w, httpStatus(errx.Code), response{
			Code:  int64(errx.Code),
			Error: errx.Message,
		})
		return
	}

	resp := xcontext.GetResponse(ctx)
	if resp == nil {
		writeJSON(ctx, w, http.StatusOK, response{})
		return
	}

	if redirect, ok := resp.(Redirecter); ok {
		http.Redirect(w, xcontext.HTTPRequest(ctx), redirect.RedirectURL(), http.StatusFound)
		return
	}

	status := http.StatusOK
	if coder, ok := resp.(StatusCoder); ok {
		status = coder.StatusCode()
	}

	writeJSON(ctx, w, status, response{Data: resp})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, resp response) {
	b, err := json.Marshal(resp)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal the response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
	}
}

func httpStatus(code errorx.Code) int {
	switch code {
	case errorx.BadRequest:
		return http.StatusBadRequest
	case errorx.Unauthenticated:
		return http.StatusUnauthorized
	case errorx.NotFound:
		return http.StatusNotFound
	case errorx.TooManyRequests, errorx.RateLimited:
		return http.StatusTooManyRequests
	case errorx.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
