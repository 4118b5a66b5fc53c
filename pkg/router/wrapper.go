package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/replydesk/backend/pkg/errorx"
	"github.com/replydesk/backend/pkg/xcontext"
)

func wrapHandler[Request, Response any](
	router *Router,
	method string,
	handler HandlerFunc[Request, Response],
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx := router.newRequestContext(w, r)

		var req Request
		if err := bindRequest(r, method, &req); err != nil {
			xcontext.Logger(ctx).Warnf("Cannot bind the request: %v", err)
			xcontext.SetError(ctx, errorx.New(errorx.BadRequest, "Cannot parse the request"))
		}

		if xcontext.GetError(ctx) == nil {
			if err := runMiddlewares(ctx, router.befores); err != nil {
				xcontext.SetError(ctx, err)
			}
		}

		if xcontext.GetError(ctx) == nil {
			resp, err := handler(ctx, &req)
			if err != nil {
				xcontext.SetError(ctx, err)
			} else if resp != nil {
				xcontext.SetResponse(ctx, resp)
			}
		}

		// After middlewares run regardless of the handler outcome so that
		// cookie and session bookkeeping is never skipped.
		if err := runMiddlewares(ctx, router.afters); err != nil && xcontext.GetError(ctx) == nil {
			xcontext.SetError(ctx, err)
		}

		writeResponse(ctx)

		for _, closer := range router.closers {
			closer(ctx)
		}
	})
}

func runMiddlewares(ctx context.Context, middlewares []MiddlewareFunc) error {
	for _, middleware := range middlewares {
		if err := middleware(ctx); err != nil {
			return err
		}
	}

	return nil
}

func bindRequest(r *http.Request, method string, req any) error {
	switch method {
	case http.MethodGet:
		// GET requests carry no bound parameters; handlers that need query
		// values read them from the request in context.
		return nil
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}

		if len(body) == 0 {
			return nil
		}

		return json.Unmarshal(body, req)
	}

	return nil
}
