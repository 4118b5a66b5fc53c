package xcontext

import "context"

type payloadKey struct{}

// payload carries request-scoped mutable values. It is stored by pointer so
// that middlewares and handlers observe each other's writes.
type payload struct {
	userID   string
	response any
	err      error
}

func WithRequestScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, payloadKey{}, &payload{})
}

func scope(ctx context.Context) *payload {
	p, ok := ctx.Value(payloadKey{}).(*payload)
	if !ok {
		panic("no request scope in context")
	}

	return p
}

func SetRequestUserID(ctx context.Context, id string) {
	scope(ctx).userID = id
}

func RequestUserID(ctx context.Context) string {
	return scope(ctx).userID
}

func SetResponse(ctx context.Context, resp any) {
	scope(ctx).response = resp
}

func GetResponse(ctx context.Context) any {
	return scope(ctx).response
}

func SetError(ctx context.Context, err error) {
	scope(ctx).err = err
}

func GetError(ctx context.Context) error {
	return scope(ctx).err
}
