// Package requestctx carries the per-request correlation ID through context
// so domain code can tag logs and audit rows without importing the transport
// layer.
package requestctx

import "context"

type contextKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, _ := ctx.Value(contextKey{}).(string)
	return value
}
