package model

import "context"

type ctxKey int

const (
	idempotencyKeyCtx ctxKey = iota
	requestIDCtx
)

// WithIdempotencyKey attaches the idempotency key for the outgoing mutation.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx, key)
}

// IdempotencyKeyFrom returns the key set by WithIdempotencyKey, if any.
func IdempotencyKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx).(string)
	return key, ok && key != ""
}

// WithRequestID attaches a correlation id that transports forward to the server.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtx, id)
}

// RequestIDFrom returns the id set by WithRequestID, if any.
func RequestIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDCtx).(string)
	return id, ok && id != ""
}
