package logger

import (
	"context"

	"go.uber.org/zap"
)

// The HTTP middleware stores a per-request logger (carrying the request id)
// in the context; pipeline stages pick it up here instead of threading a
// logger parameter through every call.

type ctxKey struct{}

// ContextWithLogger returns a child context carrying l.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger when the
// context carries none, so callers never need a nil check.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
