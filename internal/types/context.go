package types

import "context"

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxRunID     ContextKey = "ctx_run_id"
)

func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxRequestID).(string); ok {
		return v
	}
	return ""
}

func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxRunID).(string); ok {
		return v
	}
	return ""
}

func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, CtxRunID, runID)
}
