package services

import "context"

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	codeKey      contextKey = "code"
	updateIDKey  contextKey = "update_id"
	requestIDKey contextKey = "request_id"
)

// WithUserID annotates context with the Telegram user the request came from.
func WithUserID(ctx context.Context, id int64) context.Context {
	if id == 0 {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the user identifier if present.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(userIDKey).(int64)
	return v, ok && v != 0
}

// WithCode annotates context with the catalog code being operated on.
func WithCode(ctx context.Context, code string) context.Context {
	if code == "" {
		return ctx
	}
	return context.WithValue(ctx, codeKey, code)
}

// CodeFromContext returns the catalog code if present.
func CodeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(codeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithUpdateID annotates context with the Telegram update identifier.
func WithUpdateID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, updateIDKey, id)
}

// UpdateIDFromContext extracts the update identifier if present.
func UpdateIDFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(updateIDKey).(int)
	return v, ok
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
