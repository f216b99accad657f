package middleware

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userIDKey        contextKey = "user_id"
	sessionPrefixKey contextKey = "session_prefix"
)

func SetUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(userIDKey).(string)
	return id, ok && id != ""
}

func setSessionPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, sessionPrefixKey, prefix)
}

func getSessionPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(sessionPrefixKey).(string)
	return prefix, ok
}

// WithSessionPrefix sets the rate limit identity without running Authenticate.
func WithSessionPrefix(ctx context.Context, prefix string) context.Context {
	return setSessionPrefix(ctx, prefix)
}
