package auth

import (
	"context"
)

type userKey struct{}

// WithUser adds the authenticated username to the context
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userKey{}, username)
}

// UserFromContext retrieves the authenticated username from the context
func UserFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(userKey{}).(string)
	return username, ok
}
