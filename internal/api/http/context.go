package http

import (
	"context"

	"tripmeet-backend/internal/domain"
)

type contextKey string

const (
	userIDKey  contextKey = "user-id"
	profileKey contextKey = "profile"
)

func withUser(ctx context.Context, userID string, profile *domain.Profile) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, profileKey, profile)
}

// UserIDFromContext returns the authenticated user set by the auth middleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ProfileFromContext returns the caller's profile as loaded at authentication.
func ProfileFromContext(ctx context.Context) *domain.Profile {
	p, _ := ctx.Value(profileKey).(*domain.Profile)
	return p
}
