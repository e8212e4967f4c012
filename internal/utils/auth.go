package utils

import (
	"context"

	"getir-be/internal/role"
)

// SetUserContext sets user info into context (called by middleware)
func SetUserContext(ctx context.Context, id uint, phone string, r role.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, id)
	ctx = context.WithValue(ctx, UserPhoneKey, phone)
	ctx = context.WithValue(ctx, UserRoleKey, r)
	return ctx
}

// GetUserIDFromContext retrieves userID safely
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(UserIDKey).(uint)
	return id, ok
}

func GetUserPhoneFromContext(ctx context.Context) string {
	phone, _ := ctx.Value(UserPhoneKey).(string)
	return phone
}

// GetUserRoleFromContext returns the caller's role, or "" for anonymous requests.
func GetUserRoleFromContext(ctx context.Context) role.Role {
	r, _ := ctx.Value(UserRoleKey).(role.Role)
	return r
}
