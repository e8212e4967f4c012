package middleware

import (
	"context"
	"errors"
	"net/http"

	"getir-be/internal/apperr"
	"getir-be/internal/auth"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/user"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

type TokenParser interface {
	Parse(tokenStr string) (*auth.Claims, error)
}

// UserLookup refreshes the caller from the database so a role change
// (store setup, driver approval) takes effect without a new token.
type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*user.User, error)
}

type AdminChecker interface {
	IsAdminAllowed(ctx context.Context, phone string) (bool, error)
}

// AuthMiddleware attaches the caller to the request context. A request
// without a token passes through anonymously; a bad or expired token is
// rejected so clients know to log in again.
func AuthMiddleware(tokens TokenParser, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			log := logger.FromCtx(r.Context()).With(
				zap.String("layer", "middleware"),
				zap.String("method", "AuthMiddleware"),
			)

			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				log.Debug("rejected token", zap.Error(err))
				utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			phone, userRole := claims.Phone, claims.Role
			if users != nil {
				u, err := users.GetByID(r.Context(), claims.UserID)
				switch {
				case errors.Is(err, apperr.ErrNotFound):
					utils.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
					return
				case err != nil:
					log.Error("failed to load user", zap.Uint("user_id", claims.UserID), zap.Error(err))
					utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
					return
				}
				phone, userRole = u.Phone, u.Type
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, phone, userRole)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole lets through authenticated callers holding one of roles.
func RequireRole(roles ...role.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current := utils.GetUserRoleFromContext(r.Context())
			for _, allowed := range roles {
				if current == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
		}))
	}
}

// RequireAdminAccess gates the admin dashboard: the caller must be an admin
// and their phone must be on the admin_access allow-list.
func RequireAdminAccess(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireRole(role.Admin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			phone := utils.GetUserPhoneFromContext(r.Context())
			allowed, err := checker.IsAdminAllowed(r.Context(), phone)
			if err != nil {
				logger.FromCtx(r.Context()).Error("admin access check failed",
					zap.String("layer", "middleware"),
					zap.String("method", "RequireAdminAccess"),
					zap.Error(err),
				)
				utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
