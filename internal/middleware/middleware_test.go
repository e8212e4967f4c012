package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/auth"
	"getir-be/internal/role"
	"getir-be/internal/user"
	"getir-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	return issuer
}

type stubUsers map[uint]*user.User

func (s stubUsers) GetByID(_ context.Context, id uint) (*user.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

type stubChecker struct {
	allowed map[string]bool
	err     error
}

func (s stubChecker) IsAdminAllowed(_ context.Context, phone string) (bool, error) {
	return s.allowed[phone], s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withUser(r *http.Request, id uint, phone string, rl role.Role) *http.Request {
	return r.WithContext(utils.SetUserContext(r.Context(), id, phone, rl))
}

func TestCORS(t *testing.T) {
	const origin = "http://localhost:3000"
	handler := CORS(origin)(okHandler())

	t.Run("Preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/cart/items", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "POST", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Actual request from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Foreign origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Plain OPTIONS reaches the router", func(t *testing.T) {
		reached := false
		h := CORS(origin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusMethodNotAllowed)
		}))
		w := httptest.NewRecorder()

		h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/cart", nil))

		assert.True(t, reached)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestAuthMiddleware(t *testing.T) {
	issuer := newIssuer(t)

	t.Run("Missing Token", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		AuthMiddleware(issuer, nil)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stores", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		AuthMiddleware(issuer, nil)(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	})

	t.Run("Valid Token", func(t *testing.T) {
		token, _, err := issuer.Issue(1, "01000000001", role.Customer)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, uint(1), userID)
			assert.Equal(t, "01000000001", utils.GetUserPhoneFromContext(r.Context()))
			assert.Equal(t, role.Customer, utils.GetUserRoleFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		AuthMiddleware(issuer, nil)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Cookie Token", func(t *testing.T) {
		token, _, err := issuer.Issue(3, "01000000003", role.Driver)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/driver/orders", nil)
		req.AddCookie(&http.Cookie{Name: auth.AccessTokenCookie, Value: token})
		w := httptest.NewRecorder()

		AuthMiddleware(issuer, nil)(RequireRole(role.Driver)(okHandler())).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		claims := auth.Claims{
			UserID: 1,
			Role:   role.Customer,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		AuthMiddleware(issuer, nil)(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stores", nil)
		req.Header.Set("Authorization", "Basic user:pass")
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		AuthMiddleware(issuer, nil)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Role Refreshed From Database", func(t *testing.T) {
		// token minted before the driver application was approved
		token, _, err := issuer.Issue(5, "01000000005", role.Customer)
		require.NoError(t, err)
		users := stubUsers{5: {ID: 5, Phone: "01000000005", Type: role.Driver}}

		req := httptest.NewRequest(http.MethodGet, "/driver/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		AuthMiddleware(issuer, users)(RequireRole(role.Driver)(okHandler())).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Deleted User", func(t *testing.T) {
		token, _, err := issuer.Issue(6, "01000000006", role.Customer)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		AuthMiddleware(issuer, stubUsers{})(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(role.StoreOwner, role.Admin)(okHandler())

	tests := []struct {
		name string
		role role.Role
		anon bool
		want int
	}{
		{"anonymous", "", true, http.StatusUnauthorized},
		{"customer", role.Customer, false, http.StatusForbidden},
		{"store owner", role.StoreOwner, false, http.StatusOK},
		{"admin", role.Admin, false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/store/orders", nil)
			if !tt.anon {
				req = withUser(req, 9, "01000000009", tt.role)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireAdminAccess(t *testing.T) {
	checker := stubChecker{allowed: map[string]bool{"01000000001": true}}

	t.Run("allow-listed admin", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/admin/users", nil), 1, "01000000001", role.Admin)
		w := httptest.NewRecorder()

		RequireAdminAccess(checker)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin not on list", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/admin/users", nil), 2, "01000000002", role.Admin)
		w := httptest.NewRecorder()

		RequireAdminAccess(checker)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("listed phone without admin role", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/admin/users", nil), 1, "01000000001", role.Customer)
		w := httptest.NewRecorder()

		RequireAdminAccess(checker)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("lookup failure", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/admin/users", nil), 1, "01000000001", role.Admin)
		w := httptest.NewRecorder()

		RequireAdminAccess(stubChecker{err: errors.New("db down")})(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("strict tier on auth paths", func(t *testing.T) {
		limiter := NewRateLimiter(ctx, "")
		handler := limiter.Middleware(okHandler())

		codes := make([]int, 0, burstStrict+1)
		for i := 0; i < burstStrict+1; i++ {
			req := httptest.NewRequest(http.MethodPost, "/login", nil)
			req.RemoteAddr = "10.0.0.1:5555"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		for _, c := range codes[:burstStrict] {
			assert.Equal(t, http.StatusOK, c)
		}
		assert.Equal(t, http.StatusTooManyRequests, codes[burstStrict])

		// the general bucket is untouched
		req := httptest.NewRequest(http.MethodGet, "/stores", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("strict tier ignores rotating device ids", func(t *testing.T) {
		limiter := NewRateLimiter(ctx, "")
		handler := limiter.Middleware(okHandler())

		passed := 0
		for i := 0; i < 50; i++ {
			req := httptest.NewRequest(http.MethodPost, "/verify-phone", nil)
			req.RemoteAddr = "10.0.0.2:4000"
			req.Header.Set("X-Device-ID", fmt.Sprintf("device-%d", i))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code == http.StatusOK {
				passed++
			}
		}
		assert.LessOrEqual(t, passed, burstStrict+1)
	})

	t.Run("internal key marks request", func(t *testing.T) {
		limiter := NewRateLimiter(ctx, "s3cret")
		handler := limiter.Middleware(RequireInternal(okHandler()))

		req := httptest.NewRequest(http.MethodPost, "/internal/notifications", nil)
		req.Header.Set(InternalKeyHeader, "s3cret")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodPost, "/internal/notifications", nil)
		req.Header.Set(InternalKeyHeader, "wrong")
		w = httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("idle visitors evicted", func(t *testing.T) {
		limiter := NewRateLimiter(ctx, "")
		limiter.getVisitor("ip:1.1.1.1:general", limitGeneral, burstGeneral)

		limiter.evictIdle(time.Now().Add(visitorIdle + time.Second))

		limiter.mu.Lock()
		defer limiter.mu.Unlock()
		assert.Empty(t, limiter.visitors)
	})
}
