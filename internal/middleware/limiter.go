package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"getir-be/internal/utils"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Register / login / OTP (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Frontend-heavy apps
	limitFrontend = rate.Limit(20)
	burstFrontend = 40

	// Internal / trusted services
	limitInternal = rate.Limit(100)
	burstInternal = 200

	visitorIdle   = 3 * time.Minute
	sweepInterval = time.Minute
)

// InternalKeyHeader carries the shared secret of trusted callers.
const InternalKeyHeader = "X-Service-Auth"

var strictPaths = map[string]bool{
	"/register":            true,
	"/login":               true,
	"/verify-phone":        true,
	"/resend-verification": true,
}

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	internalKey string

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiter starts the visitor sweeper; it stops when ctx is done.
func NewRateLimiter(ctx context.Context, internalKey string) *RateLimiter {
	l := &RateLimiter{
		internalKey: internalKey,
		visitors:    make(map[string]*visitor),
	}
	go l.sweep(ctx)
	return l
}

// getVisitor retrieves or creates a rate limiter for the given bucket key.
func (l *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		l.visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (l *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle(time.Now())
		}
	}
}

func (l *RateLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(l.visitors, key)
		}
	}
}

// Middleware checks if the request is allowed by the rate limiter.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := l.resolveRateTier(r)

		identity := visitorIdentity(r, tier)

		// Separate quotas per tier, e.g. "ip:1.2.3.4:strict".
		key := fmt.Sprintf("%s:%s", identity, tier)

		if !l.getVisitor(key, limit, burst).Allow() {
			utils.WriteJSONError(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		if tier == "internal" {
			r = r.WithContext(utils.WithInternalRequest(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}

// visitorIdentity picks the bucket owner. Strict paths are keyed by client IP
// only: X-Device-ID is caller-chosen and would hand out a fresh bucket per value.
func visitorIdentity(r *http.Request, tier string) string {
	if tier != "strict" {
		if userID, ok := utils.GetUserIDFromContext(r.Context()); ok {
			return fmt.Sprintf("user:%d", userID)
		}
		if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
			return "device:" + deviceID
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// resolveRateTier determines which rate limit policy applies to the request.
func (l *RateLimiter) resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	if l.internalKey != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(InternalKeyHeader)), []byte(l.internalKey)) == 1 {
		return limitInternal, burstInternal, "internal"
	}

	if strictPaths[r.URL.Path] {
		return limitStrict, burstStrict, "strict"
	}

	if r.Header.Get("X-Client-Type") == "frontend-heavy" {
		return limitFrontend, burstFrontend, "frontend"
	}

	return limitGeneral, burstGeneral, "general"
}

// RequireInternal only admits requests that presented the internal key.
func RequireInternal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsInternalRequest(r.Context()) {
			utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
