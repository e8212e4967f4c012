package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"getir-be/internal/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	codeDigits     = 5
	maxCodes       = 10000
	maxLimiters    = 10000
	limiterIdle    = 10 * time.Minute
	DefaultCodeTTL = 5 * time.Minute

	// MaxCodeAttempts wrong guesses burn the pending code.
	MaxCodeAttempts = 5
)

// CodeGenerator produces one-time codes.
type CodeGenerator func() (string, error)

// RandomCode returns a uniformly random 5-digit code from crypto/rand.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// FixedCode always returns code. Development only.
func FixedCode(code string) CodeGenerator {
	return func() (string, error) { return code, nil }
}

// CodeStore keeps pending codes with a TTL. Consume removes the entry on
// success, and after MaxCodeAttempts wrong guesses, so a code verifies at most
// once and cannot be enumerated.
type CodeStore struct {
	mu    sync.Mutex
	codes *expirable.LRU[string, *pendingCode]
}

type pendingCode struct {
	code     string
	failures int
}

func NewCodeStore(ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &CodeStore{codes: expirable.NewLRU[string, *pendingCode](maxCodes, nil, ttl)}
}

// Put replaces any previous code for key, resetting its TTL and failure count.
func (s *CodeStore) Put(key, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes.Remove(key)
	s.codes.Add(key, &pendingCode{code: code})
}

func (s *CodeStore) Consume(key, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.codes.Peek(key)
	if !ok {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(p.code), []byte(code)) != 1 {
		p.failures++
		if p.failures >= MaxCodeAttempts {
			s.codes.Remove(key)
		}
		return false
	}
	s.codes.Remove(key)
	return true
}

// Sender delivers a code to a phone. SMS integration lives outside this repo.
type Sender interface {
	Send(ctx context.Context, phone, code string) error
}

// LogSender writes the delivery to the log instead of an SMS gateway. The code
// itself is only logged when debug is on.
type LogSender struct {
	Debug bool
}

func (s LogSender) Send(ctx context.Context, phone, code string) error {
	fields := []zap.Field{zap.String("phone", maskPhone(phone))}
	if s.Debug {
		fields = append(fields, zap.String("code", code))
	}
	logger.FromCtx(ctx).Info("otp dispatched", fields...)
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return "****" + phone[len(phone)-4:]
}

// PhoneLimiter caps code deliveries per phone. Idle limiters expire with the LRU.
type PhoneLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *expirable.LRU[string, *rate.Limiter]
}

func NewPhoneLimiter(perMinute int) *PhoneLimiter {
	if perMinute <= 0 {
		perMinute = 3
	}
	return &PhoneLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxLimiters, nil, limiterIdle),
	}
}

func (l *PhoneLimiter) Allow(phone string) bool {
	l.mu.Lock()
	lim, ok := l.limiters.Get(phone)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(phone, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}
