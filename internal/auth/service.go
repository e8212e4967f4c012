package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/user"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

// Action scopes a code to the flow that requested it.
type Action string

const (
	ActionRegister Action = "register"
	ActionLogin    Action = "login"
)

func (a Action) Valid() bool {
	return a == ActionRegister || a == ActionLogin
}

// UserStore is the slice of the user repository the OTP flow needs.
type UserStore interface {
	Create(ctx context.Context, p user.CreateParams) (*user.User, error)
	FindByPhone(ctx context.Context, phone string) (*user.User, error)
	MarkVerified(ctx context.Context, id uint) error
}

// Challenge is returned whenever a code has been sent.
type Challenge struct {
	Phone     string `json:"phone"`
	Action    Action `json:"action"`
	ExpiresIn int    `json:"expires_in"`
	DebugCode string `json:"debug_code,omitempty"`
}

type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

type Options struct {
	Generator CodeGenerator
	Sender    Sender
	Limiter   *PhoneLimiter
	CodeTTL   time.Duration
	// Debug echoes codes in challenges. Never enable in production.
	Debug bool
}

type Service interface {
	Register(ctx context.Context, name, phone string, email *string) (*Challenge, error)
	Login(ctx context.Context, phone string) (*Challenge, error)
	Verify(ctx context.Context, phone, code string, action Action) (*Session, error)
	Resend(ctx context.Context, phone string, action Action) (*Challenge, error)
}

type service struct {
	users  UserStore
	tokens *TokenIssuer
	codes  *CodeStore
	opts   Options
}

func NewService(users UserStore, tokens *TokenIssuer, codes *CodeStore, opts Options) Service {
	if opts.Generator == nil {
		opts.Generator = RandomCode
	}
	if opts.Sender == nil {
		opts.Sender = LogSender{}
	}
	if opts.Limiter == nil {
		opts.Limiter = NewPhoneLimiter(0)
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	return &service{users: users, tokens: tokens, codes: codes, opts: opts}
}

func codeKey(action Action, phone string) string {
	return string(action) + ":" + phone
}

func (s *service) Register(ctx context.Context, name, phone string, email *string) (*Challenge, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Register"),
	)

	name = strings.TrimSpace(name)
	phone = utils.NormalizePhone(phone)
	if email != nil && strings.TrimSpace(*email) == "" {
		email = nil
	}

	var v apperr.Validation
	v.Check(name != "", "name", "required")
	v.Check(user.ValidPhone(phone), "phone", "invalid")
	if email != nil {
		_, err := mail.ParseAddress(*email)
		v.Check(err == nil, "email", "invalid")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	// before the insert, so a throttled attempt leaves no unverified row behind
	if err := s.allow(phone); err != nil {
		return nil, err
	}

	u, err := s.users.Create(ctx, user.CreateParams{Name: name, Phone: phone, Email: email, Type: role.Customer})
	if err != nil {
		return nil, err
	}

	log.Info("user registered", zap.Uint("user_id", u.ID))
	return s.issue(ctx, u.Phone, ActionRegister)
}

// Login always answers with a fresh code, whether or not the phone was
// verified before.
func (s *service) Login(ctx context.Context, phone string) (*Challenge, error) {
	phone = utils.NormalizePhone(phone)
	if !user.ValidPhone(phone) {
		return nil, apperr.Invalid("phone", "invalid")
	}

	u, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if err := s.allow(u.Phone); err != nil {
		return nil, err
	}
	return s.issue(ctx, u.Phone, ActionLogin)
}

func (s *service) Resend(ctx context.Context, phone string, action Action) (*Challenge, error) {
	phone = utils.NormalizePhone(phone)
	if !action.Valid() {
		return nil, apperr.Invalid("action", "must be register or login")
	}

	u, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if err := s.allow(u.Phone); err != nil {
		return nil, err
	}
	return s.issue(ctx, u.Phone, action)
}

// Verify consumes the code and returns a token. Wrong, expired and already
// used codes all produce the same error.
func (s *service) Verify(ctx context.Context, phone, code string, action Action) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Verify"),
		zap.String("action", string(action)),
	)

	phone = utils.NormalizePhone(phone)
	if !action.Valid() {
		return nil, apperr.Invalid("action", "must be register or login")
	}

	if !s.codes.Consume(codeKey(action, phone), strings.TrimSpace(code)) {
		log.Info("otp rejected", zap.String("phone", maskPhone(phone)))
		return nil, apperr.ErrInvalidOrExpiredCode
	}

	u, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	if !u.IsVerified {
		if err := s.users.MarkVerified(ctx, u.ID); err != nil {
			log.Error("failed to mark user verified", zap.Uint("user_id", u.ID), zap.Error(err))
			return nil, err
		}
		u.IsVerified = true
	}

	token, expiresAt, err := s.tokens.Issue(u.ID, u.Phone, u.Type)
	if err != nil {
		log.Error("failed to sign token", zap.Error(err))
		return nil, err
	}

	log.Info("otp verified", zap.Uint("user_id", u.ID))
	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

func (s *service) allow(phone string) error {
	if !s.opts.Limiter.Allow(phone) {
		return fmt.Errorf("%w: otp requests for this phone", apperr.ErrTooManyRequests)
	}
	return nil
}

// issue generates, stores and sends a code. Callers check allow first.
func (s *service) issue(ctx context.Context, phone string, action Action) (*Challenge, error) {
	code, err := s.opts.Generator()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	s.codes.Put(codeKey(action, phone), code)

	if err := s.opts.Sender.Send(ctx, phone, code); err != nil {
		return nil, fmt.Errorf("send otp: %w", err)
	}

	ch := &Challenge{
		Phone:     phone,
		Action:    action,
		ExpiresIn: int(s.opts.CodeTTL.Seconds()),
	}
	if s.opts.Debug {
		ch.DebugCode = code
	}
	return ch, nil
}
