package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/role"
	"getir-be/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, p user.CreateParams) (*user.User, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserStore) FindByPhone(ctx context.Context, phone string) (*user.User, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserStore) MarkVerified(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

type recordingSender struct {
	codes map[string]string
}

func (s *recordingSender) Send(_ context.Context, phone, code string) error {
	s.codes[phone] = code
	return nil
}

const phone = "201001234567"

func newTestService(t *testing.T, users UserStore, opts Options) (Service, *recordingSender) {
	t.Helper()
	issuer, err := NewTokenIssuer("testsecret", time.Hour)
	require.NoError(t, err)

	sender := &recordingSender{codes: map[string]string{}}
	opts.Sender = sender
	return NewService(users, issuer, NewCodeStore(time.Minute), opts), sender
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesUnverifiedAndSendsCode", func(t *testing.T) {
		users := new(MockUserStore)
		svc, sender := newTestService(t, users, Options{})

		users.On("Create", ctx, user.CreateParams{Name: "Ahmed", Phone: phone, Type: role.Customer}).
			Return(&user.User{ID: 1, Phone: phone, Type: role.Customer}, nil)

		ch, err := svc.Register(ctx, " Ahmed ", "+20 100 123 4567", nil)
		require.NoError(t, err)
		assert.Equal(t, ActionRegister, ch.Action)
		assert.Equal(t, 300, ch.ExpiresIn)
		assert.Empty(t, ch.DebugCode)
		assert.Len(t, sender.codes[phone], 5)
		users.AssertExpectations(t)
	})

	t.Run("Validation", func(t *testing.T) {
		svc, _ := newTestService(t, new(MockUserStore), Options{})
		bad := "nope"

		_, err := svc.Register(ctx, "", "12", &bad)
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Fields, 3)
	})

	t.Run("DuplicatePhone", func(t *testing.T) {
		users := new(MockUserStore)
		svc, _ := newTestService(t, users, Options{})
		users.On("Create", ctx, mock.Anything).Return(nil, fmt.Errorf("%w: phone", apperr.ErrConflict))

		_, err := svc.Register(ctx, "Ahmed", phone, nil)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("ThrottledWritesNoUser", func(t *testing.T) {
		users := new(MockUserStore)
		limiter := NewPhoneLimiter(1)
		require.True(t, limiter.Allow(phone))
		svc, _ := newTestService(t, users, Options{Limiter: limiter})

		_, err := svc.Register(ctx, "Ahmed", phone, nil)
		assert.ErrorIs(t, err, apperr.ErrTooManyRequests)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("DebugEchoesCode", func(t *testing.T) {
		users := new(MockUserStore)
		svc, _ := newTestService(t, users, Options{Debug: true, Generator: FixedCode("12345")})
		users.On("Create", ctx, mock.Anything).Return(&user.User{ID: 1, Phone: phone}, nil)

		ch, err := svc.Register(ctx, "Ahmed", phone, nil)
		require.NoError(t, err)
		assert.Equal(t, "12345", ch.DebugCode)
	})
}

func TestService_LoginVerifyRoundTrip(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	svc, sender := newTestService(t, users, Options{})

	u := &user.User{ID: 9, Phone: phone, Type: role.Customer}
	users.On("FindByPhone", ctx, phone).Return(u, nil)
	users.On("MarkVerified", ctx, uint(9)).Return(nil).Once()

	_, err := svc.Login(ctx, phone)
	require.NoError(t, err)
	code := sender.codes[phone]

	session, err := svc.Verify(ctx, phone, code, ActionLogin)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.User.IsVerified)

	_, err = svc.Verify(ctx, phone, code, ActionLogin)
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredCode)

	users.AssertExpectations(t)
}

func TestService_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("CodeScopedToAction", func(t *testing.T) {
		users := new(MockUserStore)
		svc, sender := newTestService(t, users, Options{})
		users.On("FindByPhone", ctx, phone).Return(&user.User{ID: 9, Phone: phone, IsVerified: true}, nil)

		_, err := svc.Login(ctx, phone)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, phone, sender.codes[phone], ActionRegister)
		assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredCode)
	})

	t.Run("WrongCode", func(t *testing.T) {
		users := new(MockUserStore)
		svc, _ := newTestService(t, users, Options{Generator: FixedCode("12345")})
		users.On("FindByPhone", ctx, phone).Return(&user.User{ID: 9, Phone: phone, IsVerified: true}, nil)

		_, err := svc.Login(ctx, phone)
		require.NoError(t, err)

		_, err = svc.Verify(ctx, phone, "54321", ActionLogin)
		assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredCode)
	})

	t.Run("CorrectCodeFailsAfterRepeatedMisses", func(t *testing.T) {
		users := new(MockUserStore)
		svc, sender := newTestService(t, users, Options{})
		users.On("FindByPhone", ctx, phone).Return(&user.User{ID: 9, Phone: phone, IsVerified: true}, nil)

		_, err := svc.Login(ctx, phone)
		require.NoError(t, err)
		code := sender.codes[phone]

		wrong := "00000"
		if code == wrong {
			wrong = "11111"
		}
		for i := 0; i < MaxCodeAttempts; i++ {
			_, err = svc.Verify(ctx, phone, wrong, ActionLogin)
			require.ErrorIs(t, err, apperr.ErrInvalidOrExpiredCode)
		}

		_, err = svc.Verify(ctx, phone, code, ActionLogin)
		assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredCode)
		users.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		svc, _ := newTestService(t, new(MockUserStore), Options{})
		_, err := svc.Verify(ctx, phone, "12345", "reset")
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownPhone", func(t *testing.T) {
		users := new(MockUserStore)
		svc, _ := newTestService(t, users, Options{})
		users.On("FindByPhone", ctx, phone).Return(nil, fmt.Errorf("%w: user", apperr.ErrNotFound))

		_, err := svc.Login(ctx, phone)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("RateLimited", func(t *testing.T) {
		users := new(MockUserStore)
		svc, _ := newTestService(t, users, Options{Limiter: NewPhoneLimiter(1)})
		users.On("FindByPhone", ctx, phone).Return(&user.User{ID: 9, Phone: phone}, nil)

		_, err := svc.Login(ctx, phone)
		require.NoError(t, err)
		_, err = svc.Resend(ctx, phone, ActionLogin)
		assert.ErrorIs(t, err, apperr.ErrTooManyRequests)
	})
}

func TestService_ResendReplacesCode(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	codes := []string{"11111", "22222"}
	i := 0
	gen := func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}
	svc, _ := newTestService(t, users, Options{Generator: gen})

	users.On("FindByPhone", ctx, phone).Return(&user.User{ID: 9, Phone: phone, IsVerified: true}, nil)

	_, err := svc.Login(ctx, phone)
	require.NoError(t, err)
	_, err = svc.Resend(ctx, phone, ActionLogin)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, phone, "11111", ActionLogin)
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredCode)

	_, err = svc.Verify(ctx, phone, "22222", ActionLogin)
	assert.NoError(t, err)
}
