package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"getir-be/internal/analytics"
	"getir-be/internal/apperr"
	"getir-be/internal/auth"
	"getir-be/internal/cart"
	"getir-be/internal/config"
	"getir-be/internal/metrics"
	"getir-be/internal/middleware"
	"getir-be/internal/notification"
	"getir-be/internal/order"
	"getir-be/internal/product"
	"getir-be/internal/role"
	"getir-be/internal/user"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeUsers struct {
	user.Service
	byID    map[uint]*user.User
	allowed map[string]bool
}

func (f *fakeUsers) GetByID(_ context.Context, id uint) (*user.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeUsers) IsAdminAllowed(_ context.Context, phone string) (bool, error) {
	return f.allowed[phone], nil
}

type mockOrders struct {
	mock.Mock
	order.Service
}

func (m *mockOrders) Place(ctx context.Context, cartKey string, p order.PlaceParams) (*order.Order, error) {
	args := m.Called(ctx, cartKey, p)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *mockOrders) ListMine(ctx context.Context, userID uint, status *order.Status, limit, page int) ([]order.Order, int, error) {
	args := m.Called(ctx, userID, status, limit, page)
	return args.Get(0).([]order.Order), args.Int(1), args.Error(2)
}

func (m *mockOrders) Advance(ctx context.Context, ownerID, id uint, next order.Status) (*order.Order, error) {
	args := m.Called(ctx, ownerID, id, next)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

type mockAuth struct {
	mock.Mock
	auth.Service
}

func (m *mockAuth) Verify(ctx context.Context, phone, code string, action auth.Action) (*auth.Session, error) {
	args := m.Called(ctx, phone, code, action)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

type mockAnalytics struct {
	mock.Mock
	analytics.Service
}

func (m *mockAnalytics) Export(ctx context.Context, r analytics.Range, w io.Writer) error {
	args := m.Called(ctx, r, w)
	if err := args.Error(0); err != nil {
		return err
	}
	_, err := w.Write([]byte("PK-fake-xlsx"))
	return err
}

type mockNotifications struct {
	mock.Mock
	notification.Service
}

func (m *mockNotifications) Notify(ctx context.Context, userID uint, kind, title, body string, data map[string]any) error {
	return m.Called(ctx, userID, kind, title, body, data).Error(0)
}

type catalog map[uint]product.Product

func (c catalog) GetByID(_ context.Context, id uint) (*product.Product, error) {
	p, ok := c[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

func (c catalog) GetByIDs(_ context.Context, ids []uint) (map[uint]product.Product, error) {
	out := make(map[uint]product.Product, len(ids))
	for _, id := range ids {
		if p, ok := c[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// ---- harness ----

const (
	customerID uint = 1
	ownerID    uint = 2
	adminID    uint = 3
	outsiderID uint = 4
)

type harness struct {
	t       *testing.T
	handler http.Handler
	tokens  *auth.TokenIssuer
	deps    Deps
}

func newHarness(t *testing.T, customize func(d *Deps)) *harness {
	t.Helper()

	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	users := &fakeUsers{
		byID: map[uint]*user.User{
			customerID: {ID: customerID, Phone: "01000000001", Type: role.Customer},
			ownerID:    {ID: ownerID, Phone: "01000000002", Type: role.StoreOwner},
			adminID:    {ID: adminID, Phone: "01000000003", Type: role.Admin},
			outsiderID: {ID: outsiderID, Phone: "01000000004", Type: role.Admin},
		},
		allowed: map[string]bool{"01000000003": true},
	}

	products := catalog{
		10: {ID: 10, Name: "Milk", Price: decimal.NewFromInt(10), StockQuantity: 5, IsAvailable: true},
	}

	cfg := &config.Config{
		AppEnv:      "development",
		CORSOrigin:  "http://localhost:3000",
		CartTTL:     time.Hour,
		APIBaseURL:  "http://localhost:8080",
		InternalKey: "internal-key",
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	d := Deps{
		Config:  cfg,
		Tokens:  tokens,
		Users:   users,
		Carts:   cart.NewService(cart.NewMemoryStore(time.Hour), products, decimal.NewFromInt(5)),
		Limiter: middleware.NewRateLimiter(ctx, cfg.InternalKey),
		Metrics: metrics.NewRegistry(),
	}
	if customize != nil {
		customize(&d)
	}

	h := NewRouter(d)
	return &harness{t: t, handler: h, tokens: tokens, deps: d}
}

func (h *harness) token(id uint) string {
	h.t.Helper()
	u := h.deps.Users.(*fakeUsers).byID[id]
	tok, _, err := h.tokens.Issue(u.ID, u.Phone, u.Type)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *harness) as(id uint, method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+h.token(id))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// ---- tests ----

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Invalid("phone", "invalid"), http.StatusBadRequest},
		{fmt.Errorf("load: %w", apperr.ErrNotFound), http.StatusNotFound},
		{apperr.ErrUnauthorized, http.StatusUnauthorized},
		{apperr.ErrForbidden, http.StatusForbidden},
		{apperr.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: Milk", apperr.ErrInsufficientStock), http.StatusConflict},
		{apperr.ErrUnavailable, http.StatusConflict},
		{apperr.ErrInvalidOrExpiredCode, http.StatusBadRequest},
		{apperr.ErrEmptyCart, http.StatusBadRequest},
		{apperr.ErrTooManyRequests, http.StatusTooManyRequests},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.want, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.NotContains(t, env.Error, "pq:")
		})
	}

	t.Run("fields are exposed", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), apperr.Invalid("delivery_address", "required"))

		env := decodeEnvelope(t, w)
		assert.Equal(t, "required", env.Fields["delivery_address"])
	})
}

func TestGuestCart_CookieKeepsCart(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":10,"quantity":2}`))
	req.Header.Set("Content-Type", "application/json")
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cartSessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)

	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(session)
	w = h.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data cart.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.ItemCount)
	assert.Equal(t, "25", body.Data.Total.String())

	t.Run("exceeding stock is a conflict", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":10,"quantity":4}`))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(session)

		w := h.do(req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestCart_FormPosts(t *testing.T) {
	h := newHarness(t, nil)

	formReq := func(method, target string, form url.Values) *http.Request {
		req := h.as(customerID, method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}
	cartOf := func(w *httptest.ResponseRecorder) cart.View {
		var body struct {
			Data cart.View `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Data
	}

	w := h.do(formReq(http.MethodPost, "/cart/items", url.Values{"product_id": {"10"}, "quantity": {"2"}}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, cartOf(w).ItemCount)

	w = h.do(formReq(http.MethodPut, "/cart/items/10", url.Values{"quantity": {"5"}}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, cartOf(w).ItemCount)

	t.Run("bad fields are reported per field", func(t *testing.T) {
		w := h.do(formReq(http.MethodPost, "/cart/items", url.Values{"product_id": {"0"}, "quantity": {"two"}}))

		require.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.Equal(t, "must be a positive integer", env.Fields["product_id"])
		assert.Equal(t, "must be an integer", env.Fields["quantity"])
	})
}

func TestVerifyPhone_SetsCookieAndMergesCart(t *testing.T) {
	authSvc := new(mockAuth)
	h := newHarness(t, func(d *Deps) { d.Auth = authSvc })

	// guest fills a cart first
	req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":10,"quantity":3}`))
	req.Header.Set("Content-Type", "application/json")
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	guestCookie := w.Result().Cookies()[0]

	authSvc.On("Verify", mock.Anything, "01000000001", "12345", auth.ActionLogin).Return(&auth.Session{
		Token:     h.token(customerID),
		ExpiresAt: time.Now().Add(time.Hour),
		User:      &user.User{ID: customerID, Phone: "01000000001", Type: role.Customer},
	}, nil)

	req = httptest.NewRequest(http.MethodPost, "/verify-phone",
		strings.NewReader(`{"phone":"01000000001","code":"12345","action":"login"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(guestCookie)
	w = h.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var access *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.AccessTokenCookie {
			access = c
		}
	}
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)

	// the user's cart now holds the guest lines
	req = httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(access)
	w = h.do(req)

	var body struct {
		Data cart.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.ItemCount)
	authSvc.AssertExpectations(t)
}

func TestVerifyPhone_BadCode(t *testing.T) {
	authSvc := new(mockAuth)
	h := newHarness(t, func(d *Deps) { d.Auth = authSvc })
	authSvc.On("Verify", mock.Anything, "01000000001", "00000", auth.ActionLogin).Return(nil, apperr.ErrInvalidOrExpiredCode)

	req := httptest.NewRequest(http.MethodPost, "/verify-phone",
		strings.NewReader(`{"phone":"01000000001","code":"00000","action":"login"}`))
	req.Header.Set("Content-Type", "application/json")
	w := h.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func TestPlaceOrder_FormEncoded(t *testing.T) {
	orders := new(mockOrders)
	h := newHarness(t, func(d *Deps) { d.Orders = orders })

	lat, lng := 30.05, 31.24
	orders.On("Place", mock.Anything, cart.UserKey(customerID), order.PlaceParams{
		UserID:          customerID,
		DeliveryAddress: "12 Nile St",
		Phone:           "01000000001",
		Notes:           "ring twice",
		PaymentMethod:   order.PaymentCash,
		Lat:             &lat,
		Lng:             &lng,
	}).Return(&order.Order{ID: 77, Status: order.StatusPending}, nil)

	form := url.Values{
		"delivery_address": {"12 Nile St"},
		"phone":            {"01000000001"},
		"notes":            {"ring twice"},
		"payment_method":   {"cash"},
		"lat":              {"30.05"},
		"lng":              {"31.24"},
	}
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
	req.Header.Set("Authorization", "Bearer "+h.token(customerID))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := h.do(req)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	orders.AssertExpectations(t)
	assert.Equal(t, uint64(1), h.deps.Metrics.Counter("orders_placed").Load())
}

func TestPlaceOrder_Errors(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		h := newHarness(t, nil)
		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))

		assert.Equal(t, http.StatusUnauthorized, h.do(req).Code)
	})

	t.Run("bad latitude in form", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.Orders = new(mockOrders) })
		req := h.as(customerID, http.MethodPost, "/orders", strings.NewReader("lat=north&delivery_address=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := h.do(req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "must be a number", decodeEnvelope(t, w).Fields["lat"])
	})

	t.Run("empty cart", func(t *testing.T) {
		orders := new(mockOrders)
		h := newHarness(t, func(d *Deps) { d.Orders = orders })
		orders.On("Place", mock.Anything, mock.Anything, mock.Anything).Return(nil, apperr.ErrEmptyCart)

		w := h.do(h.as(customerID, http.MethodPost, "/orders", strings.NewReader(`{"delivery_address":"x","phone":"01000000001"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperr.ErrEmptyCart.Error(), decodeEnvelope(t, w).Error)
	})
}

func TestListMyOrders_Meta(t *testing.T) {
	orders := new(mockOrders)
	h := newHarness(t, func(d *Deps) { d.Orders = orders })

	pending := order.StatusPending
	orders.On("ListMine", mock.Anything, customerID, &pending, 5, 2).
		Return([]order.Order{{ID: 1}, {ID: 2}}, 7, nil)

	w := h.do(h.as(customerID, http.MethodGet, "/orders?status=pending&limit=5&page=2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, Meta{Page: 2, Limit: 5, Total: 7}, *env.Meta)

	t.Run("unknown status", func(t *testing.T) {
		w := h.do(h.as(customerID, http.MethodGet, "/orders?status=lost", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRoleGates(t *testing.T) {
	orders := new(mockOrders)
	h := newHarness(t, func(d *Deps) { d.Orders = orders })
	orders.On("Advance", mock.Anything, ownerID, uint(9), order.StatusPreparing).
		Return(&order.Order{ID: 9, Status: order.StatusPreparing}, nil)

	body := func() io.Reader { return strings.NewReader(`{"status":"preparing"}`) }

	assert.Equal(t, http.StatusForbidden,
		h.do(h.as(customerID, http.MethodPost, "/store/orders/9/status", body())).Code)
	assert.Equal(t, http.StatusOK,
		h.do(h.as(ownerID, http.MethodPost, "/store/orders/9/status", body())).Code)
	assert.Equal(t, http.StatusForbidden,
		h.do(h.as(customerID, http.MethodGet, "/driver/orders/available", nil)).Code)
}

func TestAdminAllowList(t *testing.T) {
	an := new(mockAnalytics)
	h := newHarness(t, func(d *Deps) { d.Analytics = an })
	an.On("Export", mock.Anything, analytics.Range7d, mock.Anything).Return(nil)

	t.Run("admin on the list", func(t *testing.T) {
		w := h.do(h.as(adminID, http.MethodGet, "/admin/analytics/export?range=7d", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="analytics-7d-`)
		assert.Equal(t, "PK-fake-xlsx", w.Body.String())
	})

	t.Run("admin missing from the list", func(t *testing.T) {
		w := h.do(h.as(outsiderID, http.MethodGet, "/admin/analytics/export?range=7d", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("customer", func(t *testing.T) {
		w := h.do(h.as(customerID, http.MethodGet, "/admin/analytics/export", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestInternalNotify(t *testing.T) {
	notes := new(mockNotifications)
	h := newHarness(t, func(d *Deps) { d.Notifications = notes })
	notes.On("Notify", mock.Anything, uint(5), "promo", "Hi", "Free delivery", map[string]any(nil)).Return(nil)

	payload := `{"user_id":5,"type":"promo","title":"Hi","body":"Free delivery"}`

	req := httptest.NewRequest(http.MethodPost, "/internal/notifications", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusForbidden, h.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/internal/notifications", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.InternalKeyHeader, "internal-key")
	assert.Equal(t, http.StatusCreated, h.do(req).Code)

	notes.AssertExpectations(t)
}

func TestClientConfig(t *testing.T) {
	h := newHarness(t, nil)

	w := h.do(httptest.NewRequest(http.MethodGet, "/config/client?emulator=true", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data clientConfig `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "http://10.0.2.2:8080", body.Data.APIBaseURL)
}
