package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/cart"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/store"
	"getir-be/internal/user"
	"getir-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cart is the part of the cart service checkout consumes.
type Cart interface {
	View(ctx context.Context, key string) (*cart.View, error)
	Clear(ctx context.Context, key string) error
}

type StoreLookup interface {
	Get(ctx context.Context, id uint) (*store.Store, error)
	OwnedBy(ctx context.Context, ownerID uint) (*store.Store, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID uint, kind, title, body string, data map[string]any) error
}

// Actor is the authenticated caller an order operation runs for.
type Actor struct {
	UserID uint
	Role   role.Role
}

type Service interface {
	Place(ctx context.Context, cartKey string, p PlaceParams) (*Order, error)
	Get(ctx context.Context, a Actor, id uint) (*Order, error)

	ListMine(ctx context.Context, userID uint, status *Status, limit, page int) ([]Order, int, error)
	ListForStore(ctx context.Context, ownerID uint, f ListFilter) ([]Order, int, error)
	ListAvailable(ctx context.Context, limit, page int) ([]Order, int, error)
	ListAssigned(ctx context.Context, driverID uint, status *Status, limit, page int) ([]Order, int, error)
	ListAll(ctx context.Context, f ListFilter) ([]Order, int, error)

	// Advance moves an order of the owner's store to preparing or ready.
	Advance(ctx context.Context, ownerID, id uint, next Status) (*Order, error)
	Claim(ctx context.Context, driverID, id uint) (*Order, error)
	Deliver(ctx context.Context, driverID, id uint) (*Order, error)
	Cancel(ctx context.Context, a Actor, id uint) (*Order, error)
}

type service struct {
	repo       Repository
	carts      Cart
	stores     StoreLookup
	notifier   Notifier
	taxPercent decimal.Decimal
}

func NewService(repo Repository, carts Cart, stores StoreLookup, notifier Notifier, taxPercent decimal.Decimal) Service {
	return &service{
		repo:       repo,
		carts:      carts,
		stores:     stores,
		notifier:   notifier,
		taxPercent: taxPercent,
	}
}

func validatePlace(p *PlaceParams) error {
	var v apperr.Validation

	p.DeliveryAddress = strings.TrimSpace(p.DeliveryAddress)
	p.Notes = strings.TrimSpace(p.Notes)
	p.Phone = utils.NormalizePhone(p.Phone)
	if p.PaymentMethod == "" {
		p.PaymentMethod = PaymentCash
	}

	v.Check(p.DeliveryAddress != "", "delivery_address", "required")
	v.Check(len(p.DeliveryAddress) <= 500, "delivery_address", "too long")
	v.Check(p.Phone != "", "phone", "required")
	v.Check(user.ValidPhone(p.Phone), "phone", "invalid")
	v.Check(p.PaymentMethod.Valid(), "payment_method", "must be cash or card")
	v.Check((p.Lat == nil) == (p.Lng == nil), "lat", "lat and lng go together")
	if p.Lat != nil {
		v.Check(*p.Lat >= -90 && *p.Lat <= 90, "lat", "out of range")
	}
	if p.Lng != nil {
		v.Check(*p.Lng >= -180 && *p.Lng <= 180, "lng", "out of range")
	}
	return v.Err()
}

// singleStore returns the store every line belongs to. Catalog products with
// no store count as their own group.
func singleStore(lines []cart.Line) (*uint, error) {
	var (
		first *uint
		seen  bool
	)
	for _, l := range lines {
		sid := l.Product.StoreID
		if !seen {
			first, seen = sid, true
			continue
		}
		if (first == nil) != (sid == nil) || (first != nil && *first != *sid) {
			return nil, apperr.Invalid("cart", "items from more than one store")
		}
	}
	return first, nil
}

func (s *service) Place(ctx context.Context, cartKey string, p PlaceParams) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Place"),
		zap.Uint("user_id", p.UserID),
	)

	if err := validatePlace(&p); err != nil {
		return nil, err
	}

	view, err := s.carts.View(ctx, cartKey)
	if err != nil {
		return nil, err
	}
	if view.Empty() {
		return nil, apperr.ErrEmptyCart
	}

	storeID, err := singleStore(view.Lines)
	if err != nil {
		return nil, err
	}
	var st *store.Store
	if storeID != nil {
		st, err = s.stores.Get(ctx, *storeID)
		if err != nil {
			return nil, err
		}
		if !st.IsActive {
			return nil, fmt.Errorf("%w: store %s is not accepting orders", apperr.ErrUnavailable, st.Name)
		}
	}

	totals := ComputeTotals(view.Subtotal, view.DeliveryFee, s.taxPercent, decimal.Zero)
	o := &Order{
		UserID:          p.UserID,
		StoreID:         storeID,
		Status:          StatusPending,
		PaymentMethod:   p.PaymentMethod,
		PaymentStatus:   PaymentPending,
		Subtotal:        totals.Subtotal,
		DeliveryFee:     totals.Fee,
		TaxAmount:       totals.Tax,
		DiscountAmount:  totals.Discount,
		TotalAmount:     totals.Total,
		DeliveryAddress: p.DeliveryAddress,
		DeliveryLat:     p.Lat,
		DeliveryLng:     p.Lng,
		Phone:           p.Phone,
		Notes:           p.Notes,
	}
	for _, l := range view.Lines {
		o.Items = append(o.Items, Item{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price,
			Subtotal:    l.Subtotal,
		})
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, cartKey); err != nil {
		log.Warn("failed to clear cart after checkout", zap.Error(err))
	}

	s.notifyStatus(ctx, o)
	if st != nil {
		s.notify(ctx, st.OwnerID, "new_order", "New order",
			fmt.Sprintf("Order #%d is waiting for you.", o.ID), o)
	}

	log.Info("order placed",
		zap.Uint("order_id", o.ID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return o, nil
}

var statusMessages = map[Status][2]string{
	StatusPending:        {"Order placed", "Your order #%d has been placed."},
	StatusPreparing:      {"Preparing your order", "The store is preparing order #%d."},
	StatusReady:          {"Order ready", "Order #%d is ready and waiting for a driver."},
	StatusOutForDelivery: {"On the way", "Order #%d is out for delivery."},
	StatusDelivered:      {"Delivered", "Order #%d has been delivered. Enjoy!"},
	StatusCancelled:      {"Order cancelled", "Order #%d has been cancelled."},
}

func (s *service) notifyStatus(ctx context.Context, o *Order) {
	msg, ok := statusMessages[o.Status]
	if !ok {
		return
	}
	s.notify(ctx, o.UserID, "order_status", msg[0], fmt.Sprintf(msg[1], o.ID), o)
}

// notify never fails the calling operation; the order change is already committed.
func (s *service) notify(ctx context.Context, userID uint, kind, title, body string, o *Order) {
	if s.notifier == nil {
		return
	}
	data := map[string]any{"order_id": o.ID, "status": string(o.Status)}
	if err := s.notifier.Notify(ctx, userID, kind, title, body, data); err != nil {
		logger.FromCtx(ctx).Warn("failed to write notification",
			zap.Uint("order_id", o.ID),
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
	}
}

// ownsStore reports whether o belongs to the store run by ownerID.
func (s *service) ownsStore(ctx context.Context, ownerID uint, o *Order) (bool, error) {
	if o.StoreID == nil {
		return false, nil
	}
	st, err := s.stores.OwnedBy(ctx, ownerID)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return st.ID == *o.StoreID, nil
}

func (s *service) visible(ctx context.Context, a Actor, o *Order) (bool, error) {
	if o.UserID == a.UserID {
		return true, nil
	}
	switch a.Role {
	case role.Admin:
		return true, nil
	case role.StoreOwner:
		return s.ownsStore(ctx, a.UserID, o)
	case role.Driver:
		if o.DeliveryDriverID != nil {
			return *o.DeliveryDriverID == a.UserID, nil
		}
		return o.Status == StatusReady, nil
	case role.Customer:
		return false, nil
	}
	return false, nil
}

// Get hides orders the actor may not see behind ErrNotFound.
func (s *service) Get(ctx context.Context, a Actor, id uint) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.visible(ctx, a, o)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id)
	}
	return o, nil
}

func (s *service) ListMine(ctx context.Context, userID uint, status *Status, limit, page int) ([]Order, int, error) {
	return s.repo.List(ctx, ListFilter{
		UserID: &userID, Status: status, Sort: SortCreatedAt, Desc: true, Limit: limit, Page: page,
	})
}

func (s *service) ListForStore(ctx context.Context, ownerID uint, f ListFilter) ([]Order, int, error) {
	st, err := s.stores.OwnedBy(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	f.StoreID = &st.ID
	f.UserID, f.DriverID = nil, nil
	return s.repo.List(ctx, f)
}

func (s *service) ListAvailable(ctx context.Context, limit, page int) ([]Order, int, error) {
	ready := StatusReady
	return s.repo.List(ctx, ListFilter{
		Status: &ready, Unassigned: true, Sort: SortCreatedAt, Limit: limit, Page: page,
	})
}

func (s *service) ListAssigned(ctx context.Context, driverID uint, status *Status, limit, page int) ([]Order, int, error) {
	return s.repo.List(ctx, ListFilter{
		DriverID: &driverID, Status: status, Sort: SortCreatedAt, Desc: true, Limit: limit, Page: page,
	})
}

func (s *service) ListAll(ctx context.Context, f ListFilter) ([]Order, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	return s.repo.List(ctx, f)
}

// changed reloads the order after a committed transition and tells the customer.
func (s *service) changed(ctx context.Context, id uint) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifyStatus(ctx, o)
	return o, nil
}

func (s *service) Advance(ctx context.Context, ownerID, id uint, next Status) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Advance"),
		zap.Uint("order_id", id),
		zap.String("next", string(next)),
	)

	if next != StatusPreparing && next != StatusReady {
		return nil, apperr.Invalid("status", "must be preparing or ready")
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.ownsStore(ctx, ownerID, o)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id)
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: cannot move order from %s to %s", apperr.ErrConflict, o.Status, next)
	}

	if err := s.repo.UpdateStatus(ctx, id, o.Status, next); err != nil {
		log.Warn("transition lost", zap.Error(err))
		return nil, err
	}

	log.Info("order advanced", zap.String("from", string(o.Status)))
	return s.changed(ctx, id)
}

func (s *service) Claim(ctx context.Context, driverID, id uint) (*Order, error) {
	if err := s.repo.Claim(ctx, id, driverID); err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("order claimed", zap.Uint("order_id", id), zap.Uint("driver_id", driverID))
	return s.changed(ctx, id)
}

func (s *service) Deliver(ctx context.Context, driverID, id uint) (*Order, error) {
	if err := s.repo.Deliver(ctx, id, driverID); err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("order delivered", zap.Uint("order_id", id), zap.Uint("driver_id", driverID))
	return s.changed(ctx, id)
}

// cancellableFrom lists the states the actor may cancel o from, or nil when
// the actor has no cancel right on it at all.
func (s *service) cancellableFrom(ctx context.Context, a Actor, o *Order) ([]Status, error) {
	switch a.Role {
	case role.Admin:
		return sourcesOf(StatusCancelled), nil
	case role.StoreOwner:
		ok, err := s.ownsStore(ctx, a.UserID, o)
		if err != nil {
			return nil, err
		}
		if ok {
			return sourcesOf(StatusCancelled), nil
		}
	case role.Customer, role.Driver:
	}
	if o.UserID == a.UserID {
		return []Status{StatusPending}, nil
	}
	return nil, nil
}

func (s *service) Cancel(ctx context.Context, a Actor, id uint) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Cancel"),
		zap.Uint("order_id", id),
		zap.String("role", a.Role.String()),
	)

	o, err := s.Get(ctx, a, id)
	if err != nil {
		return nil, err
	}

	from, err := s.cancellableFrom(ctx, a, o)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, fmt.Errorf("%w: cannot cancel order %d", apperr.ErrForbidden, id)
	}

	allowed := false
	for _, st := range from {
		allowed = allowed || st == o.Status
	}
	if !allowed {
		return nil, fmt.Errorf("%w: order %d is %s", apperr.ErrConflict, id, o.Status)
	}

	if err := s.repo.Cancel(ctx, id, from); err != nil {
		return nil, err
	}

	log.Info("order cancelled", zap.String("from", string(o.Status)))
	return s.changed(ctx, id)
}
