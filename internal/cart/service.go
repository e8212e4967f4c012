package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/product"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductSource is the read side of the product repository the cart needs.
type ProductSource interface {
	GetByID(ctx context.Context, id uint) (*product.Product, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]product.Product, error)
}

type Service interface {
	Add(ctx context.Context, key string, productID uint, qty int) error
	Update(ctx context.Context, key string, productID uint, qty int) error
	Remove(ctx context.Context, key string, productID uint) error
	Clear(ctx context.Context, key string) error
	View(ctx context.Context, key string) (*View, error)
	// Merge moves a guest cart into a user cart, capping each line at stock.
	Merge(ctx context.Context, fromKey, toKey string) error
}

type service struct {
	store       Store
	products    ProductSource
	deliveryFee decimal.Decimal

	// mu serializes read-modify-write cycles on the store.
	mu sync.Mutex
}

func NewService(store Store, products ProductSource, deliveryFee decimal.Decimal) Service {
	return &service{store: store, products: products, deliveryFee: deliveryFee}
}

func (s *service) loadSellable(ctx context.Context, productID uint) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsAvailable {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnavailable, p.Name)
	}
	return p, nil
}

// Add increases the line by qty. The resulting quantity may not exceed stock.
func (s *service) Add(ctx context.Context, key string, productID uint, qty int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Add"),
		zap.Uint("product_id", productID),
		zap.Int("qty", qty),
	)

	if qty <= 0 {
		return apperr.Invalid("quantity", "must be positive")
	}
	p, err := s.loadSellable(ctx, productID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.Get(key)
	next := items[productID] + qty
	if next > p.StockQuantity {
		log.Info("insufficient stock", zap.Int("in_cart", items[productID]), zap.Int("stock", p.StockQuantity))
		return fmt.Errorf("%w: %s has %d left", apperr.ErrInsufficientStock, p.Name, p.StockQuantity)
	}
	items[productID] = next
	s.store.Set(key, items)

	log.Debug("cart line added", zap.Int("quantity", next))
	return nil
}

// Update replaces the line's quantity; zero removes it.
func (s *service) Update(ctx context.Context, key string, productID uint, qty int) error {
	if qty < 0 {
		return apperr.Invalid("quantity", "must not be negative")
	}
	if qty == 0 {
		return s.Remove(ctx, key, productID)
	}

	p, err := s.loadSellable(ctx, productID)
	if err != nil {
		return err
	}
	if qty > p.StockQuantity {
		return fmt.Errorf("%w: %s has %d left", apperr.ErrInsufficientStock, p.Name, p.StockQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.Get(key)
	items[productID] = qty
	s.store.Set(key, items)
	return nil
}

func (s *service) Remove(_ context.Context, key string, productID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.Get(key)
	delete(items, productID)
	s.store.Set(key, items)
	return nil
}

func (s *service) Clear(_ context.Context, key string) error {
	s.store.Clear(key)
	return nil
}

func (s *service) View(ctx context.Context, key string) (*View, error) {
	items := s.store.Get(key)

	ids := make([]uint, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	v := &View{Lines: []Line{}, Subtotal: decimal.Zero, DeliveryFee: decimal.Zero}
	for _, id := range ids {
		p, ok := found[id]
		if !ok || !p.IsAvailable {
			v.Dropped = append(v.Dropped, id)
			continue
		}
		qty := items[id]
		line := Line{Product: p, Quantity: qty, Subtotal: p.Price.Mul(decimal.NewFromInt(int64(qty))).Round(2)}
		v.Lines = append(v.Lines, line)
		v.ItemCount += qty
		v.Subtotal = v.Subtotal.Add(line.Subtotal)
	}

	if len(v.Dropped) > 0 {
		logger.FromCtx(ctx).Info("cart lines dropped from view", zap.Any("product_ids", v.Dropped))
	}
	if !v.Empty() {
		v.DeliveryFee = s.deliveryFee
	}
	v.Total = v.Subtotal.Add(v.DeliveryFee)
	return v, nil
}

func (s *service) Merge(ctx context.Context, fromKey, toKey string) error {
	if fromKey == toKey {
		return nil
	}
	guest := s.store.Get(fromKey)
	if len(guest) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(guest))
	for id := range guest {
		ids = append(ids, id)
	}
	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.Get(toKey)
	for id, qty := range guest {
		p, ok := found[id]
		if !ok || !p.IsAvailable {
			continue
		}
		items[id] = min(items[id]+qty, p.StockQuantity)
		if items[id] <= 0 {
			delete(items, id)
		}
	}
	s.store.Set(toKey, items)
	s.store.Clear(fromKey)
	return nil
}
