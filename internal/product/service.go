package product

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"

	"go.uber.org/zap"
)

const (
	relatedSameCategory  = 2
	relatedFeatured      = 1
	relatedOtherCategory = 1

	DefaultLowStockThreshold = 5
)

type Service interface {
	List(ctx context.Context, p ListParams) ([]Product, int, error)
	Get(ctx context.Context, id uint) (*Product, error)
	Detail(ctx context.Context, id uint) (*Detail, error)
	Related(ctx context.Context, p *Product) ([]Product, error)

	// storeID scopes writes to one store; nil means an admin acting on any product.
	Create(ctx context.Context, storeID *uint, in Input) (*Product, error)
	Update(ctx context.Context, storeID *uint, id uint, in Input) (*Product, error)
	SetStock(ctx context.Context, storeID *uint, id uint, qty int) error
	Delete(ctx context.Context, storeID *uint, id uint) error
	LowStock(ctx context.Context, storeID uint, threshold int) ([]Product, error)
}

type service struct {
	repo Repository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService wires the product service. A nil rng gets a time-seeded source.
func NewService(repo Repository, rng *rand.Rand) Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &service{repo: repo, rng: rng}
}

func validate(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Unit == "" {
		in.Unit = "piece"
	}
	in.Price = in.Price.Round(2)

	var v apperr.Validation
	v.Check(in.Name != "", "name", "required")
	v.Check(in.CategoryID != 0, "category_id", "required")
	v.Check(in.Price.IsPositive(), "price", "must be greater than zero")
	v.Check(in.StockQuantity >= 0, "stock_quantity", "must not be negative")
	return v.Err()
}

func (s *service) List(ctx context.Context, p ListParams) ([]Product, int, error) {
	p.Search = strings.TrimSpace(p.Search)
	return s.repo.List(ctx, p)
}

func (s *service) Get(ctx context.Context, id uint) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Detail(ctx context.Context, id uint) (*Detail, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	related, err := s.Related(ctx, p)
	if err != nil {
		return nil, err
	}
	return &Detail{Product: *p, Related: related}, nil
}

// Related picks up to two available products from the same category, then
// one featured and one non-featured product from other categories. Short
// candidate lists yield fewer suggestions.
func (s *service) Related(ctx context.Context, p *Product) ([]Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Related"),
		zap.Uint("product_id", p.ID),
	)

	same, err := s.repo.SameCategory(ctx, p.CategoryID, p.ID)
	if err != nil {
		log.Error("failed to load same-category candidates", zap.Error(err))
		return nil, err
	}
	featured, err := s.repo.OtherCategories(ctx, p.CategoryID, true)
	if err != nil {
		log.Error("failed to load featured candidates", zap.Error(err))
		return nil, err
	}
	plain, err := s.repo.OtherCategories(ctx, p.CategoryID, false)
	if err != nil {
		log.Error("failed to load other-category candidates", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	related := make([]Product, 0, relatedSameCategory+relatedFeatured+relatedOtherCategory)
	related = append(related, pickRandom(s.rng, same, relatedSameCategory)...)
	related = append(related, pickRandom(s.rng, featured, relatedFeatured)...)
	related = append(related, pickRandom(s.rng, plain, relatedOtherCategory)...)
	return related, nil
}

// pickRandom returns up to n distinct elements of candidates in random order.
func pickRandom(rng *rand.Rand, candidates []Product, n int) []Product {
	if n <= 0 || len(candidates) == 0 {
		return nil
	}
	idx := rng.Perm(len(candidates))
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]Product, 0, n)
	for _, i := range idx[:n] {
		out = append(out, candidates[i])
	}
	return out
}

// authorize loads the product and checks it belongs to storeID when set.
func (s *service) authorize(ctx context.Context, storeID *uint, id uint) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if storeID != nil && (p.StoreID == nil || *p.StoreID != *storeID) {
		return nil, fmt.Errorf("%w: product %d belongs to another store", apperr.ErrForbidden, id)
	}
	return p, nil
}

func (s *service) Create(ctx context.Context, storeID *uint, in Input) (*Product, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	p, err := s.repo.Create(ctx, storeID, in)
	if err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("product created", zap.Uint("product_id", p.ID))
	return p, nil
}

func (s *service) Update(ctx context.Context, storeID *uint, id uint, in Input) (*Product, error) {
	if _, err := s.authorize(ctx, storeID, id); err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *service) SetStock(ctx context.Context, storeID *uint, id uint, qty int) error {
	if qty < 0 {
		return apperr.Invalid("stock_quantity", "must not be negative")
	}
	if _, err := s.authorize(ctx, storeID, id); err != nil {
		return err
	}
	return s.repo.SetStock(ctx, id, qty)
}

func (s *service) Delete(ctx context.Context, storeID *uint, id uint) error {
	if _, err := s.authorize(ctx, storeID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) LowStock(ctx context.Context, storeID uint, threshold int) ([]Product, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.repo.LowStock(ctx, storeID, threshold)
}
