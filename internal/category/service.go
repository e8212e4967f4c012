package category

import (
	"context"
	"fmt"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context, filter string, includeInactive bool) ([]Category, error)
	Get(ctx context.Context, id uint) (*Category, error)
	Create(ctx context.Context, in Input) (*Category, error)
	Update(ctx context.Context, id uint, in Input) (*Category, error)
	Delete(ctx context.Context, id uint) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func validate(in *Input) error {
	in.NameAr = strings.TrimSpace(in.NameAr)
	in.NameEn = strings.TrimSpace(in.NameEn)

	var v apperr.Validation
	v.Check(in.NameAr != "", "name_ar", "required")
	v.Check(in.NameEn != "", "name_en", "required")
	v.Check(in.SortOrder >= 0, "sort_order", "must not be negative")
	return v.Err()
}

func (s *service) List(ctx context.Context, filter string, includeInactive bool) ([]Category, error) {
	return s.repo.List(ctx, strings.TrimSpace(filter), includeInactive)
}

func (s *service) Get(ctx context.Context, id uint) (*Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, in Input) (*Category, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("category created", zap.Uint("category_id", c.ID))
	return c, nil
}

func (s *service) Update(ctx context.Context, id uint, in Input) (*Category, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

// Delete refuses while any product still references the category.
func (s *service) Delete(ctx context.Context, id uint) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Delete"),
		zap.Uint("category_id", id),
	)

	n, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		log.Error("failed to count products", zap.Error(err))
		return err
	}
	if n > 0 {
		log.Info("category still in use", zap.Int("products", n))
		return fmt.Errorf("%w: category has %d products", apperr.ErrConflict, n)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info("category deleted")
	return nil
}
