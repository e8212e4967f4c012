package storetype

import (
	"context"
	"strings"

	"getir-be/internal/apperr"
)

type Service interface {
	List(ctx context.Context, includeInactive bool) ([]StoreType, error)
	Get(ctx context.Context, id uint) (*StoreType, error)
	Create(ctx context.Context, in Input) (*StoreType, error)
	Update(ctx context.Context, id uint, in Input) (*StoreType, error)
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
	return v.Err()
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]StoreType, error) {
	return s.repo.List(ctx, includeInactive)
}

func (s *service) Get(ctx context.Context, id uint) (*StoreType, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, in Input) (*StoreType, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, in)
}

func (s *service) Update(ctx context.Context, id uint, in Input) (*StoreType, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}
