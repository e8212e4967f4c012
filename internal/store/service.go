package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

const codeAttempts = 3

type Service interface {
	List(ctx context.Context, p ListParams) ([]Store, int, error)
	Get(ctx context.Context, id uint) (*Store, error)
	// OwnedBy returns the owner's first store, which is the one the store
	// dashboard manages.
	OwnedBy(ctx context.Context, ownerID uint) (*Store, error)
	Setup(ctx context.Context, ownerID uint, ownerRole role.Role, in Input) (*Store, error)
	Update(ctx context.Context, ownerID, storeID uint, in Input) (*Store, error)
	ToggleActive(ctx context.Context, storeID uint) (*Store, error)
}

type service struct {
	repo    Repository
	newCode func(name string) string
}

func NewService(repo Repository) Service {
	return &service{repo: repo, newCode: utils.StoreCode}
}

func normalize(in *Input) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.OpensAt == "" {
		in.OpensAt = "09:00"
	}
	if in.ClosesAt == "" {
		in.ClosesAt = "23:00"
	}
	if in.EstimatedMinutes == 0 {
		in.EstimatedMinutes = 30
	}

	var v apperr.Validation
	v.Check(in.Name != "", "name", "required")
	v.Check(in.Address != "", "address", "required")
	_, err := time.Parse(hourLayout, in.OpensAt)
	v.Check(err == nil, "opens_at", "must be HH:MM")
	_, err = time.Parse(hourLayout, in.ClosesAt)
	v.Check(err == nil, "closes_at", "must be HH:MM")
	v.Check(!in.DeliveryFee.IsNegative(), "delivery_fee", "must not be negative")
	v.Check(!in.DeliveryRadiusKm.IsNegative(), "delivery_radius_km", "must not be negative")
	v.Check(in.EstimatedMinutes > 0, "estimated_minutes", "must be positive")
	return v.Err()
}

func (s *service) List(ctx context.Context, p ListParams) ([]Store, int, error) {
	p.Search = strings.TrimSpace(p.Search)
	return s.repo.List(ctx, p)
}

func (s *service) Get(ctx context.Context, id uint) (*Store, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) OwnedBy(ctx context.Context, ownerID uint) (*Store, error) {
	stores, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("%w: no store for owner %d", apperr.ErrNotFound, ownerID)
	}
	return &stores[0], nil
}

// Setup creates a store for a customer or an existing store owner.
func (s *service) Setup(ctx context.Context, ownerID uint, ownerRole role.Role, in Input) (*Store, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Setup"),
		zap.Uint("owner_id", ownerID),
	)

	switch ownerRole {
	case role.Customer, role.StoreOwner:
	case role.Driver, role.Admin:
		return nil, fmt.Errorf("%w: %s accounts cannot open a store", apperr.ErrForbidden, ownerRole)
	default:
		return nil, apperr.ErrUnauthorized
	}

	if err := normalize(&in); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		st, upgraded, err := s.repo.CreateForOwner(ctx, ownerID, s.newCode(in.Name), in)
		if errors.Is(err, ErrCodeTaken) {
			log.Warn("store code collision, retrying", zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		if upgraded {
			log.Info("owner promoted to store_owner")
		}
		return st, nil
	}
	return nil, fmt.Errorf("%w: could not allocate a store code", apperr.ErrConflict)
}

func (s *service) Update(ctx context.Context, ownerID, storeID uint, in Input) (*Store, error) {
	existing, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: store %d belongs to another owner", apperr.ErrForbidden, storeID)
	}
	if err := normalize(&in); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, storeID, in)
}

func (s *service) ToggleActive(ctx context.Context, storeID uint) (*Store, error) {
	st, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, storeID, !st.IsActive); err != nil {
		return nil, err
	}
	st.IsActive = !st.IsActive

	logger.FromCtx(ctx).Info("store active flag toggled",
		zap.Uint("store_id", storeID),
		zap.Bool("is_active", st.IsActive),
	)
	return st, nil
}
