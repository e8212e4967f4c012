package location

import (
	"context"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

// Service reads the caller from the request context for every saved-location
// operation.
type Service interface {
	Governorates(ctx context.Context) ([]Governorate, error)
	Cities(ctx context.Context, governorateID uint) ([]City, error)
	Areas(ctx context.Context, cityID uint) ([]Area, error)

	List(ctx context.Context) ([]DeliveryLocation, error)
	Get(ctx context.Context, id uint) (*DeliveryLocation, error)
	Create(ctx context.Context, in Input) (*DeliveryLocation, error)
	Update(ctx context.Context, id uint, in Input) (*DeliveryLocation, error)
	Delete(ctx context.Context, id uint) error
	SetDefault(ctx context.Context, id uint) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func caller(ctx context.Context) (uint, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return 0, apperr.ErrUnauthorized
	}
	return userID, nil
}

func validate(in *Input) error {
	in.Label = strings.TrimSpace(in.Label)
	in.Address = strings.TrimSpace(in.Address)
	if in.Label == "" {
		in.Label = "Home"
	}

	var v apperr.Validation
	v.Check(in.Address != "", "address", "required")
	v.Check(len(in.Label) <= 50, "label", "too long")
	v.Check((in.Lat == nil) == (in.Lng == nil), "lat", "lat and lng go together")
	if in.Lat != nil {
		v.Check(*in.Lat >= -90 && *in.Lat <= 90, "lat", "out of range")
	}
	if in.Lng != nil {
		v.Check(*in.Lng >= -180 && *in.Lng <= 180, "lng", "out of range")
	}
	return v.Err()
}

func (s *service) Governorates(ctx context.Context) ([]Governorate, error) {
	return s.repo.Governorates(ctx)
}

func (s *service) Cities(ctx context.Context, governorateID uint) ([]City, error) {
	return s.repo.Cities(ctx, governorateID)
}

func (s *service) Areas(ctx context.Context, cityID uint) ([]Area, error) {
	return s.repo.Areas(ctx, cityID)
}

func (s *service) List(ctx context.Context) ([]DeliveryLocation, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, id uint) (*DeliveryLocation, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID, id)
}

func (s *service) Create(ctx context.Context, in Input) (*DeliveryLocation, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}

	loc := &DeliveryLocation{
		UserID:    userID,
		Label:     in.Label,
		Address:   in.Address,
		Lat:       in.Lat,
		Lng:       in.Lng,
		AreaID:    in.AreaID,
		IsDefault: in.SetAsDefault,
	}
	if err := s.repo.Create(ctx, loc); err != nil {
		logger.FromCtx(ctx).Error("failed to create delivery location", zap.Error(err))
		return nil, err
	}

	logger.FromCtx(ctx).Info("delivery location created",
		zap.Uint("location_id", loc.ID),
		zap.Bool("default", loc.IsDefault),
	)
	return loc, nil
}

func (s *service) Update(ctx context.Context, id uint, in Input) (*DeliveryLocation, error) {
	userID, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validate(&in); err != nil {
		return nil, err
	}

	loc := &DeliveryLocation{
		ID:        id,
		UserID:    userID,
		Label:     in.Label,
		Address:   in.Address,
		Lat:       in.Lat,
		Lng:       in.Lng,
		AreaID:    in.AreaID,
		IsDefault: in.SetAsDefault,
	}
	if err := s.repo.Update(ctx, loc); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID, id)
}

func (s *service) Delete(ctx context.Context, id uint) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, id)
}

func (s *service) SetDefault(ctx context.Context, id uint) error {
	userID, err := caller(ctx)
	if err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("setting default delivery location",
		zap.Uint("user_id", userID),
		zap.Uint("location_id", id),
	)
	return s.repo.SetDefault(ctx, userID, id)
}
