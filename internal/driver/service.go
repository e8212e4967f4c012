package driver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/role"

	"go.uber.org/zap"
)

type Service interface {
	Submit(ctx context.Context, userID uint, userRole role.Role, in Input) (*Application, error)
	Mine(ctx context.Context, userID uint) ([]Application, error)
	List(ctx context.Context, status *Status, limit, page int) ([]Application, int, error)
	Approve(ctx context.Context, id, reviewerID uint, notes string) (*Application, error)
	Reject(ctx context.Context, id, reviewerID uint, notes string) (*Application, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validate(in *Input) error {
	in.PersonalPhotoURL = strings.TrimSpace(in.PersonalPhotoURL)
	in.IDPhotoURL = strings.TrimSpace(in.IDPhotoURL)
	in.VehiclePhotoURL = strings.TrimSpace(in.VehiclePhotoURL)
	in.VehicleType = strings.ToLower(strings.TrimSpace(in.VehicleType))
	if in.VehicleType == "" {
		in.VehicleType = "motorcycle"
	}

	var v apperr.Validation
	v.Check(validURL(in.PersonalPhotoURL), "personal_photo_url", "must be a url")
	v.Check(validURL(in.IDPhotoURL), "id_photo_url", "must be a url")
	v.Check(validURL(in.VehiclePhotoURL), "vehicle_photo_url", "must be a url")
	v.Check(vehicleTypes[in.VehicleType], "vehicle_type", "must be motorcycle, bicycle or car")
	return v.Err()
}

// Submit files an application. Only customers may apply.
func (s *service) Submit(ctx context.Context, userID uint, userRole role.Role, in Input) (*Application, error) {
	switch userRole {
	case role.Customer:
	case role.Driver:
		return nil, fmt.Errorf("%w: already a driver", apperr.ErrConflict)
	case role.StoreOwner, role.Admin:
		return nil, fmt.Errorf("%w: only customers can apply to drive", apperr.ErrForbidden)
	default:
		return nil, apperr.ErrForbidden
	}

	if err := validate(&in); err != nil {
		return nil, err
	}

	a, err := s.repo.Create(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	logger.FromCtx(ctx).Info("driver application submitted",
		zap.Uint("application_id", a.ID),
		zap.Uint("user_id", userID),
	)
	return a, nil
}

func (s *service) Mine(ctx context.Context, userID uint) ([]Application, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) List(ctx context.Context, status *Status, limit, page int) ([]Application, int, error) {
	if status != nil && !status.Valid() {
		return nil, 0, apperr.Invalid("status", "unknown status")
	}
	return s.repo.List(ctx, status, limit, page)
}

func (s *service) Approve(ctx context.Context, id, reviewerID uint, notes string) (*Application, error) {
	if err := s.repo.Approve(ctx, id, reviewerID, strings.TrimSpace(notes)); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) Reject(ctx context.Context, id, reviewerID uint, notes string) (*Application, error) {
	if err := s.repo.Reject(ctx, id, reviewerID, strings.TrimSpace(notes)); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
