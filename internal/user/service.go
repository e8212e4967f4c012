package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	GetByID(ctx context.Context, id uint) (*User, error)
	UpdateProfile(ctx context.Context, p UpdateProfileParams) (*User, error)
	ChangePassword(ctx context.Context, userID uint, current, next string) error

	List(ctx context.Context, p ListParams) ([]User, int, error)
	Create(ctx context.Context, p CreateParams) (*User, error)
	UpdateType(ctx context.Context, actorID, targetID uint, t role.Role) error
	Delete(ctx context.Context, actorID, targetID uint) error

	IsAdminAllowed(ctx context.Context, phone string) (bool, error)
	ListAdminAccess(ctx context.Context) ([]AdminAccess, error)
	GrantAdminAccess(ctx context.Context, phone, note string) (*AdminAccess, error)
	RevokeAdminAccess(ctx context.Context, phone string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ValidPhone accepts normalized phones of 8 to 15 digits.
func ValidPhone(phone string) bool {
	return len(phone) >= 8 && len(phone) <= 15 && utils.NormalizePhone(phone) == phone
}

func (s *service) GetByID(ctx context.Context, id uint) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, p UpdateProfileParams) (*User, error) {
	var v apperr.Validation
	if p.Name != nil {
		trimmed := strings.TrimSpace(*p.Name)
		p.Name = &trimmed
		v.Check(trimmed != "", "name", "required")
	}
	if p.Email != nil && *p.Email != "" {
		_, err := mail.ParseAddress(*p.Email)
		v.Check(err == nil, "email", "invalid")
	}
	if p.Lat != nil {
		v.Check(*p.Lat >= -90 && *p.Lat <= 90, "lat", "out of range")
	}
	if p.Lng != nil {
		v.Check(*p.Lng >= -180 && *p.Lng <= 180, "lng", "out of range")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return s.repo.UpdateProfile(ctx, p)
}

// ChangePassword sets a new password. Accounts that already have one must
// present it.
func (s *service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ChangePassword"),
		zap.Uint("user_id", userID),
	)

	if len(next) < MinPasswordLength {
		return apperr.Invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.HasPassword() && !CheckPasswordHash(current, *u.Password) {
		log.Info("current password mismatch")
		return apperr.Invalid("current_password", "incorrect")
	}

	hash, err := HashPassword(next)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		log.Error("failed to update password", zap.Error(err))
		return err
	}

	log.Info("password changed")
	return nil
}

func (s *service) List(ctx context.Context, p ListParams) ([]User, int, error) {
	p.Search = strings.TrimSpace(p.Search)
	return s.repo.List(ctx, p)
}

// Create is the admin path: accounts are created verified with the requested type.
func (s *service) Create(ctx context.Context, p CreateParams) (*User, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Phone = utils.NormalizePhone(p.Phone)
	if p.Type == "" {
		p.Type = role.Customer
	}

	var v apperr.Validation
	v.Check(p.Name != "", "name", "required")
	v.Check(ValidPhone(p.Phone), "phone", "invalid")
	v.Check(p.Type.Valid(), "user_type", "invalid")
	if err := v.Err(); err != nil {
		return nil, err
	}

	p.IsVerified = true
	return s.repo.Create(ctx, p)
}

func (s *service) UpdateType(ctx context.Context, actorID, targetID uint, t role.Role) error {
	if !t.Valid() {
		return apperr.Invalid("user_type", "invalid")
	}
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if err := guardAdmin(actorID, target); err != nil {
		return err
	}
	if target.Type == t {
		return nil
	}

	logger.FromCtx(ctx).Info("changing user type",
		zap.Uint("actor_id", actorID),
		zap.Uint("user_id", targetID),
		zap.String("from", target.Type.String()),
		zap.String("to", t.String()),
	)
	return s.repo.UpdateType(ctx, targetID, t)
}

func (s *service) Delete(ctx context.Context, actorID, targetID uint) error {
	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	if err := guardAdmin(actorID, target); err != nil {
		return err
	}
	return s.repo.Delete(ctx, targetID)
}

// guardAdmin protects admin accounts, including the acting admin's own.
func guardAdmin(actorID uint, target *User) error {
	if actorID == target.ID {
		return fmt.Errorf("%w: cannot modify your own account", apperr.ErrForbidden)
	}
	switch target.Type {
	case role.Admin:
		return fmt.Errorf("%w: admin accounts are protected", apperr.ErrForbidden)
	case role.Customer, role.StoreOwner, role.Driver:
		return nil
	}
	return nil
}

func (s *service) IsAdminAllowed(ctx context.Context, phone string) (bool, error) {
	return s.repo.IsAdminPhone(ctx, utils.NormalizePhone(phone))
}

func (s *service) ListAdminAccess(ctx context.Context) ([]AdminAccess, error) {
	return s.repo.ListAdminAccess(ctx)
}

func (s *service) GrantAdminAccess(ctx context.Context, phone, note string) (*AdminAccess, error) {
	phone = utils.NormalizePhone(phone)
	if !ValidPhone(phone) {
		return nil, apperr.Invalid("phone", "invalid")
	}
	return s.repo.AddAdminAccess(ctx, phone, strings.TrimSpace(note))
}

func (s *service) RevokeAdminAccess(ctx context.Context, phone string) error {
	return s.repo.RemoveAdminAccess(ctx, utils.NormalizePhone(phone))
}
