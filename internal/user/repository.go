package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p CreateParams) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByPhone(ctx context.Context, phone string) (*User, error)
	MarkVerified(ctx context.Context, id uint) error
	UpdateProfile(ctx context.Context, p UpdateProfileParams) (*User, error)
	UpdatePassword(ctx context.Context, id uint, hash string) error
	List(ctx context.Context, p ListParams) ([]User, int, error)
	UpdateType(ctx context.Context, id uint, r role.Role) error
	Delete(ctx context.Context, id uint) error

	IsAdminPhone(ctx context.Context, phone string) (bool, error)
	ListAdminAccess(ctx context.Context) ([]AdminAccess, error)
	AddAdminAccess(ctx context.Context, phone, note string) (*AdminAccess, error)
	RemoveAdminAccess(ctx context.Context, phone string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, name, phone, email, password, user_type, is_verified, address, lat, lng,
	governorate_id, city_id, area_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Phone, &u.Email, &u.Password, &u.Type, &u.IsVerified, &u.Address, &u.Lat, &u.Lng,
		&u.GovernorateID, &u.CityID, &u.AreaID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) Create(ctx context.Context, p CreateParams) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.String("phone", p.Phone),
	)

	query := `
		INSERT INTO users (name, phone, email, user_type, is_verified)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query, p.Name, p.Phone, p.Email, p.Type, p.IsVerified))
	if err != nil {
		if db.IsUniqueViolation(err, "users_phone_key") {
			log.Info("phone already registered")
			return nil, fmt.Errorf("%w: phone already registered", apperr.ErrConflict)
		}
		log.Error("failed to insert user", zap.Error(err))
		return nil, err
	}

	log.Info("user created", zap.Uint("user_id", u.ID))
	return u, nil
}

func (r *repository) FindByID(ctx context.Context, id uint) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("failed to fetch user",
			zap.String("layer", "repository"),
			zap.Uint("user_id", id),
			zap.Error(err),
		)
	}
	return u, err
}

func (r *repository) FindByPhone(ctx context.Context, phone string) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	return u, err
}

func (r *repository) MarkVerified(ctx context.Context, id uint) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

// UpdateProfile keeps existing values for nil fields.
func (r *repository) UpdateProfile(ctx context.Context, p UpdateProfileParams) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateProfile"),
		zap.Uint("user_id", p.UserID),
	)

	query := `
		UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			address = COALESCE($4, address),
			lat = COALESCE($5, lat),
			lng = COALESCE($6, lng),
			governorate_id = COALESCE($7, governorate_id),
			city_id = COALESCE($8, city_id),
			area_id = COALESCE($9, area_id),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRowContext(ctx, query,
		p.UserID, p.Name, p.Email, p.Address, p.Lat, p.Lng, p.GovernorateID, p.CityID, p.AreaID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", apperr.ErrNotFound, p.UserID)
	}
	if err != nil {
		log.Error("failed to update profile", zap.Error(err))
		return nil, err
	}

	log.Info("profile updated")
	return u, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	return expectOne(res, id)
}

func (r *repository) List(ctx context.Context, p ListParams) ([]User, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	limit, _, offset := utils.Paginate(p.Limit, p.Page)

	var typeFilter *string
	if p.Type != nil {
		s := p.Type.String()
		typeFilter = &s
	}

	query := `
		SELECT ` + userColumns + `, COUNT(*) OVER() AS total
		FROM users
		WHERE ($1::text IS NULL OR user_type = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR phone LIKE '%' || $2 || '%')
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.db.QueryContext(ctx, query, typeFilter, p.Search, limit, offset)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var (
		users []User
		total int
	)
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Phone, &u.Email, &u.Password, &u.Type, &u.IsVerified, &u.Address, &u.Lat, &u.Lng,
			&u.GovernorateID, &u.CityID, &u.AreaID, &u.CreatedAt, &u.UpdatedAt, &total,
		); err != nil {
			log.Error("failed to scan user", zap.Error(err))
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *repository) UpdateType(ctx context.Context, id uint, t role.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET user_type = $1, updated_at = NOW() WHERE id = $2`, t, id)
	if err != nil {
		return err
	}
	return expectOne(res, id)
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: user %d still has orders or stores", apperr.ErrConflict, id)
		}
		return err
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id uint) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user %d", apperr.ErrNotFound, id)
	}
	return nil
}

// UpgradeTypeTx promotes a customer inside an existing transaction. Users who
// are not customers are left untouched; the returned bool reports whether the
// row changed.
func UpgradeTypeTx(ctx context.Context, tx *sql.Tx, userID uint, to role.Role) (bool, error) {
	if !role.Customer.CanUpgradeTo(to) {
		return false, fmt.Errorf("cannot upgrade customer to %s", to)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET user_type = $1, updated_at = NOW() WHERE id = $2 AND user_type = $3`,
		to, userID, role.Customer)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
