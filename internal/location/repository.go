package location

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
	"getir-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Governorates(ctx context.Context) ([]Governorate, error)
	Cities(ctx context.Context, governorateID uint) ([]City, error)
	Areas(ctx context.Context, cityID uint) ([]Area, error)

	ListByUser(ctx context.Context, userID uint) ([]DeliveryLocation, error)
	GetByID(ctx context.Context, userID, id uint) (*DeliveryLocation, error)
	Create(ctx context.Context, loc *DeliveryLocation) error
	Update(ctx context.Context, loc *DeliveryLocation) error
	Delete(ctx context.Context, userID, id uint) error
	SetDefault(ctx context.Context, userID, id uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Governorates(ctx context.Context) ([]Governorate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name_ar, name_en, sort_order FROM governorates ORDER BY sort_order, name_en`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Governorate{}
	for rows.Next() {
		var g Governorate
		if err := rows.Scan(&g.ID, &g.NameAr, &g.NameEn, &g.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *repository) Cities(ctx context.Context, governorateID uint) ([]City, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, governorate_id, name_ar, name_en FROM cities WHERE governorate_id = $1 ORDER BY name_en`,
		governorateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []City{}
	for rows.Next() {
		var c City
		if err := rows.Scan(&c.ID, &c.GovernorateID, &c.NameAr, &c.NameEn); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Areas(ctx context.Context, cityID uint) ([]Area, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, city_id, name_ar, name_en FROM areas WHERE city_id = $1 ORDER BY name_en`, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Area{}
	for rows.Next() {
		var a Area
		if err := rows.Scan(&a.ID, &a.CityID, &a.NameAr, &a.NameEn); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const locationColumns = `id, user_id, label, address, lat, lng, area_id, is_default, created_at`

func scanLocation(row interface{ Scan(...any) error }) (*DeliveryLocation, error) {
	var l DeliveryLocation
	err := row.Scan(&l.ID, &l.UserID, &l.Label, &l.Address, &l.Lat, &l.Lng, &l.AreaID, &l.IsDefault, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]DeliveryLocation, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListByUser"),
		zap.Uint("user_id", userID),
	)

	rows, err := r.db.QueryContext(ctx, `SELECT `+locationColumns+` FROM delivery_locations
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	out := []DeliveryLocation{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, userID, id uint) (*DeliveryLocation, error) {
	l, err := scanLocation(r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM delivery_locations WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: delivery location %d", apperr.ErrNotFound, id)
	}
	return l, err
}

func clearDefault(ctx context.Context, tx *sql.Tx, userID uint) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE delivery_locations SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID)
	return err
}

// Create makes the location the default when asked to or when it is the
// user's first one.
func (r *repository) Create(ctx context.Context, loc *DeliveryLocation) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM delivery_locations WHERE user_id = $1`, loc.UserID,
		).Scan(&existing); err != nil {
			return err
		}
		if existing == 0 {
			loc.IsDefault = true
		}
		if loc.IsDefault {
			if err := clearDefault(ctx, tx, loc.UserID); err != nil {
				return err
			}
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO delivery_locations (user_id, label, address, lat, lng, area_id, is_default)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`,
			loc.UserID, loc.Label, loc.Address, loc.Lat, loc.Lng, loc.AreaID, loc.IsDefault,
		).Scan(&loc.ID, &loc.CreatedAt)
	})
}

func (r *repository) Update(ctx context.Context, loc *DeliveryLocation) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if loc.IsDefault {
			if err := clearDefault(ctx, tx, loc.UserID); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE delivery_locations
			SET label = $1, address = $2, lat = $3, lng = $4, area_id = $5,
				is_default = is_default OR $6
			WHERE id = $7 AND user_id = $8`,
			loc.Label, loc.Address, loc.Lat, loc.Lng, loc.AreaID, loc.IsDefault, loc.ID, loc.UserID,
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: delivery location %d", apperr.ErrNotFound, loc.ID)
		}
		return nil
	})
}

// Delete removes the location; if it was the default, the newest remaining
// location takes over.
func (r *repository) Delete(ctx context.Context, userID, id uint) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var wasDefault bool
		err := tx.QueryRowContext(ctx,
			`DELETE FROM delivery_locations WHERE id = $1 AND user_id = $2 RETURNING is_default`, id, userID,
		).Scan(&wasDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: delivery location %d", apperr.ErrNotFound, id)
		}
		if err != nil || !wasDefault {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE delivery_locations SET is_default = TRUE
			WHERE id = (SELECT id FROM delivery_locations WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1)`,
			userID)
		return err
	})
}

func (r *repository) SetDefault(ctx context.Context, userID, id uint) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := clearDefault(ctx, tx, userID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE delivery_locations SET is_default = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: delivery location %d", apperr.ErrNotFound, id)
		}
		return nil
	})
}
