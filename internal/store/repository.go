package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/user"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

var ErrCodeTaken = errors.New("store code taken")

type Repository interface {
	List(ctx context.Context, p ListParams) ([]Store, int, error)
	GetByID(ctx context.Context, id uint) (*Store, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]Store, error)
	CreateForOwner(ctx context.Context, ownerID uint, code string, in Input) (*Store, bool, error)
	Update(ctx context.Context, id uint, in Input) (*Store, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const storeColumns = `id, owner_id, store_type_id, name, code, address, lat, lng, opens_at, closes_at,
	delivery_radius_km, delivery_fee, estimated_minutes, is_active, created_at`

func scanStore(row interface{ Scan(...any) error }, extra ...any) (*Store, error) {
	var s Store
	dest := []any{
		&s.ID, &s.OwnerID, &s.StoreTypeID, &s.Name, &s.Code, &s.Address, &s.Lat, &s.Lng, &s.OpensAt, &s.ClosesAt,
		&s.DeliveryRadiusKm, &s.DeliveryFee, &s.EstimatedMinutes, &s.IsActive, &s.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context, p ListParams) ([]Store, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	limit, _, offset := utils.Paginate(p.Limit, p.Page)

	query := `SELECT ` + storeColumns + `, COUNT(*) OVER() FROM stores`
	where := []string{}
	args := []interface{}{}

	if p.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	if p.StoreTypeID != nil {
		args = append(args, *p.StoreTypeID)
		where = append(where, fmt.Sprintf("store_type_id = $%d", len(args)))
	}
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY name ASC, id ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	stores := []Store{}
	total := 0
	for rows.Next() {
		s, err := scanStore(rows, &total)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, 0, err
		}
		stores = append(stores, *s)
	}
	return stores, total, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: store %d", apperr.ErrNotFound, id)
	}
	return s, err
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uint) ([]Store, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+storeColumns+` FROM stores WHERE owner_id = $1 ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := []Store{}
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *s)
	}
	return stores, rows.Err()
}

// CreateForOwner inserts the store and promotes a customer owner to
// store_owner in one transaction. The bool reports whether the owner's type
// changed.
func (r *repository) CreateForOwner(ctx context.Context, ownerID uint, code string, in Input) (*Store, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateForOwner"),
		zap.Uint("owner_id", ownerID),
	)

	var (
		created  *Store
		upgraded bool
	)
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		s, err := scanStore(tx.QueryRowContext(ctx, `
			INSERT INTO stores (owner_id, store_type_id, name, code, address, lat, lng, opens_at, closes_at,
				delivery_radius_km, delivery_fee, estimated_minutes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING `+storeColumns,
			ownerID, in.StoreTypeID, in.Name, code, in.Address, in.Lat, in.Lng, in.OpensAt, in.ClosesAt,
			in.DeliveryRadiusKm, in.DeliveryFee, in.EstimatedMinutes,
		))
		if err != nil {
			if db.IsUniqueViolation(err, "stores_code_key") {
				return ErrCodeTaken
			}
			return err
		}
		created = s

		upgraded, err = user.UpgradeTypeTx(ctx, tx, ownerID, role.StoreOwner)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrCodeTaken) {
			log.Error("store setup failed", zap.Error(err))
		}
		return nil, false, err
	}

	log.Info("store created", zap.Uint("store_id", created.ID), zap.Bool("owner_upgraded", upgraded))
	return created, upgraded, nil
}

func (r *repository) Update(ctx context.Context, id uint, in Input) (*Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, `
		UPDATE stores SET
			store_type_id = $2, name = $3, address = $4, lat = $5, lng = $6, opens_at = $7, closes_at = $8,
			delivery_radius_km = $9, delivery_fee = $10, estimated_minutes = $11
		WHERE id = $1
		RETURNING `+storeColumns,
		id, in.StoreTypeID, in.Name, in.Address, in.Lat, in.Lng, in.OpensAt, in.ClosesAt,
		in.DeliveryRadiusKm, in.DeliveryFee, in.EstimatedMinutes,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: store %d", apperr.ErrNotFound, id)
	}
	return s, err
}

func (r *repository) SetActive(ctx context.Context, id uint, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE stores SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: store %d", apperr.ErrNotFound, id)
	}
	return nil
}
