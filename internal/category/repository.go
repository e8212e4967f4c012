package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
	"getir-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context, filter string, includeInactive bool) ([]Category, error)
	GetByID(ctx context.Context, id uint) (*Category, error)
	Create(ctx context.Context, in Input) (*Category, error)
	Update(ctx context.Context, id uint, in Input) (*Category, error)
	Delete(ctx context.Context, id uint) error
	CountProducts(ctx context.Context, id uint) (int, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const categoryColumns = `id, name_ar, name_en, description_ar, description_en, icon, sort_order, is_active`

func scanCategory(row interface{ Scan(...any) error }) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.NameAr, &c.NameEn, &c.DescriptionAr, &c.DescriptionEn, &c.Icon, &c.SortOrder, &c.IsActive)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, filter string, includeInactive bool) ([]Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
		zap.String("filter", filter),
	)

	query := `SELECT ` + categoryColumns + ` FROM categories`

	where := []string{}
	args := []interface{}{}

	if !includeInactive {
		where = append(where, "is_active = TRUE")
	}
	if filter != "" {
		where = append(where, fmt.Sprintf("(name_ar ILIKE $%d OR name_en ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter+"%")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sort_order ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %d", apperr.ErrNotFound, id)
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, in Input) (*Category, error) {
	active := in.IsActive == nil || *in.IsActive
	c, err := scanCategory(r.db.QueryRowContext(ctx, `
		INSERT INTO categories (name_ar, name_en, description_ar, description_en, icon, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+categoryColumns,
		in.NameAr, in.NameEn, in.DescriptionAr, in.DescriptionEn, in.Icon, in.SortOrder, active,
	))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to insert category", zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, id uint, in Input) (*Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, `
		UPDATE categories SET
			name_ar = $2, name_en = $3, description_ar = $4, description_en = $5,
			icon = $6, sort_order = $7, is_active = COALESCE($8, is_active)
		WHERE id = $1
		RETURNING `+categoryColumns,
		id, in.NameAr, in.NameEn, in.DescriptionAr, in.DescriptionEn, in.Icon, in.SortOrder, in.IsActive,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: category %d", apperr.ErrNotFound, id)
	}
	return c, err
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		// a product was added after the service counted
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: category %d has products", apperr.ErrConflict, id)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: category %d", apperr.ErrNotFound, id)
	}
	return nil
}

func (r *repository) CountProducts(ctx context.Context, id uint) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id).Scan(&n)
	return n, err
}
