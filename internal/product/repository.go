package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
	"getir-be/internal/logger"
	"getir-be/internal/utils"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// candidateLimit bounds how many rows the related-products heuristic draws from.
const candidateLimit = 50

type Repository interface {
	List(ctx context.Context, p ListParams) ([]Product, int, error)
	GetByID(ctx context.Context, id uint) (*Product, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]Product, error)
	Create(ctx context.Context, storeID *uint, in Input) (*Product, error)
	Update(ctx context.Context, id uint, in Input) (*Product, error)
	SetStock(ctx context.Context, id uint, qty int) error
	Delete(ctx context.Context, id uint) error

	SameCategory(ctx context.Context, categoryID, excludeID uint) ([]Product, error)
	OtherCategories(ctx context.Context, categoryID uint, featured bool) ([]Product, error)
	LowStock(ctx context.Context, storeID uint, threshold int) ([]Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, category_id, store_id, name, description, price, unit, stock_quantity, is_available,
	is_featured, sales_count, weight, brand, sort_order, image_url, created_at`

func scanProduct(row interface{ Scan(...any) error }, extra ...any) (*Product, error) {
	var p Product
	dest := []any{
		&p.ID, &p.CategoryID, &p.StoreID, &p.Name, &p.Description, &p.Price, &p.Unit, &p.StockQuantity, &p.IsAvailable,
		&p.IsFeatured, &p.SalesCount, &p.Weight, &p.Brand, &p.SortOrder, &p.ImageURL, &p.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func orderClause(s Sort) string {
	switch s {
	case SortNewest:
		return "created_at DESC, id DESC"
	case SortPriceAsc:
		return "price ASC, id ASC"
	case SortPriceDesc:
		return "price DESC, id ASC"
	case SortPopular:
		return "sales_count DESC, id ASC"
	default:
		return "sort_order ASC, id ASC"
	}
}

func (r *repository) List(ctx context.Context, p ListParams) ([]Product, int, error) {
	limit, page, offset := utils.Paginate(p.Limit, p.Page)

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
		zap.Int("limit", limit),
		zap.Int("page", page),
	)

	query := `SELECT ` + productColumns + `, COUNT(*) OVER() FROM products`
	where := []string{}
	args := []interface{}{}

	if p.CategoryID != nil {
		args = append(args, *p.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if p.StoreID != nil {
		args = append(args, *p.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR brand ILIKE $%d)", len(args), len(args)))
	}
	if p.FeaturedOnly {
		where = append(where, "is_featured = TRUE")
	}
	if p.AvailableOnly {
		where = append(where, "is_available = TRUE")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + orderClause(p.Sort)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	log.Debug("executing product list query", zap.String("query", query))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	total := 0
	for rows.Next() {
		prod, err := scanProduct(rows, &total)
		if err != nil {
			log.Error("row scan failed", zap.Error(err))
			return nil, 0, err
		}
		products = append(products, *prod)
	}
	return products, total, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %d", apperr.ErrNotFound, id)
	}
	return p, err
}

// GetByIDs loads many products in one round trip. Missing ids are simply
// absent from the map.
func (r *repository) GetByIDs(ctx context.Context, ids []uint) (map[uint]Product, error) {
	out := make(map[uint]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	arr := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		arr[i] = int64(id)
	}

	products, err := r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, arr)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load products by ids", zap.Error(err))
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, storeID *uint, in Input) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		INSERT INTO products (category_id, store_id, name, description, price, unit, stock_quantity, is_available,
			is_featured, weight, brand, sort_order, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, TRUE), $9, $10, $11, $12, $13)
		RETURNING `+productColumns,
		in.CategoryID, storeID, in.Name, in.Description, in.Price, in.Unit, in.StockQuantity, in.IsAvailable,
		in.IsFeatured, in.Weight, in.Brand, in.SortOrder, in.ImageURL,
	))
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, apperr.Invalid("category_id", "unknown category")
		}
		logger.FromCtx(ctx).Error("failed to insert product", zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *repository) Update(ctx context.Context, id uint, in Input) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products SET
			category_id = $2, name = $3, description = $4, price = $5, unit = $6, stock_quantity = $7,
			is_available = COALESCE($8, is_available), is_featured = $9, weight = $10, brand = $11,
			sort_order = $12, image_url = $13
		WHERE id = $1
		RETURNING `+productColumns,
		id, in.CategoryID, in.Name, in.Description, in.Price, in.Unit, in.StockQuantity, in.IsAvailable,
		in.IsFeatured, in.Weight, in.Brand, in.SortOrder, in.ImageURL,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %d", apperr.ErrNotFound, id)
	}
	if db.IsForeignKeyViolation(err) {
		return nil, apperr.Invalid("category_id", "unknown category")
	}
	return p, err
}

func (r *repository) SetStock(ctx context.Context, id uint, qty int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET stock_quantity = $1 WHERE id = $2`, qty, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: product %d", apperr.ErrNotFound, id)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: product appears in orders, mark it unavailable instead", apperr.ErrConflict)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: product %d", apperr.ErrNotFound, id)
	}
	return nil
}

func (r *repository) SameCategory(ctx context.Context, categoryID, excludeID uint) ([]Product, error) {
	return r.queryProducts(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE category_id = $1 AND id <> $2 AND is_available = TRUE
		ORDER BY sales_count DESC, id ASC
		LIMIT $3`, categoryID, excludeID, candidateLimit)
}

func (r *repository) OtherCategories(ctx context.Context, categoryID uint, featured bool) ([]Product, error) {
	return r.queryProducts(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE category_id <> $1 AND is_featured = $2 AND is_available = TRUE
		ORDER BY sales_count DESC, id ASC
		LIMIT $3`, categoryID, featured, candidateLimit)
}

func (r *repository) LowStock(ctx context.Context, storeID uint, threshold int) ([]Product, error) {
	return r.queryProducts(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE store_id = $1 AND stock_quantity <= $2
		ORDER BY stock_quantity ASC, id ASC
		LIMIT 20`, storeID, threshold)
}
