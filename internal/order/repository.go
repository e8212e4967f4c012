package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
	"getir-be/internal/logger"
	"getir-be/internal/utils"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// Create inserts the order and its items and decrements stock in one
	// transaction. Any line that can no longer be covered aborts the order.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	// UpdateStatus moves the order to next only if it is still in from.
	UpdateStatus(ctx context.Context, id uint, from, next Status) error
	Claim(ctx context.Context, id, driverID uint) error
	Deliver(ctx context.Context, id, driverID uint) error
	// Cancel cancels the order if its status is one of from and returns the
	// ordered quantities to stock.
	Cancel(ctx context.Context, id uint, from []Status) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `o.id, o.user_id, o.store_id, o.status, o.payment_method, o.payment_status,
	o.subtotal, o.delivery_fee, o.tax_amount, o.discount_amount, o.total_amount,
	o.delivery_address, o.delivery_lat, o.delivery_lng, o.phone, o.notes,
	o.delivery_driver_id, o.created_at, o.updated_at, o.delivered_at`

func scanOrder(row interface{ Scan(...any) error }, extra ...any) (*Order, error) {
	var (
		o        Order
		storeID  sql.NullInt64
		driverID sql.NullInt64
	)
	dest := []any{
		&o.ID, &o.UserID, &storeID, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.Subtotal, &o.DeliveryFee, &o.TaxAmount, &o.DiscountAmount, &o.TotalAmount,
		&o.DeliveryAddress, &o.DeliveryLat, &o.DeliveryLng, &o.Phone, &o.Notes,
		&driverID, &o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if storeID.Valid {
		id := uint(storeID.Int64)
		o.StoreID = &id
	}
	if driverID.Valid {
		id := uint(driverID.Int64)
		o.DeliveryDriverID = &id
	}
	return &o, nil
}

func (r *repository) Create(ctx context.Context, o *Order) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.Uint("user_id", o.UserID),
		zap.Int("items", len(o.Items)),
	)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (
				user_id, store_id, status, payment_method, payment_status,
				subtotal, delivery_fee, tax_amount, discount_amount, total_amount,
				delivery_address, delivery_lat, delivery_lng, phone, notes
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			RETURNING id, created_at, updated_at`,
			o.UserID, o.StoreID, o.Status, o.PaymentMethod, o.PaymentStatus,
			o.Subtotal, o.DeliveryFee, o.TaxAmount, o.DiscountAmount, o.TotalAmount,
			o.DeliveryAddress, o.DeliveryLat, o.DeliveryLng, o.Phone, o.Notes,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return err
		}

		for i := range o.Items {
			item := &o.Items[i]
			item.OrderID = o.ID

			err = tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, subtotal)
				VALUES ($1,$2,$3,$4,$5,$6)
				RETURNING id`,
				o.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal,
			).Scan(&item.ID)
			if err != nil {
				return err
			}

			res, err := tx.ExecContext(ctx, `
				UPDATE products
				SET stock_quantity = stock_quantity - $1, sales_count = sales_count + $1
				WHERE id = $2 AND stock_quantity >= $1`,
				item.Quantity, item.ProductID,
			)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("%w: %s", apperr.ErrInsufficientStock, item.ProductName)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientStock) {
			log.Info("order rejected", zap.Error(err))
		} else {
			log.Error("failed to create order", zap.Error(err))
		}
		return err
	}

	log.Info("order created", zap.Uint("order_id", o.ID))
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %d", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	limit, page, offset := utils.Paginate(f.Limit, f.Page)

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
		zap.Int("limit", limit),
		zap.Int("page", page),
	)

	query := `SELECT ` + orderColumns + `, COUNT(*) OVER() FROM orders o WHERE 1=1`
	args := []any{}
	argIndex := 1

	if f.UserID != nil {
		query += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *f.UserID)
		argIndex++
	}
	if f.StoreID != nil {
		query += fmt.Sprintf(" AND o.store_id = $%d", argIndex)
		args = append(args, *f.StoreID)
		argIndex++
	}
	if f.DriverID != nil {
		query += fmt.Sprintf(" AND o.delivery_driver_id = $%d", argIndex)
		args = append(args, *f.DriverID)
		argIndex++
	}
	if f.Unassigned {
		query += " AND o.delivery_driver_id IS NULL"
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND o.status = $%d", argIndex)
		args = append(args, *f.Status)
		argIndex++
	}
	if f.DateFrom != nil {
		query += fmt.Sprintf(" AND o.created_at >= $%d", argIndex)
		args = append(args, *f.DateFrom)
		argIndex++
	}
	if f.DateTo != nil {
		query += fmt.Sprintf(" AND o.created_at < $%d", argIndex)
		args = append(args, *f.DateTo)
		argIndex++
	}
	if f.Search != "" {
		query += fmt.Sprintf(" AND (o.id::text ILIKE $%d OR o.phone ILIKE $%d OR o.delivery_address ILIKE $%d)", argIndex, argIndex, argIndex)
		args = append(args, "%"+f.Search+"%")
		argIndex++
	}

	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	orderBy := "o.created_at DESC, o.id DESC"
	switch f.Sort {
	case SortCreatedAt:
		orderBy = "o.created_at " + dir + ", o.id " + dir
	case SortTotal:
		orderBy = "o.total_amount " + dir + ", o.id " + dir
	}
	query += " ORDER BY " + orderBy
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var (
		orders = []Order{}
		total  int
	)
	for rows.Next() {
		o, err := scanOrder(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

// expectTransition turns a zero-row conditional update into a conflict.
func expectTransition(res sql.Result, id uint, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: order %d cannot be %s", apperr.ErrConflict, id, what)
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uint, from, next Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		next, id, from,
	)
	if err != nil {
		return err
	}
	return expectTransition(res, id, "moved to "+string(next))
}

func (r *repository) Claim(ctx context.Context, id, driverID uint) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET delivery_driver_id = $1, status = 'out_for_delivery', updated_at = NOW()
		WHERE id = $2 AND status = 'ready' AND delivery_driver_id IS NULL`,
		driverID, id,
	)
	if err != nil {
		return err
	}
	return expectTransition(res, id, "claimed")
}

func (r *repository) Deliver(ctx context.Context, id, driverID uint) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = 'delivered', delivered_at = NOW(), updated_at = NOW(),
			payment_status = CASE WHEN payment_method = 'cash' THEN 'paid' ELSE payment_status END
		WHERE id = $1 AND delivery_driver_id = $2 AND status = 'out_for_delivery'`,
		id, driverID,
	)
	if err != nil {
		return err
	}
	return expectTransition(res, id, "delivered")
}

func (r *repository) Cancel(ctx context.Context, id uint, from []Status) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Cancel"),
		zap.Uint("order_id", id),
	)

	states := make(pq.StringArray, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET status = 'cancelled', updated_at = NOW(),
				payment_status = CASE WHEN payment_status = 'paid' THEN 'refunded' ELSE payment_status END
			WHERE id = $1 AND status = ANY($2)`,
			id, states,
		)
		if err != nil {
			return err
		}
		if err := expectTransition(res, id, "cancelled"); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE products p
			SET stock_quantity = p.stock_quantity + oi.quantity,
				sales_count = GREATEST(p.sales_count - oi.quantity, 0)
			FROM order_items oi
			WHERE oi.order_id = $1 AND p.id = oi.product_id`,
			id,
		)
		return err
	})
	if err != nil {
		log.Warn("cancel failed", zap.Error(err))
		return err
	}

	log.Info("order cancelled, stock restored")
	return nil
}
