package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"getir-be/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repository runs read-only aggregate queries. Every method recomputes from
// the live tables.
type Repository interface {
	Overview(ctx context.Context, since time.Time) (*Overview, error)
	DailyOrders(ctx context.Context, since time.Time) (map[string]Point, error)
	MonthlyOrders(ctx context.Context, since time.Time) (map[string]Point, error)
	Breakdown(ctx context.Context, column string, since time.Time) ([]Breakdown, error)
	ByStore(ctx context.Context, since time.Time) ([]Breakdown, error)
	ByCategory(ctx context.Context, since time.Time) ([]Breakdown, error)
	Top(ctx context.Context, entity Entity, metric Metric, since time.Time, n int) ([]Leader, error)
	DeliveryMinutes(ctx context.Context, since time.Time) ([]float64, error)
	Registrations(ctx context.Context, since time.Time, monthly bool) (map[string]int, error)
	UsersByType(ctx context.Context) (map[string]int, error)
	VerifiedCounts(ctx context.Context) (verified, unverified int, err error)

	CustomerTotals(ctx context.Context, userID uint) (*CustomerDashboard, error)
	StoreTotals(ctx context.Context, storeID uint, today, since time.Time) (*StoreDashboard, error)
	DriverTotals(ctx context.Context, driverID uint, today time.Time) (*DriverDashboard, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Overview(ctx context.Context, since time.Time) (*Overview, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Overview"),
	)

	var o Overview
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE created_at >= $1),
			(SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND status = 'delivered'),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE created_at >= $1 AND status = 'delivered'),
			(SELECT COALESCE(SUM(delivery_fee), 0) FROM orders WHERE created_at >= $1 AND status = 'delivered'),
			(SELECT COUNT(*) FROM users WHERE user_type = 'customer'),
			(SELECT COUNT(*) FROM users WHERE user_type = 'customer' AND created_at >= $1),
			(SELECT COUNT(*) FROM stores WHERE is_active),
			(SELECT COUNT(*) FROM users WHERE user_type = 'driver'),
			(SELECT COUNT(*) FROM driver_applications WHERE status = 'pending')`,
		since,
	).Scan(
		&o.TotalOrders, &o.DeliveredOrders, &o.Revenue, &o.DeliveryFees,
		&o.TotalCustomers, &o.NewCustomers, &o.ActiveStores, &o.ActiveDrivers, &o.PendingDriverApplicants,
	)
	if err != nil {
		log.Error("overview query failed", zap.Error(err))
		return nil, err
	}
	o.AverageOrderValue = averageOrderValue(o.Revenue, o.DeliveredOrders)
	return &o, nil
}

// series groups orders by the UTC period. Revenue only counts delivered
// orders; the order count includes every status.
func (r *repository) series(ctx context.Context, trunc, layout string, since time.Time) (map[string]Point, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DATE_TRUNC('`+trunc+`', created_at AT TIME ZONE 'UTC') AS period,
			COUNT(*),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'delivered'), 0)
		FROM orders
		WHERE created_at >= $1
		GROUP BY period
		ORDER BY period`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]Point{}
	for rows.Next() {
		var (
			period time.Time
			p      Point
		)
		if err := rows.Scan(&period, &p.Orders, &p.Revenue); err != nil {
			return nil, err
		}
		p.Period = period.Format(layout)
		out[p.Period] = p
	}
	return out, rows.Err()
}

func (r *repository) DailyOrders(ctx context.Context, since time.Time) (map[string]Point, error) {
	return r.series(ctx, "day", dayLayout, since)
}

func (r *repository) MonthlyOrders(ctx context.Context, since time.Time) (map[string]Point, error) {
	return r.series(ctx, "month", monthLayout, since)
}

var breakdownColumns = map[string]bool{
	"status":         true,
	"payment_method": true,
	"payment_status": true,
}

func scanBreakdowns(rows *sql.Rows, withID bool) ([]Breakdown, error) {
	defer rows.Close()

	out := []Breakdown{}
	for rows.Next() {
		var b Breakdown
		dest := []any{&b.Key, &b.Count, &b.Revenue}
		if withID {
			var id uint
			dest = append([]any{&id}, dest...)
			if err := rows.Scan(dest...); err != nil {
				return nil, err
			}
			b.ID = &id
		} else if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) Breakdown(ctx context.Context, column string, since time.Time) ([]Breakdown, error) {
	if !breakdownColumns[column] {
		return nil, fmt.Errorf("unsupported breakdown column %q", column)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE created_at >= $1
		GROUP BY `+column+`
		ORDER BY COUNT(*) DESC, `+column, since)
	if err != nil {
		return nil, err
	}
	return scanBreakdowns(rows, false)
}

func (r *repository) ByStore(ctx context.Context, since time.Time) ([]Breakdown, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, COUNT(o.id), COALESCE(SUM(o.total_amount), 0)
		FROM orders o
		JOIN stores s ON s.id = o.store_id
		WHERE o.created_at >= $1
		GROUP BY s.id, s.name
		ORDER BY COUNT(o.id) DESC, s.id`, since)
	if err != nil {
		return nil, err
	}
	return scanBreakdowns(rows, true)
}

// ByCategory counts units sold, not orders.
func (r *repository) ByCategory(ctx context.Context, since time.Time) ([]Breakdown, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name_en, COALESCE(SUM(oi.quantity), 0), COALESCE(SUM(oi.subtotal), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE o.created_at >= $1 AND o.status <> 'cancelled'
		GROUP BY c.id, c.name_en
		ORDER BY 4 DESC, c.id`, since)
	if err != nil {
		return nil, err
	}
	return scanBreakdowns(rows, true)
}

// topQueries yield (id, name, count, revenue) over non-cancelled orders.
var topQueries = map[Entity]string{
	EntityStores: `
		SELECT s.id, s.name, COUNT(o.id) AS cnt, COALESCE(SUM(o.total_amount), 0) AS revenue
		FROM orders o JOIN stores s ON s.id = o.store_id
		WHERE o.created_at >= $1 AND o.status <> 'cancelled'
		GROUP BY s.id, s.name`,
	EntityProducts: `
		SELECT oi.product_id, MAX(oi.product_name), SUM(oi.quantity) AS cnt, COALESCE(SUM(oi.subtotal), 0) AS revenue
		FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1 AND o.status <> 'cancelled'
		GROUP BY oi.product_id`,
	EntityDrivers: `
		SELECT u.id, u.name, COUNT(o.id) AS cnt, COALESCE(SUM(o.delivery_fee), 0) AS revenue
		FROM orders o JOIN users u ON u.id = o.delivery_driver_id
		WHERE o.created_at >= $1 AND o.status = 'delivered'
		GROUP BY u.id, u.name`,
	EntityCustomers: `
		SELECT u.id, u.name, COUNT(o.id) AS cnt, COALESCE(SUM(o.total_amount), 0) AS revenue
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.created_at >= $1 AND o.status <> 'cancelled'
		GROUP BY u.id, u.name`,
}

func (r *repository) Top(ctx context.Context, entity Entity, metric Metric, since time.Time, n int) ([]Leader, error) {
	base, ok := topQueries[entity]
	if !ok {
		return nil, fmt.Errorf("unsupported leaderboard %q", entity)
	}
	orderBy := "cnt DESC, revenue DESC"
	if metric == MetricRevenue {
		orderBy = "revenue DESC, cnt DESC"
	}

	rows, err := r.db.QueryContext(ctx, base+` ORDER BY `+orderBy+`, 1 LIMIT $2`, since, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Leader{}
	for rows.Next() {
		var l Leader
		if err := rows.Scan(&l.ID, &l.Name, &l.Count, &l.Revenue); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) DeliveryMinutes(ctx context.Context, since time.Time) ([]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT EXTRACT(EPOCH FROM (delivered_at - created_at)) / 60
		FROM orders
		WHERE status = 'delivered' AND delivered_at IS NOT NULL AND created_at >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []float64{}
	for rows.Next() {
		var m float64
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) Registrations(ctx context.Context, since time.Time, monthly bool) (map[string]int, error) {
	trunc, layout := "day", dayLayout
	if monthly {
		trunc, layout = "month", monthLayout
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT DATE_TRUNC('`+trunc+`', created_at AT TIME ZONE 'UTC') AS period, COUNT(*)
		FROM users
		WHERE created_at >= $1
		GROUP BY period`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			period time.Time
			n      int
		)
		if err := rows.Scan(&period, &n); err != nil {
			return nil, err
		}
		out[period.Format(layout)] = n
	}
	return out, rows.Err()
}

func (r *repository) UsersByType(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_type, COUNT(*) FROM users GROUP BY user_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			t string
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

func (r *repository) VerifiedCounts(ctx context.Context) (int, int, error) {
	var verified, unverified int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE is_verified), COUNT(*) FILTER (WHERE NOT is_verified)
		FROM users`,
	).Scan(&verified, &unverified)
	return verified, unverified, err
}

func (r *repository) CustomerTotals(ctx context.Context, userID uint) (*CustomerDashboard, error) {
	d := CustomerDashboard{TotalSpent: decimal.Zero}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status NOT IN ('delivered', 'cancelled')),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'delivered'), 0)
		FROM orders
		WHERE user_id = $1`, userID,
	).Scan(&d.TotalOrders, &d.DeliveredOrders, &d.ActiveOrders, &d.TotalSpent)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) StoreTotals(ctx context.Context, storeID uint, today, since time.Time) (*StoreDashboard, error) {
	d := StoreDashboard{StoreID: storeID}
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE created_at >= $2),
			COUNT(*) FILTER (WHERE created_at >= $3),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'delivered' AND created_at >= $3), 0),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM orders
		WHERE store_id = $1`, storeID, today, since,
	).Scan(&d.OrdersToday, &d.OrdersInRange, &d.Revenue, &d.PendingOrders)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// DriverTotals counts earnings as delivery fees of delivered orders.
func (r *repository) DriverTotals(ctx context.Context, driverID uint, today time.Time) (*DriverDashboard, error) {
	var d DriverDashboard
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE status = 'ready' AND delivery_driver_id IS NULL),
			COUNT(*) FILTER (WHERE status = 'out_for_delivery'),
			COUNT(*) FILTER (WHERE status = 'delivered' AND delivered_at >= $2),
			COALESCE(SUM(delivery_fee) FILTER (WHERE status = 'delivered'), 0)
		FROM orders
		WHERE delivery_driver_id = $1`, driverID, today,
	).Scan(&d.Available, &d.Active, &d.DeliveredToday, &d.Earnings)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
