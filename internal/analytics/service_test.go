package analytics

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/order"
	"getir-be/internal/product"
	"getir-be/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

type stubOrders struct{ orders []order.Order }

func (s stubOrders) ListMine(_ context.Context, _ uint, _ *order.Status, limit, _ int) ([]order.Order, int, error) {
	if len(s.orders) > limit {
		return s.orders[:limit], len(s.orders), nil
	}
	return s.orders, len(s.orders), nil
}

type stubStores struct{ owned map[uint]store.Store }

func (s stubStores) OwnedBy(_ context.Context, ownerID uint) (*store.Store, error) {
	st, ok := s.owned[ownerID]
	if !ok {
		return nil, fmt.Errorf("%w: no store", apperr.ErrNotFound)
	}
	return &st, nil
}

type stubStock struct{ low []product.Product }

func (s stubStock) LowStock(_ context.Context, _ uint, _ int) ([]product.Product, error) {
	return s.low, nil
}

func newService(t *testing.T) (Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(NewRepository(db),
		stubOrders{},
		stubStores{owned: map[uint]store.Store{20: {ID: 4, OwnerID: 20}}},
		stubStock{low: []product.Product{{ID: 1, Name: "Milk", StockQuantity: 2}}},
		WithClock(func() time.Time { return fixedNow }),
	)
	return svc, mock
}

func overviewRow(total, delivered int, revenue string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}).
		AddRow(total, delivered, revenue, "10.00", 40, 6, 3, 2, 1)
}

func TestService_DailySumsToOverviewTotal(t *testing.T) {
	svc, mock := newService(t)
	ctx := context.Background()
	since := fixedNow.AddDate(0, 0, -7)

	mock.ExpectQuery(`SELECT \(SELECT COUNT\(\*\) FROM orders WHERE created_at >= \$1\)`).
		WithArgs(since).
		WillReturnRows(overviewRow(6, 2, "70.00"))
	mock.ExpectQuery(`DATE_TRUNC\('day', created_at AT TIME ZONE 'UTC'\) AS period`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"period", "count", "revenue"}).
			AddRow(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), 4, "35.00").
			AddRow(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), 2, "35.00"))

	o, err := svc.Overview(ctx, Range7d)
	require.NoError(t, err)
	assert.Equal(t, Range7d, o.Range)
	assert.Equal(t, "35.00", o.AverageOrderValue.StringFixed(2))

	points, err := svc.Daily(ctx, Range7d)
	require.NoError(t, err)
	assert.Len(t, points, 8)
	assert.Equal(t, "2025-03-03", points[0].Period)
	assert.Equal(t, "2025-03-10", points[7].Period)
	assert.Equal(t, o.TotalOrders, sumOrders(points))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_DailyEmptyFor12m(t *testing.T) {
	svc, mock := newService(t)

	points, err := svc.Daily(context.Background(), Range12m)
	require.NoError(t, err)
	assert.Empty(t, points)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Top(t *testing.T) {
	svc, mock := newService(t)
	ctx := context.Background()

	_, err := svc.Top(ctx, Range30d, "planets", MetricCount, 5)
	assert.True(t, apperr.IsValidation(err))

	mock.ExpectQuery(`FROM order_items oi JOIN orders o ON o.id = oi.order_id .* GROUP BY oi.product_id ORDER BY revenue DESC, cnt DESC, 1 LIMIT \$2`).
		WithArgs(fixedNow.AddDate(0, 0, -30), DefaultTopN).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "cnt", "revenue"}).
			AddRow(1, "Milk", 12, "120.00").
			AddRow(2, "Bread", 30, "60.00"))

	top, err := svc.Top(ctx, Range30d, EntityProducts, MetricRevenue, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Milk", top[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_StoreDashboard(t *testing.T) {
	svc, mock := newService(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM orders WHERE store_id = \$1`).
		WithArgs(4, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), fixedNow.AddDate(0, 0, -30)).
		WillReturnRows(sqlmock.NewRows([]string{"a", "b", "c", "d"}).AddRow(3, 41, "812.50", 2))

	d, err := svc.StoreDashboard(ctx, 20, Range30d)
	require.NoError(t, err)
	assert.Equal(t, uint(4), d.StoreID)
	assert.Equal(t, 3, d.OrdersToday)
	assert.Equal(t, 2, d.PendingOrders)
	assert.Len(t, d.LowStock, 1)

	_, err = svc.StoreDashboard(ctx, 99, Range30d)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Breakdowns(t *testing.T) {
	svc, mock := newService(t)
	since := fixedNow.AddDate(0, 0, -30)

	for _, col := range []string{"status", "payment_method", "payment_status"} {
		mock.ExpectQuery(`SELECT ` + col + `, COUNT\(\*\), COALESCE\(SUM\(total_amount\), 0\) FROM orders`).
			WithArgs(since).
			WillReturnRows(sqlmock.NewRows([]string{"key", "count", "revenue"}).AddRow("x", 1, "5.00"))
	}
	mock.ExpectQuery(`JOIN stores s ON s.id = o.store_id`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "count", "revenue"}).AddRow(4, "Corner Market", 7, "140.00"))
	mock.ExpectQuery(`JOIN categories c ON c.id = p.category_id`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "count", "revenue"}))

	b, err := svc.Breakdowns(context.Background(), Range30d)
	require.NoError(t, err)
	require.Len(t, b.ByStore, 1)
	require.NotNil(t, b.ByStore[0].ID)
	assert.Equal(t, uint(4), *b.ByStore[0].ID)
	assert.Empty(t, b.ByCategory)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBreakdownRejectsUnknownColumn(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewRepository(db).Breakdown(context.Background(), "1; DROP TABLE orders", fixedNow)
	assert.Error(t, err)
}

func TestBuildWorkbook(t *testing.T) {
	o := &Overview{Range: Range7d, TotalOrders: 6, Revenue: decimal.RequireFromString("70.00")}
	series := []Point{
		{Period: "2025-03-09", Orders: 2, Revenue: decimal.NewFromInt(35)},
		{Period: "2025-03-10", Orders: 4, Revenue: decimal.NewFromInt(35)},
	}
	top := []Leader{{ID: 1, Name: "Milk", Count: 12, Revenue: decimal.NewFromInt(120)}}

	f, err := BuildWorkbook(o, series, top)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	x, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer x.Close()

	assert.Equal(t, []string{sheetOverview, sheetDaily, sheetTopProducts}, x.GetSheetList())

	v, err := x.GetCellValue(sheetOverview, "B3")
	require.NoError(t, err)
	assert.Equal(t, "6", v)

	rows, err := x.GetRows(sheetDaily)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2025-03-10", "4", "35"}, rows[2])

	name, err := x.GetCellValue(sheetTopProducts, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Milk", name)
}
