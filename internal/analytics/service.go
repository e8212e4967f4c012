package analytics

import (
	"context"
	"io"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/order"
	"getir-be/internal/product"
	"getir-be/internal/store"

	"go.uber.org/zap"
)

const (
	recentOrderCount = 5
	maxTopN          = 100
)

type RecentOrders interface {
	ListMine(ctx context.Context, userID uint, status *order.Status, limit, page int) ([]order.Order, int, error)
}

type StoreLookup interface {
	OwnedBy(ctx context.Context, ownerID uint) (*store.Store, error)
}

type StockWatcher interface {
	LowStock(ctx context.Context, storeID uint, threshold int) ([]product.Product, error)
}

type Service interface {
	Overview(ctx context.Context, r Range) (*Overview, error)
	// Daily is empty for ranges without a per-day series.
	Daily(ctx context.Context, r Range) ([]Point, error)
	Monthly(ctx context.Context, r Range) ([]Point, error)
	Breakdowns(ctx context.Context, r Range) (*Breakdowns, error)
	Top(ctx context.Context, r Range, entity Entity, metric Metric, n int) ([]Leader, error)
	DeliveryTimes(ctx context.Context, r Range) (*DeliveryTimes, error)
	Users(ctx context.Context, r Range) (*UserStats, error)

	CustomerDashboard(ctx context.Context, userID uint) (*CustomerDashboard, error)
	StoreDashboard(ctx context.Context, ownerID uint, r Range) (*StoreDashboard, error)
	DriverDashboard(ctx context.Context, driverID uint) (*DriverDashboard, error)
	AdminDashboard(ctx context.Context, r Range) (*AdminDashboard, error)

	// Export writes an xlsx workbook for the range to w.
	Export(ctx context.Context, r Range, w io.Writer) error
}

type service struct {
	repo   Repository
	orders RecentOrders
	stores StoreLookup
	stock  StockWatcher
	now    func() time.Time
}

type Option func(*service)

// WithClock replaces time.Now; reports are computed in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(repo Repository, orders RecentOrders, stores StoreLookup, stock StockWatcher, opts ...Option) Service {
	s := &service{repo: repo, orders: orders, stores: stores, stock: stock, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) window(r Range) (start, end time.Time) {
	end = s.now().UTC()
	return r.Start(end), end
}

func (s *service) Overview(ctx context.Context, r Range) (*Overview, error) {
	start, _ := s.window(r)
	o, err := s.repo.Overview(ctx, start)
	if err != nil {
		return nil, err
	}
	o.Range = r
	return o, nil
}

func (s *service) Daily(ctx context.Context, r Range) ([]Point, error) {
	if !r.HasDaily() {
		return []Point{}, nil
	}
	start, end := s.window(r)
	sparse, err := s.repo.DailyOrders(ctx, start)
	if err != nil {
		return nil, err
	}
	points := FillDaily(start, end, sparse)

	logger.FromCtx(ctx).Debug("daily series",
		zap.String("range", string(r)),
		zap.Int("days", len(points)),
		zap.Int("orders", sumOrders(points)),
	)
	return points, nil
}

func (s *service) Monthly(ctx context.Context, r Range) ([]Point, error) {
	start, end := s.window(r)
	sparse, err := s.repo.MonthlyOrders(ctx, start)
	if err != nil {
		return nil, err
	}
	return FillMonthly(start, end, sparse), nil
}

func (s *service) Breakdowns(ctx context.Context, r Range) (*Breakdowns, error) {
	start, _ := s.window(r)

	var (
		b   Breakdowns
		err error
	)
	if b.ByStatus, err = s.repo.Breakdown(ctx, "status", start); err != nil {
		return nil, err
	}
	if b.ByPaymentMethod, err = s.repo.Breakdown(ctx, "payment_method", start); err != nil {
		return nil, err
	}
	if b.ByPaymentStatus, err = s.repo.Breakdown(ctx, "payment_status", start); err != nil {
		return nil, err
	}
	if b.ByStore, err = s.repo.ByStore(ctx, start); err != nil {
		return nil, err
	}
	if b.ByCategory, err = s.repo.ByCategory(ctx, start); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *service) Top(ctx context.Context, r Range, entity Entity, metric Metric, n int) ([]Leader, error) {
	switch entity {
	case EntityStores, EntityProducts, EntityDrivers, EntityCustomers:
	default:
		return nil, apperr.Invalid("entity", "must be stores, products, drivers or customers")
	}
	if metric != MetricRevenue {
		metric = MetricCount
	}
	if n <= 0 {
		n = DefaultTopN
	}
	if n > maxTopN {
		n = maxTopN
	}

	start, _ := s.window(r)
	return s.repo.Top(ctx, entity, metric, start, n)
}

func (s *service) DeliveryTimes(ctx context.Context, r Range) (*DeliveryTimes, error) {
	start, _ := s.window(r)
	minutes, err := s.repo.DeliveryMinutes(ctx, start)
	if err != nil {
		return nil, err
	}
	dt := BucketDeliveryTimes(minutes)
	return &dt, nil
}

func (s *service) Users(ctx context.Context, r Range) (*UserStats, error) {
	start, end := s.window(r)
	monthly := !r.HasDaily()

	sparse, err := s.repo.Registrations(ctx, start, monthly)
	if err != nil {
		return nil, err
	}
	byType, err := s.repo.UsersByType(ctx)
	if err != nil {
		return nil, err
	}
	verified, unverified, err := s.repo.VerifiedCounts(ctx)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		Registrations: FillCounts(start, end, monthly, sparse),
		ByType:        byType,
		Verified:      verified,
		Unverified:    unverified,
	}, nil
}

func (s *service) CustomerDashboard(ctx context.Context, userID uint) (*CustomerDashboard, error) {
	d, err := s.repo.CustomerTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.orders.ListMine(ctx, userID, nil, recentOrderCount, 1)
	if err != nil {
		return nil, err
	}
	d.RecentOrders = recent
	return d, nil
}

func (s *service) StoreDashboard(ctx context.Context, ownerID uint, r Range) (*StoreDashboard, error) {
	st, err := s.stores.OwnedBy(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	start, end := s.window(r)
	d, err := s.repo.StoreTotals(ctx, st.ID, startOfDay(end), start)
	if err != nil {
		return nil, err
	}
	if d.LowStock, err = s.stock.LowStock(ctx, st.ID, product.DefaultLowStockThreshold); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *service) DriverDashboard(ctx context.Context, driverID uint) (*DriverDashboard, error) {
	_, end := s.window(DefaultRange)
	return s.repo.DriverTotals(ctx, driverID, startOfDay(end))
}

func (s *service) AdminDashboard(ctx context.Context, r Range) (*AdminDashboard, error) {
	overview, err := s.Overview(ctx, r)
	if err != nil {
		return nil, err
	}

	d := &AdminDashboard{Overview: overview}
	if r.HasDaily() {
		d.Daily, err = s.Daily(ctx, r)
	} else {
		d.Monthly, err = s.Monthly(ctx, r)
	}
	if err != nil {
		return nil, err
	}

	start, _ := s.window(r)
	if d.ByStatus, err = s.repo.Breakdown(ctx, "status", start); err != nil {
		return nil, err
	}
	return d, nil
}
