package analytics

import (
	"getir-be/internal/order"
	"getir-be/internal/product"

	"github.com/shopspring/decimal"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

type Overview struct {
	Range                   Range           `json:"range"`
	TotalOrders             int             `json:"total_orders"`
	DeliveredOrders         int             `json:"delivered_orders"`
	Revenue                 decimal.Decimal `json:"revenue"`
	AverageOrderValue       decimal.Decimal `json:"average_order_value"`
	DeliveryFees            decimal.Decimal `json:"delivery_fees"`
	TotalCustomers          int             `json:"total_customers"`
	NewCustomers            int             `json:"new_customers"`
	ActiveStores            int             `json:"active_stores"`
	ActiveDrivers           int             `json:"active_drivers"`
	PendingDriverApplicants int             `json:"pending_driver_applications"`
}

// Point is one bucket of a time series. Period is a day (2006-01-02) or a
// month (2006-01).
type Point struct {
	Period  string          `json:"period"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Breakdown struct {
	ID      *uint           `json:"id,omitempty"`
	Key     string          `json:"key"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Breakdowns struct {
	ByStatus        []Breakdown `json:"by_status"`
	ByPaymentMethod []Breakdown `json:"by_payment_method"`
	ByPaymentStatus []Breakdown `json:"by_payment_status"`
	ByStore         []Breakdown `json:"by_store"`
	ByCategory      []Breakdown `json:"by_category"`
}

type Entity string

const (
	EntityStores    Entity = "stores"
	EntityProducts  Entity = "products"
	EntityDrivers   Entity = "drivers"
	EntityCustomers Entity = "customers"
)

type Metric string

const (
	MetricCount   Metric = "count"
	MetricRevenue Metric = "revenue"
)

const DefaultTopN = 10

type Leader struct {
	ID      uint            `json:"id"`
	Name    string          `json:"name"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type DeliveryTimes struct {
	Delivered      int      `json:"delivered"`
	AverageMinutes float64  `json:"average_minutes"`
	Buckets        []Bucket `json:"buckets"`
}

type Count struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

type UserStats struct {
	Registrations []Count        `json:"registrations"`
	ByType        map[string]int `json:"by_type"`
	Verified      int            `json:"verified"`
	Unverified    int            `json:"unverified"`
}

type CustomerDashboard struct {
	TotalOrders     int             `json:"total_orders"`
	DeliveredOrders int             `json:"delivered_orders"`
	ActiveOrders    int             `json:"active_orders"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	RecentOrders    []order.Order   `json:"recent_orders"`
}

type StoreDashboard struct {
	StoreID       uint              `json:"store_id"`
	OrdersToday   int               `json:"orders_today"`
	OrdersInRange int               `json:"orders_in_range"`
	Revenue       decimal.Decimal   `json:"revenue"`
	PendingOrders int               `json:"pending_orders"`
	LowStock      []product.Product `json:"low_stock"`
}

type DriverDashboard struct {
	Available      int             `json:"available"`
	Active         int             `json:"active"`
	DeliveredToday int             `json:"delivered_today"`
	Earnings       decimal.Decimal `json:"earnings"`
}

type AdminDashboard struct {
	Overview *Overview   `json:"overview"`
	Daily    []Point     `json:"daily,omitempty"`
	Monthly  []Point     `json:"monthly,omitempty"`
	ByStatus []Breakdown `json:"by_status"`
}
