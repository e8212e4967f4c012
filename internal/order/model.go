package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// transitions is the order lifecycle. Anything not listed is rejected.
var transitions = map[Status][]Status{
	StatusPending:        {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReady, StatusCancelled},
	StatusReady:          {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      nil,
	StatusCancelled:      nil,
}

func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := transitions[st]
	return st, ok
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// sourcesOf lists every status that may move to next.
func sourcesOf(next Status) []Status {
	var out []Status
	for _, from := range []Status{StatusPending, StatusPreparing, StatusReady, StatusOutForDelivery} {
		if from.CanTransitionTo(next) {
			out = append(out, from)
		}
	}
	return out
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Order struct {
	ID               uint            `json:"id"`
	UserID           uint            `json:"user_id"`
	StoreID          *uint           `json:"store_id,omitempty"`
	Status           Status          `json:"status"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	DeliveryAddress  string          `json:"delivery_address"`
	DeliveryLat      *float64        `json:"delivery_lat,omitempty"`
	DeliveryLng      *float64        `json:"delivery_lng,omitempty"`
	Phone            string          `json:"phone"`
	Notes            string          `json:"notes"`
	DeliveryDriverID *uint           `json:"delivery_driver_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`

	Items []Item `json:"items,omitempty"`
}

// Item is a price snapshot taken when the order was placed.
type Item struct {
	ID          uint            `json:"id"`
	OrderID     uint            `json:"order_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type PlaceParams struct {
	UserID          uint
	DeliveryAddress string
	Phone           string
	Notes           string
	PaymentMethod   PaymentMethod
	Lat             *float64
	Lng             *float64
}

type Totals struct {
	Subtotal decimal.Decimal
	Fee      decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals applies total = subtotal + fee + tax - discount with every
// component rounded to cents first, so the stored columns add up exactly.
func ComputeTotals(subtotal, fee, taxPercent, discount decimal.Decimal) Totals {
	t := Totals{
		Subtotal: subtotal.Round(2),
		Fee:      fee.Round(2),
		Discount: discount.Round(2),
	}
	t.Tax = t.Subtotal.Mul(taxPercent).Div(hundred).Round(2)
	t.Total = t.Subtotal.Add(t.Fee).Add(t.Tax).Sub(t.Discount)
	return t
}

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortTotal     SortField = "total"
)

type ListFilter struct {
	UserID     *uint
	StoreID    *uint
	DriverID   *uint
	Unassigned bool
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Search     string
	Sort       SortField
	Desc       bool
	Limit      int
	Page       int
}
