package cart

import (
	"getir-be/internal/product"

	"github.com/shopspring/decimal"
)

// Items maps product id to quantity.
type Items map[uint]int

func (it Items) clone() Items {
	out := make(Items, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

type Line struct {
	Product  product.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// View is the cart priced against current product rows. Dropped lists the
// ids of stored lines whose product is gone or unavailable; those lines are
// left out of every total.
type View struct {
	Lines       []Line          `json:"lines"`
	Dropped     []uint          `json:"dropped,omitempty"`
	ItemCount   int             `json:"item_count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

func (v *View) Empty() bool {
	return len(v.Lines) == 0
}
