package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            uint            `json:"id"`
	CategoryID    uint            `json:"category_id"`
	StoreID       *uint           `json:"store_id,omitempty"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Unit          string          `json:"unit"`
	StockQuantity int             `json:"stock_quantity"`
	IsAvailable   bool            `json:"is_available"`
	IsFeatured    bool            `json:"is_featured"`
	SalesCount    int             `json:"sales_count"`
	Weight        string          `json:"weight"`
	Brand         string          `json:"brand"`
	SortOrder     int             `json:"sort_order"`
	ImageURL      string          `json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Input struct {
	CategoryID    uint            `json:"category_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Unit          string          `json:"unit"`
	StockQuantity int             `json:"stock_quantity"`
	IsAvailable   *bool           `json:"is_available"`
	IsFeatured    bool            `json:"is_featured"`
	Weight        string          `json:"weight"`
	Brand         string          `json:"brand"`
	SortOrder     int             `json:"sort_order"`
	ImageURL      string          `json:"image_url"`
}

type Sort string

const (
	SortDefault   Sort = ""
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
	SortPopular   Sort = "popular"
)

type ListParams struct {
	CategoryID    *uint
	StoreID       *uint
	Search        string
	FeaturedOnly  bool
	AvailableOnly bool
	Sort          Sort
	Limit         int
	Page          int
}

// Detail is a product page: the product plus suggestions.
type Detail struct {
	Product Product   `json:"product"`
	Related []Product `json:"related"`
}
