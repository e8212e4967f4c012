package location

import "time"

type Governorate struct {
	ID        uint   `json:"id"`
	NameAr    string `json:"name_ar"`
	NameEn    string `json:"name_en"`
	SortOrder int    `json:"sort_order"`
}

type City struct {
	ID            uint   `json:"id"`
	GovernorateID uint   `json:"governorate_id"`
	NameAr        string `json:"name_ar"`
	NameEn        string `json:"name_en"`
}

type Area struct {
	ID     uint   `json:"id"`
	CityID uint   `json:"city_id"`
	NameAr string `json:"name_ar"`
	NameEn string `json:"name_en"`
}

// DeliveryLocation is an address a user saved for checkout. At most one per
// user is the default.
type DeliveryLocation struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Label     string    `json:"label"`
	Address   string    `json:"address"`
	Lat       *float64  `json:"lat,omitempty"`
	Lng       *float64  `json:"lng,omitempty"`
	AreaID    *uint     `json:"area_id,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

type Input struct {
	Label        string   `json:"label"`
	Address      string   `json:"address"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	AreaID       *uint    `json:"area_id"`
	SetAsDefault bool     `json:"is_default"`
}
