package store

import (
	"time"

	"github.com/shopspring/decimal"
)

type Store struct {
	ID               uint            `json:"id"`
	OwnerID          uint            `json:"owner_id"`
	StoreTypeID      *uint           `json:"store_type_id,omitempty"`
	Name             string          `json:"name"`
	Code             string          `json:"code"`
	Address          string          `json:"address"`
	Lat              *float64        `json:"lat,omitempty"`
	Lng              *float64        `json:"lng,omitempty"`
	OpensAt          string          `json:"opens_at"`
	ClosesAt         string          `json:"closes_at"`
	DeliveryRadiusKm decimal.Decimal `json:"delivery_radius_km"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	EstimatedMinutes int             `json:"estimated_minutes"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
}

// IsOpenAt reports whether t falls inside the store's daily hours. Hours that
// wrap midnight (22:00-02:00) are supported.
func (s *Store) IsOpenAt(t time.Time) bool {
	opens, err1 := time.Parse(hourLayout, s.OpensAt)
	closes, err2 := time.Parse(hourLayout, s.ClosesAt)
	if err1 != nil || err2 != nil {
		return s.IsActive
	}
	minute := t.Hour()*60 + t.Minute()
	o := opens.Hour()*60 + opens.Minute()
	c := closes.Hour()*60 + closes.Minute()
	if o <= c {
		return minute >= o && minute < c
	}
	return minute >= o || minute < c
}

const hourLayout = "15:04"

type Input struct {
	StoreTypeID      *uint           `json:"store_type_id"`
	Name             string          `json:"name"`
	Address          string          `json:"address"`
	Lat              *float64        `json:"lat"`
	Lng              *float64        `json:"lng"`
	OpensAt          string          `json:"opens_at"`
	ClosesAt         string          `json:"closes_at"`
	DeliveryRadiusKm decimal.Decimal `json:"delivery_radius_km"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	EstimatedMinutes int             `json:"estimated_minutes"`
}

type ListParams struct {
	ActiveOnly  bool
	StoreTypeID *uint
	Search      string
	Limit       int
	Page        int
}
