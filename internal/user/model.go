package user

import (
	"time"

	"getir-be/internal/role"
)

type User struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Email         *string   `json:"email,omitempty"`
	Password      *string   `json:"-"`
	Type          role.Role `json:"user_type"`
	IsVerified    bool      `json:"is_verified"`
	Address       *string   `json:"address,omitempty"`
	Lat           *float64  `json:"lat,omitempty"`
	Lng           *float64  `json:"lng,omitempty"`
	GovernorateID *uint     `json:"governorate_id,omitempty"`
	CityID        *uint     `json:"city_id,omitempty"`
	AreaID        *uint     `json:"area_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasPassword reports whether the user ever set a password. Phone-only
// accounts have none.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

type CreateParams struct {
	Name       string
	Phone      string
	Email      *string
	Type       role.Role
	IsVerified bool
}

// UpdateProfileParams only touches non-nil fields.
type UpdateProfileParams struct {
	UserID        uint
	Name          *string
	Email         *string
	Address       *string
	Lat           *float64
	Lng           *float64
	GovernorateID *uint
	CityID        *uint
	AreaID        *uint
}

type ListParams struct {
	Type   *role.Role
	Search string
	Limit  int
	Page   int
}

type AdminAccess struct {
	Phone     string    `json:"phone"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}
