package driver

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

var vehicleTypes = map[string]bool{
	"motorcycle": true,
	"bicycle":    true,
	"car":        true,
}

// Application is a customer's request to become a delivery driver.
type Application struct {
	ID               uint       `json:"id"`
	UserID           uint       `json:"user_id"`
	UserName         string     `json:"user_name,omitempty"`
	UserPhone        string     `json:"user_phone,omitempty"`
	PersonalPhotoURL string     `json:"personal_photo_url"`
	IDPhotoURL       string     `json:"id_photo_url"`
	VehiclePhotoURL  string     `json:"vehicle_photo_url"`
	VehicleType      string     `json:"vehicle_type"`
	Status           Status     `json:"status"`
	ReviewerID       *uint      `json:"reviewer_id,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	Notes            string     `json:"notes"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Input struct {
	PersonalPhotoURL string `json:"personal_photo_url"`
	IDPhotoURL       string `json:"id_photo_url"`
	VehiclePhotoURL  string `json:"vehicle_photo_url"`
	VehicleType      string `json:"vehicle_type"`
}
