package notification

import (
	"encoding/json"
	"time"
)

type Notification struct {
	ID        uint            `json:"id"`
	UserID    uint            `json:"user_id"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// PushSubscription is a Web Push endpoint registered by a client.
type PushSubscription struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dh    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}
