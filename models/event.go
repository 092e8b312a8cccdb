package models

import "time"

// Behavioral event types recorded for the recommendation engine.
const (
	EventAdd      = "add"
	EventPurchase = "purchase"
)

// ProductEvent is an immutable append-only behavioral record. Rows are only
// ever inserted and aggregated, never updated or deleted individually.
type ProductEvent struct {
	ID        int       `json:"id"`
	ProductID int       `json:"product_id"`
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}
