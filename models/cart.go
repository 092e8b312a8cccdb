package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartLine struct {
	ID        int        `json:"id"`
	ProductID int        `json:"product_id"`
	Quantity  int        `json:"quantity"`
	UserID    string     `json:"user_id,omitempty"`
	SessionID string     `json:"session_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CartView is a cart line joined with its product snapshot. A line whose
// product has since been deleted or deactivated is kept but flagged
// Unavailable, with placeholder name and zero price.
type CartView struct {
	ID          int             `json:"id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Unavailable bool            `json:"unavailable"`
	CreatedAt   time.Time       `json:"created_at"`
}
