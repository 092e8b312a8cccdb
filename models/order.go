package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is defined out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// Payment outcomes reported by the (external) payment provider.
const (
	OutcomeApproved = "approved"
	OutcomeDeclined = "declined"
	OutcomeCanceled = "canceled"
)

type Order struct {
	ID                int             `json:"id"`
	UserID            string          `json:"user_id,omitempty"`
	OrderDate         time.Time       `json:"order_date"`
	Total             decimal.Decimal `json:"total"`
	Status            OrderStatus     `json:"status"`
	PaymentProvider   string          `json:"payment_provider,omitempty"`
	CheckoutSessionID string          `json:"checkout_session_id,omitempty"`
	PaymentExternalID string          `json:"payment_external_id,omitempty"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	Items             []OrderItem     `json:"items,omitempty"`
}

// OrderItem snapshots product id, quantity and unit price at order-creation
// time; it never tracks later catalog price changes.
type OrderItem struct {
	ID          int             `json:"id"`
	OrderID     int             `json:"order_id"`
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type OrderLineRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

type CreateOrderRequest struct {
	Items []OrderLineRequest `json:"items" binding:"required"`
}

// DemoSession is the checkout session handed to the storefront for the demo
// payment provider.
type DemoSession struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
	SuccessURL  string `json:"successUrl"`
	CancelURL   string `json:"cancelUrl"`
}

// Order lifecycle event types carried on the order events topic.
const (
	OrderEventCreated   = "order_created"
	OrderEventPaid      = "order_paid"
	OrderEventCancelled = "order_cancelled"
)

// OrderEvent is the kafka payload published on order lifecycle changes.
type OrderEvent struct {
	OrderID   int         `json:"order_id"`
	UserID    string      `json:"user_id,omitempty"`
	Status    OrderStatus `json:"status"`
	Total     string      `json:"total"`
	LineCount int         `json:"line_count"`
	EventType string      `json:"event_type"` // order_created, order_paid, order_cancelled
}
