package models

import (
	"time"
)

// Order status values. "pending" still appears in legacy rows and is
// normalized to "confirmed" when orders are read back.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

type Order struct {
	ID              int       `json:"order_id"`
	CustomerID      int       `json:"customer_id"`
	OrderDate       time.Time `json:"order_date"`
	TotalAmount     float64   `json:"total_amount"`
	Status          string    `json:"status"`
	ShippingAddress string    `json:"shipping_address,omitempty"`
	ContactPhone    string    `json:"contact_phone,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type OrderItem struct {
	OrderID   int     `json:"order_id"`
	BookID    int     `json:"book_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type OrderResponse struct {
	ID          int               `json:"order_id"`
	CustomerID  int               `json:"customer_id"`
	OrderDate   time.Time         `json:"order_date"`
	TotalAmount float64           `json:"total_amount"`
	Status      string            `json:"status"`
	Items       []OrderItemDetail `json:"items"`
}

type OrderItemDetail struct {
	BookID    int     `json:"book_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type OrderEvent struct {
	OrderID  int       `json:"order_id"`
	Type     string    `json:"type"` // created, status_updated, payment_check, overpaid
	Status   string    `json:"status,omitempty"`
	Total    float64   `json:"total,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// NormalizeOrderStatus maps the legacy "pending" value to "confirmed"
// for display, leaving every other status untouched.
func NormalizeOrderStatus(status string) string {
	if status == OrderPending {
		return OrderConfirmed
	}
	return status
}

// ActionableOrderStatuses are the states in which an order's items are
// expected to exist and its stock to have been adjusted.
func ActionableOrderStatuses() []string {
	return []string{OrderConfirmed, OrderShipped, OrderDelivered}
}
