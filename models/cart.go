package models

import "time"

type CartItem struct {
	ID         int       `json:"id"`
	CustomerID int       `json:"customer_id"`
	BookID     int       `json:"book_id"`
	Quantity   int       `json:"quantity"`
	AddedAt    time.Time `json:"added_at"`
}

type CartItemDetail struct {
	BookID   int     `json:"book_id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}
