package models

import "time"

type Book struct {
	ID         int       `json:"book_id"`
	Title      string    `json:"title" binding:"required"`
	Author     string    `json:"author" binding:"required"`
	ISBN       string    `json:"isbn"`
	Price      float64   `json:"price" binding:"required"`
	Stock      int       `json:"stock"`
	TotalSales int       `json:"total_sales"`
	CategoryID int       `json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Category struct {
	ID          int    `json:"category_id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}
