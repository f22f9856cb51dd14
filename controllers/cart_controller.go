package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/models"
)

func GetCart(c *gin.Context) {
	auth := middlewares.GetAuth(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := database.DB.Query(`
		SELECT c.book_id, b.title, b.price, c.quantity
		FROM cart_items c
		JOIN books b ON b.book_id = c.book_id
		WHERE c.customer_id = ?
		ORDER BY c.added_at
	`, auth.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	items := []models.CartItemDetail{}
	var total float64
	for rows.Next() {
		var item models.CartItemDetail
		if err := rows.Scan(&item.BookID, &item.Title, &item.Price, &item.Quantity); err != nil {
			log.Printf("Error scanning cart item: %v", err)
			continue
		}
		item.Subtotal = item.Price * float64(item.Quantity)
		total += item.Subtotal
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

type addToCartRequest struct {
	BookID   int `json:"book_id" binding:"required"`
	Quantity int `json:"quantity" binding:"required,min=1"`
}

func AddToCart(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("add_to_cart", ok)
	}()

	auth := middlewares.GetAuth(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var stock int
	err := database.DB.QueryRow("SELECT stock FROM books WHERE book_id = ?", req.BookID).Scan(&stock)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	if stock < req.Quantity {
		c.JSON(http.StatusConflict, gin.H{"error": "Insufficient stock"})
		return
	}

	_, err = database.DB.Exec(`
		INSERT INTO cart_items (customer_id, book_id, quantity)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)
	`, auth.UserID, req.BookID, req.Quantity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Added to cart", "book_id": req.BookID})
}

func RemoveFromCart(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("remove_from_cart", ok)
	}()

	auth := middlewares.GetAuth(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookID, err := strconv.Atoi(c.Param("book_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	result, err := database.DB.Exec(
		"DELETE FROM cart_items WHERE customer_id = ? AND book_id = ?",
		auth.UserID, bookID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from cart", "book_id": bookID})
}
