package controllers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/models"
)

func ListBooks(c *gin.Context) {
	query := `
		SELECT book_id, title, author, COALESCE(isbn, ''), price, stock, total_sales, category_id, created_at
		FROM books
	`
	var args []interface{}
	if categoryID := c.Query("category_id"); categoryID != "" {
		id, err := strconv.Atoi(categoryID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
			return
		}
		query += " WHERE category_id = ?"
		args = append(args, id)
	}
	query += " ORDER BY title"

	rows, err := database.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Price, &b.Stock, &b.TotalSales, &b.CategoryID, &b.CreatedAt); err != nil {
			log.Printf("Error scanning book: %v", err)
			continue
		}
		books = append(books, b)
	}

	c.JSON(http.StatusOK, books)
}

func GetBook(c *gin.Context) {
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	var b models.Book
	err = database.DB.QueryRow(`
		SELECT book_id, title, author, COALESCE(isbn, ''), price, stock, total_sales, category_id, created_at
		FROM books
		WHERE book_id = ?
	`, bookID).Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Price, &b.Stock, &b.TotalSales, &b.CategoryID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, b)
}

func CreateBook(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("create_book", ok)
	}()

	var b models.Book
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if b.CategoryID == 0 {
		b.CategoryID = 1
	}

	result, err := database.DB.Exec(
		"INSERT INTO books (title, author, isbn, price, stock, category_id) VALUES (?, ?, NULLIF(?, ''), ?, ?, ?)",
		b.Title, b.Author, b.ISBN, b.Price, b.Stock, b.CategoryID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create book"})
		return
	}
	bookID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get book ID"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"book_id": bookID})
}

func UpdateBook(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("update_book", ok)
	}()

	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	var b models.Book
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if b.CategoryID == 0 {
		b.CategoryID = 1
	}

	result, err := database.DB.Exec(
		"UPDATE books SET title = ?, author = ?, isbn = NULLIF(?, ''), price = ?, stock = ?, category_id = ? WHERE book_id = ?",
		b.Title, b.Author, b.ISBN, b.Price, b.Stock, b.CategoryID, bookID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update book"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Book updated", "book_id": bookID})
}

func DeleteBook(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("delete_book", ok)
	}()

	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID"})
		return
	}

	result, err := database.DB.Exec("DELETE FROM books WHERE book_id = ?", bookID)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Book cannot be deleted while referenced by orders"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Book deleted", "book_id": bookID})
}
