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

func ListCategories(c *gin.Context) {
	rows, err := database.DB.Query(
		"SELECT category_id, name, COALESCE(description, '') FROM categories ORDER BY name",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description); err != nil {
			log.Printf("Error scanning category: %v", err)
			continue
		}
		categories = append(categories, cat)
	}

	c.JSON(http.StatusOK, categories)
}

func CreateCategory(c *gin.Context) {
	var cat models.Category
	if err := c.ShouldBindJSON(&cat); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := database.DB.Exec(
		"INSERT INTO categories (name, description) VALUES (?, ?)",
		cat.Name, cat.Description,
	)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Category already exists"})
		return
	}
	categoryID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get category ID"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category_id": categoryID})
}

func UpdateCategory(c *gin.Context) {
	categoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}

	var cat models.Category
	if err := c.ShouldBindJSON(&cat); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := database.DB.Exec(
		"UPDATE categories SET name = ?, description = ? WHERE category_id = ?",
		cat.Name, cat.Description, categoryID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category updated", "category_id": categoryID})
}

type deleteCategoryRequest struct {
	ReassignTo int `json:"reassign_to"`
}

// DeleteCategory removes a category and reassigns its books in the same
// transaction, so no book is ever left pointing at a missing category.
func DeleteCategory(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("delete_category", ok)
	}()

	categoryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category ID"})
		return
	}
	if categoryID == 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete the default category"})
		return
	}

	var req deleteCategoryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.ReassignTo == 0 {
		req.ReassignTo = 1
	}

	tx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start transaction"})
		return
	}
	defer tx.Rollback()

	reassigned, err := tx.Exec(
		"UPDATE books SET category_id = ? WHERE category_id = ?",
		req.ReassignTo, categoryID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reassign books"})
		return
	}

	result, err := tx.Exec("DELETE FROM categories WHERE category_id = ?", categoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed"})
		return
	}

	booksReassigned, _ := reassigned.RowsAffected()
	c.JSON(http.StatusOK, gin.H{
		"message":          "Category deleted",
		"category_id":      categoryID,
		"books_reassigned": booksReassigned,
	})
}
