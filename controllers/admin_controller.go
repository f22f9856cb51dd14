package controllers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/models"
)

func ListAdmins(c *gin.Context) {
	rows, err := database.DB.Query(
		"SELECT admin_id, username, is_super, created_at FROM admins ORDER BY admin_id",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer rows.Close()

	admins := []models.Admin{}
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.ID, &a.Username, &a.IsSuper, &a.CreatedAt); err != nil {
			log.Printf("Error scanning admin: %v", err)
			continue
		}
		a.Permissions = []string{}
		admins = append(admins, a)
	}

	byID := map[int]*models.Admin{}
	for i := range admins {
		byID[admins[i].ID] = &admins[i]
	}

	permRows, err := database.DB.Query("SELECT admin_id, permission FROM admin_permissions")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	defer permRows.Close()

	for permRows.Next() {
		var (
			adminID int
			perm    string
		)
		if err := permRows.Scan(&adminID, &perm); err != nil {
			continue
		}
		if a, ok := byID[adminID]; ok {
			a.Permissions = append(a.Permissions, perm)
		}
	}

	c.JSON(http.StatusOK, admins)
}

type createAdminRequest struct {
	Username    string   `json:"username" binding:"required"`
	Password    string   `json:"password" binding:"required,min=8"`
	IsSuper     bool     `json:"is_super"`
	Permissions []string `json:"permissions"`
}

func CreateAdmin(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("create_admin", ok)
	}()

	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start transaction"})
		return
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		"INSERT INTO admins (username, password_hash, is_super) VALUES (?, ?, ?)",
		req.Username, string(hash), req.IsSuper,
	)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
		return
	}
	adminID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get admin ID"})
		return
	}

	for _, perm := range req.Permissions {
		_, err = tx.Exec(
			"INSERT INTO admin_permissions (admin_id, permission) VALUES (?, ?)",
			adminID, perm,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant permission"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"admin_id": adminID})
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"`
}

// UpdateAdminPermissions replaces an admin's grant set in one
// transaction.
func UpdateAdminPermissions(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("update_permissions", ok)
	}()

	adminID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid admin ID"})
		return
	}

	var req updatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not start transaction"})
		return
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT 1 FROM admins WHERE admin_id = ?", adminID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Admin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	_, err = tx.Exec("DELETE FROM admin_permissions WHERE admin_id = ?", adminID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear permissions"})
		return
	}

	for _, perm := range req.Permissions {
		_, err = tx.Exec(
			"INSERT INTO admin_permissions (admin_id, permission) VALUES (?, ?)",
			adminID, perm,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to grant permission"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Transaction commit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Permissions updated", "admin_id": adminID})
}

func DeleteAdmin(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("delete_admin", ok)
	}()

	auth := middlewares.GetAuth(c)
	if auth == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	adminID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid admin ID"})
		return
	}
	if adminID == auth.UserID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	result, err := database.DB.Exec("DELETE FROM admins WHERE admin_id = ?", adminID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Admin not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Admin deleted", "admin_id": adminID})
}
