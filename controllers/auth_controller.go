package controllers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"bookstore-service/database"
	"bookstore-service/middlewares"
	"bookstore-service/utils"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"omitempty,oneof=customer admin"`
}

// Login verifies credentials against the customers or admins table and
// issues a JWT carrying the user id and role. Admin permissions are not
// embedded in the token; they are loaded per request.
func Login(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOperation("login", ok)
	}()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = utils.RoleCustomer
	}

	var (
		userID       int
		passwordHash string
		err          error
	)
	if req.Role == utils.RoleAdmin {
		err = database.DB.QueryRow(
			"SELECT admin_id, password_hash FROM admins WHERE username = ?", req.Username,
		).Scan(&userID, &passwordHash)
	} else {
		err = database.DB.QueryRow(
			"SELECT customer_id, password_hash FROM customers WHERE username = ?", req.Username,
		).Scan(&userID, &passwordHash)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateToken(userID, req.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "role": req.Role})
}
