package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookstore-service/database"
	"bookstore-service/utils"
)

const authContextKey = "authContext"

// AuthContext is the request-scoped authorization state. It is built
// once per request from the verified token and never mutated afterwards.
type AuthContext struct {
	UserID      int
	Role        string
	SuperAdmin  bool
	Permissions map[string]bool
}

func (a *AuthContext) HasPermission(perm string) bool {
	if a.SuperAdmin {
		return true
	}
	return a.Permissions[perm]
}

// GetAuth returns the AuthContext set by AuthMiddleware, or nil.
func GetAuth(c *gin.Context) *AuthContext {
	v, exists := c.Get(authContextKey)
	if !exists {
		return nil
	}
	auth, ok := v.(*AuthContext)
	if !ok {
		return nil
	}
	return auth
}

// SetAuth is exposed for handler tests.
func SetAuth(c *gin.Context, auth *AuthContext) {
	c.Set(authContextKey, auth)
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		userID, role, err := utils.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		auth := &AuthContext{
			UserID:      userID,
			Role:        role,
			Permissions: map[string]bool{},
		}

		if role == utils.RoleAdmin {
			if err := loadAdminGrants(auth); err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Admin account not found"})
				return
			}
		}

		c.Set(authContextKey, auth)
		c.Next()
	}
}

func loadAdminGrants(auth *AuthContext) error {
	err := database.DB.QueryRow(
		"SELECT is_super FROM admins WHERE admin_id = ?", auth.UserID,
	).Scan(&auth.SuperAdmin)
	if err != nil {
		return err
	}

	rows, err := database.DB.Query(
		"SELECT permission FROM admin_permissions WHERE admin_id = ?", auth.UserID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var perm string
		if err := rows.Scan(&perm); err != nil {
			return err
		}
		auth.Permissions[perm] = true
	}
	return rows.Err()
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := GetAuth(c)
		if auth == nil || auth.Role != utils.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := GetAuth(c)
		if auth == nil || auth.Role != utils.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		if !auth.HasPermission(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission denied: " + perm})
			return
		}
		c.Next()
	}
}

func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := GetAuth(c)
		if auth == nil || !auth.SuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Super admin access required"})
			return
		}
		c.Next()
	}
}
