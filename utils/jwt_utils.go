package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookstore-service/config"
)

// Roles carried in the token. Permissions are not embedded; they are
// loaded from the database once per request so revocation takes effect
// immediately.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

func GenerateToken(userID int, role string) (string, error) {
	cfg := config.LoadConfig()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func ParseToken(tokenString string) (int, string, error) {
	cfg := config.LoadConfig()
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, "", errors.New("token missing user_id")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return 0, "", errors.New("token missing role")
	}

	return int(userID), role, nil
}
