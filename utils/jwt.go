package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin  = "admin"
	RoleWaiter = "waiter"
)

var jwtSecret = []byte("restroflow-dev-secret")

// SetJWTSecret mengganti secret default (dipanggil dari main setelah config dibaca).
func SetJWTSecret(secret string) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
}

// CustomClaims identifies the caller. WaiterID is zero for the top-level admin.
type CustomClaims struct {
	WaiterID uint   `json:"waiter_id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func GenerateToken(waiterID uint, username, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		WaiterID: waiterID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "RestroFlow",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		ErrorLogger.Printf("Error generating token: %v", err)
		return "", err
	}
	return tokenString, nil
}

func ParseToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if claims.Role != RoleAdmin && claims.Role != RoleWaiter {
		return nil, errors.New("invalid role in token")
	}
	if claims.Role == RoleWaiter && claims.WaiterID == 0 {
		return nil, errors.New("invalid waiter id in token")
	}

	return claims, nil
}
