package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vortexlabs/cupido-api/config"
)

// TokenLifetime is how long an issued loyalty session token stays valid
const TokenLifetime = 7 * 24 * time.Hour

const userIDContextKey = "loyalty_user_id"

// loyaltyClaims are the registered claims plus the account ID
type loyaltyClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// CreateToken issues a signed session token for a loyalty account
func CreateToken(userID uint) (string, error) {
	claims := loyaltyClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.GetConfig().LoyaltyJWTSecret))
}

// ParseToken validates a session token and returns the account ID
func ParseToken(tokenString string) (uint, error) {
	claims := &loyaltyClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.GetConfig().LoyaltyJWTSecret), nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, errors.New("invalid token")
	}

	return claims.UserID, nil
}

// EnsureValidToken is a middleware that checks the Authorization bearer
// token and stores the account ID on the request context.
func EnsureValidToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortUnauthorized(c, "Missing bearer token")
			return
		}

		userID, err := ParseToken(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// GetUserID extracts the authenticated account ID from the request context
func GetUserID(c *gin.Context) (uint, error) {
	value, exists := c.Get(userIDContextKey)
	if !exists {
		return 0, errors.New("no authenticated user on context")
	}

	userID, ok := value.(uint)
	if !ok {
		return 0, errors.New("unexpected user ID type on context")
	}
	return userID, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
