package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"workspace-app/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserName  = "user_name"
)

// Auth requires a valid bearer token and narrows the request context:
// every stage behind it can assume a non-empty user id.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		jwtKey := []byte(config.JWT_SECRET)
		if len(jwtKey) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtKey, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		c.Set(ctxUserID, sub)
		if email, ok := claims["email"].(string); ok {
			c.Set(ctxUserEmail, email)
		}
		if name, ok := claims["name"].(string); ok {
			c.Set(ctxUserName, name)
		}

		c.Next()
	}
}

// UserID returns the authenticated user's id. Empty outside the
// authenticated tier.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

func UserEmail(c *gin.Context) string {
	return c.GetString(ctxUserEmail)
}

func UserName(c *gin.Context) string {
	return c.GetString(ctxUserName)
}
