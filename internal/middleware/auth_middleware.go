package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bikerental/internal/utils"
)

const (
	ContextKeyUserID   = "user_id"
	ContextKeyUserType = "user_type"
)

// AuthRequired middleware validates JWT token and sets user context
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "INVALID_TOKEN", utils.ErrInvalidToken)
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserType, claims.UserType)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ContextKeyUserID, claims.UserID))

		c.Next()
	}
}

// AdminRequired middleware ensures user is an admin
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userType, exists := c.Get(ContextKeyUserType)
		if !exists {
			utils.UnauthorizedResponse(c)
			return
		}

		if userTypeStr, ok := userType.(string); !ok || userTypeStr != utils.UserTypeAdmin {
			utils.ForbiddenResponse(c)
			return
		}

		c.Next()
	}
}

// UserID returns the authenticated user's id, or "" outside AuthRequired.
func UserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextKeyUserType) == utils.UserTypeAdmin
}
