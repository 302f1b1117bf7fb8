package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IT22056320/ev-booking-backend/internal/auth"
	"github.com/IT22056320/ev-booking-backend/internal/user"
)

// RequireOperator ensures the authenticated user has operator access.
// It MUST be used after auth.AuthRequired middleware.
func RequireOperator(userService user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		u, err := userService.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		if !u.IsOperator {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: operator access required"})
			return
		}

		c.Next()
	}
}
