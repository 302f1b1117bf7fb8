package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers booking routes. All of them require
// authentication; ownership and operator checks happen in the handlers
// because several endpoints mix both access levels.
func RegisterRoutes(g *gin.RouterGroup, h *BookingHandler, authMiddleware, operatorMiddleware gin.HandlerFunc) {
	bookings := g.Group("/bookings")
	bookings.Use(authMiddleware)
	{
		bookings.POST("", h.Create)
		bookings.GET("", h.List)
		bookings.GET("/availability", h.CheckAvailability)
		bookings.GET("/stats", operatorMiddleware, h.Stats)
		bookings.GET("/:id", h.Get)
		bookings.PATCH("/:id", h.Update)
		bookings.PATCH("/:id/status", h.UpdateStatus)
		bookings.DELETE("/:id", h.Delete)
	}
}
