package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers QR token routes.
func RegisterRoutes(g *gin.RouterGroup, h *QRHandler, authMiddleware, operatorMiddleware gin.HandlerFunc) {
	bookings := g.Group("/bookings")
	bookings.Use(authMiddleware)
	{
		bookings.POST("/:id/qr", h.Issue)
		bookings.GET("/:id/qr", h.Get)
		bookings.DELETE("/:id/qr", operatorMiddleware, h.Invalidate)
	}

	qrGroup := g.Group("/qr")
	qrGroup.Use(authMiddleware, operatorMiddleware)
	{
		qrGroup.POST("/checkin", h.CheckIn)
	}
}
