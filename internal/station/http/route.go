package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers station routes. Reads are open to any
// authenticated user; writes require operator access.
func RegisterRoutes(g *gin.RouterGroup, h *StationHandler, authMiddleware, operatorMiddleware gin.HandlerFunc) {
	stations := g.Group("/stations")
	stations.Use(authMiddleware)
	{
		stations.GET("", h.List)
		stations.GET("/:id", h.Get)

		stations.POST("", operatorMiddleware, h.Create)
		stations.PATCH("/:id", operatorMiddleware, h.Update)
		stations.DELETE("/:id", operatorMiddleware, h.Delete)
	}
}
