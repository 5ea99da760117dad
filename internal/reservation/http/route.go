package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers reservation routes. Every route needs a login;
// ownership and role checks happen in the service.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/reservations")
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
		group.DELETE("/:id", h.Cancel)
	}

	g.GET("/spaces/:id/availability", authMiddleware, h.Availability)
}
