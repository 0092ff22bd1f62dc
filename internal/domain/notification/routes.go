package notification

import (
	"github.com/gin-gonic/gin"

	"zetta/internal/middleware"
)

// RegisterRoutes registers all notification-related routes
func RegisterRoutes(protected *gin.RouterGroup, handler *Handler) {
	notifGroup := protected.Group("/notifications")
	{
		notifGroup.GET("", handler.GetFeed)
		notifGroup.GET("/interests", handler.ListInterests)
		notifGroup.POST("/refresh", handler.Refresh)
		notifGroup.POST("/:id/read", handler.MarkAsRead)
		notifGroup.POST("/read-all", handler.MarkAllAsRead)
		notifGroup.DELETE("/recent/:index", handler.Dismiss)
		notifGroup.PATCH("/sound", handler.ToggleSound)

		selected := notifGroup.Group("/selected")
		{
			selected.GET("", handler.GetSelected)
			selected.PUT("", handler.SetSelected)
			selected.DELETE("", handler.ClearSelected)
		}
	}

	protected.POST("/interests/:id/approve", middleware.AdminOnly(), handler.Approve)
}

// RegisterWSRoutes mounts the browser socket outside the header-auth group.
func RegisterWSRoutes(r gin.IRouter, ws *WSHandler) {
	r.GET("/ws/notifications", ws.HandleWebSocket)
}
