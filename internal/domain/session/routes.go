package session

import "github.com/gin-gonic/gin"

// RegisterPublicRoutes mounts login, which is how a browser gets its JWT.
func RegisterPublicRoutes(v1 *gin.RouterGroup, handler *Handler) {
	v1.POST("/session/login", handler.Login)
}

func RegisterProtectedRoutes(protected *gin.RouterGroup, handler *Handler) {
	group := protected.Group("/session")
	{
		group.GET("", handler.Current)
		group.POST("/logout", handler.Logout)
	}
}
