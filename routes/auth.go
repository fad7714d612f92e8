package routes

import (
	"github.com/Krish-Depani/order-session-api/controllers"
	"github.com/gin-gonic/gin"
)

// setupAuthRoutes registers the unauthenticated session endpoints. Logout
// reads the bearer token itself so it stays idempotent for ended sessions.
func setupAuthRoutes(api *gin.RouterGroup, authController *controllers.AuthController) {
	auth := api.Group("/auth")
	{
		auth.POST("/login", authController.Login)
		auth.POST("/logout", authController.Logout)
		auth.POST("/refresh-token", authController.RefreshToken)
	}
}
