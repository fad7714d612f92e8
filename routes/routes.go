package routes

import (
	"net/http"

	"github.com/Krish-Depani/order-session-api/controllers"
	"github.com/Krish-Depani/order-session-api/utils"
	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Auth      *controllers.AuthController
	User      *controllers.UserController
	Product   *controllers.ProductController
	Order     *controllers.OrderController
	OrderItem *controllers.OrderItemController
}

func SetupRoutes(router *gin.Engine, ctrl Controllers) {
	router.GET("/", func(c *gin.Context) {
		utils.Success(c, http.StatusOK, "Order session API is running", nil)
	})

	api := router.Group("/api")
	setupAuthRoutes(api, ctrl.Auth)

	protected := api.Group("")
	protected.Use(ctrl.Auth.AuthMiddleware())

	user := protected.Group("/user")
	{
		user.GET("/", ctrl.User.GetUserStatus)
		user.GET("/me", ctrl.User.GetCurrentUser)
		user.GET("/sessions", ctrl.User.GetActiveSessions)
		user.POST("/list", ctrl.User.List)
		user.POST("/create", ctrl.User.Create)
		user.PUT("/update", ctrl.User.Update)
		user.DELETE("/:id", ctrl.User.Delete)
	}

	product := protected.Group("/product")
	{
		product.GET("/", ctrl.Product.GetProductStatus)
		product.POST("/list", ctrl.Product.List)
		product.POST("/create", ctrl.Product.Create)
		product.POST("/bulk-create", ctrl.Product.BulkCreate)
		product.POST("/summary", ctrl.Product.Summary)
		product.POST("/top-selling", ctrl.Product.TopSelling)
	}

	order := protected.Group("/order")
	{
		order.POST("/", ctrl.Order.GetOrders)
		order.POST("/list", ctrl.Order.List)
		order.POST("/create", ctrl.Order.Create)
		order.POST("/detail", ctrl.Order.Detail)
		order.POST("/my-orders", ctrl.Order.MyOrders)
		order.POST("/by-user", ctrl.Order.ByUser)
		order.POST("/summary", ctrl.Order.Summary)
	}

	orderItem := protected.Group("/order-item")
	{
		orderItem.GET("/", ctrl.OrderItem.GetOrderItemStatus)
		orderItem.POST("/list", ctrl.OrderItem.List)
		orderItem.POST("/create", ctrl.OrderItem.Create)
		orderItem.POST("/detail", ctrl.OrderItem.Detail)
	}
}

// NewRouter builds the gin engine with logging, recovery and every route.
func NewRouter(ctrl Controllers) *gin.Engine {
	router := gin.New()
	router.Use(controllers.RequestLogger(), gin.Recovery())
	SetupRoutes(router, ctrl)
	return router
}
