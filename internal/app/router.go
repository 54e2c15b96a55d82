// internal/app/router.go
package app

import (
	authHandler "rayslaund-service/internal/handlers/auth"
	catalogHandler "rayslaund-service/internal/handlers/catalog"
	chatHandler "rayslaund-service/internal/handlers/chat"
	discountHandler "rayslaund-service/internal/handlers/discount"
	orderHandler "rayslaund-service/internal/handlers/order"
	wsHandler "rayslaund-service/internal/handlers/websocket"
	"rayslaund-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler     *authHandler.AuthHandler
	OrderHandler    *orderHandler.OrderHandler
	ChatHandler     *chatHandler.ChatHandler
	DiscountHandler *discountHandler.DiscountHandler
	CatalogHandler  *catalogHandler.CatalogHandler
	WSHandler       *wsHandler.WebSocketHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Catalog (public) ====================
	api.GET("/catalog", h.CatalogHandler.PriceList)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.PUT("/change-password", h.AuthHandler.ChangePassword)
		authProtected.GET("/me", h.AuthHandler.GetMe)
	}

	// ==================== Orders ====================
	orders := api.Group("/orders")
	orders.Use(h.AuthMiddleware.Auth())
	{
		// Customer
		orders.POST("", h.OrderHandler.Create)
		orders.GET("/mine", h.OrderHandler.ListMine)
		orders.GET("/:order_id", h.OrderHandler.Get)
		orders.POST("/:order_id/confirm-delivery", h.OrderHandler.ConfirmDelivery)

		// Staff/Admin
		operator := orders.Group("")
		operator.Use(h.AuthMiddleware.RequireRole("staff", "admin"))
		{
			operator.GET("/active", h.OrderHandler.ListActive)
			operator.POST("/:order_id/advance", h.OrderHandler.Advance)
		}
	}

	// ==================== Support Chat ====================
	chat := api.Group("/chat")
	chat.Use(h.AuthMiddleware.Auth())
	{
		// Customer
		chat.POST("/messages", h.ChatHandler.SendMessage)
		chat.GET("/thread", h.ChatHandler.GetMyThread)

		// Staff/Admin
		operator := chat.Group("")
		operator.Use(h.AuthMiddleware.RequireRole("staff", "admin"))
		{
			operator.GET("/threads", h.ChatHandler.ListThreads)
			operator.GET("/threads/attention", h.ChatHandler.ListAttention)
			operator.GET("/threads/:customer_id", h.ChatHandler.GetThread)
			operator.POST("/threads/:customer_id/reply", h.ChatHandler.Reply)
			operator.POST("/threads/:customer_id/takeover", h.ChatHandler.TakeOver)
			operator.POST("/threads/:customer_id/release", h.ChatHandler.Release)
		}
	}

	// ==================== Discounts ====================
	discounts := api.Group("/discounts")
	discounts.Use(h.AuthMiddleware.Auth())
	{
		discounts.GET("/mine", h.DiscountHandler.ListMine)
		discounts.POST("/:offer_id/claim", h.DiscountHandler.Claim)
	}

	// ==================== ADMIN ROUTES ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.GET("/users", h.AuthHandler.ListUsers)
		admin.GET("/orders", h.OrderHandler.List)
		admin.GET("/revenue", h.OrderHandler.Revenue)
		admin.POST("/discounts", h.DiscountHandler.Grant)
		admin.GET("/discounts", h.DiscountHandler.ListAll)
		admin.GET("/discounts/status", h.DiscountHandler.StatusByUser)
		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}
