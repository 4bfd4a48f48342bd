package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"vkitchen_back_end/internal/handlers/admin"
	"vkitchen_back_end/internal/handlers/dish"
	"vkitchen_back_end/internal/handlers/newsletter"
	"vkitchen_back_end/internal/handlers/notification"
	"vkitchen_back_end/internal/handlers/order"
	"vkitchen_back_end/internal/handlers/payment"
	"vkitchen_back_end/internal/handlers/shop"
	"vkitchen_back_end/internal/handlers/user"
	"vkitchen_back_end/internal/middleware"
	"vkitchen_back_end/internal/realtime"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps groups everything the route tree needs.
type Deps struct {
	Orders        *order.Handler
	Payments      *payment.Handler
	Notifications *notification.Handler
	Dishes        *dish.Handler
	Hub           *realtime.Hub
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.Use(cors.New(corsConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Auth
	auth := api.Group("/auth")
	{
		auth.POST("/register", middleware.RegisterRateLimit(), user.Register)
		auth.POST("/login", middleware.LoginRateLimit(), user.Login)
		auth.GET("/me", middleware.AuthRequired(), user.Me)
		auth.GET("/:provider", user.BeginAuth)
		auth.GET("/:provider/callback", user.CallbackAuth)
	}

	// Shop status
	api.GET("/shop/status", shop.GetStatus)
	api.PUT("/shop/status", middleware.AuthRequired(), middleware.RequireAdmin, shop.SetStatus)

	// Menu
	menu := api.Group("/dishes")
	{
		menu.GET("", deps.Dishes.List)
		menu.GET("/:dishId", deps.Dishes.Get)
		menu.POST("", middleware.AuthRequired(), middleware.RequireAdmin, deps.Dishes.Create)
		menu.PUT("/:dishId", middleware.AuthRequired(), middleware.RequireAdmin, deps.Dishes.Update)
		menu.DELETE("/:dishId", middleware.AuthRequired(), middleware.RequireAdmin, deps.Dishes.Delete)
	}

	// Orders (customer)
	ord := api.Group("/orders", middleware.AuthRequired())
	{
		ord.POST("", deps.Orders.Create)
		ord.GET("", deps.Orders.MyOrders)
		ord.GET("/:orderId", deps.Orders.Get)
		ord.POST("/:orderId/cancel", deps.Orders.Cancel)
		ord.DELETE("/:orderId", deps.Orders.Delete)
		ord.POST("/:orderId/refund-request", deps.Orders.RequestRefund)
	}

	// Payments
	pay := api.Group("/payments")
	{
		pay.POST("/intent", middleware.AuthRequired(), deps.Payments.CreateIntent)
		pay.POST("/checkout", middleware.AuthRequired(), deps.Payments.Checkout)
		pay.POST("/confirm", middleware.AuthRequired(), deps.Payments.Confirm)
		pay.POST("/webhook", middleware.WebhookRateLimit(), deps.Payments.StripeWebhook)
	}

	// Notifications
	notif := api.Group("/notifications", middleware.AuthRequired())
	{
		notif.GET("", deps.Notifications.List)
		notif.GET("/unread-count", deps.Notifications.UnreadCount)
		notif.PUT("/:notificationId/read", deps.Notifications.MarkRead)
		notif.PUT("/read-all", deps.Notifications.MarkAllRead)
		notif.DELETE("/:notificationId", deps.Notifications.Delete)
	}

	// Newsletter
	api.POST("/newsletter/subscribe", newsletter.Subscribe)
	api.POST("/newsletter/unsubscribe", newsletter.Unsubscribe)

	// Admin
	adm := api.Group("/admin", middleware.AuthRequired(), middleware.RequireAdmin)
	{
		adm.GET("/orders", deps.Orders.AllOrders)
		adm.PUT("/orders/:orderId/status", deps.Orders.UpdateStatus)
		adm.POST("/orders/:orderId/refund", deps.Orders.ProcessRefund)
		adm.DELETE("/orders/:orderId", deps.Orders.AdminDelete)
		adm.GET("/stats", admin.GetDashboardStats)
		adm.GET("/newsletter/subscribers", newsletter.ListSubscribers)
	}

	// Realtime socket (token auth happens inside the handler)
	r.GET("/ws", realtime.ServeWS(deps.Hub))
}

func corsConfig() cors.Config {
	origins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		origins = strings.Split(env, ",")
	}

	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
