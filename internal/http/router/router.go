package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/market-escrow/internal/config"
	"github.com/ignatzorin/market-escrow/internal/http/handlers"
	"github.com/ignatzorin/market-escrow/internal/http/middleware"
)

// Handlers собирает все хэндлеры API. Notification и Seed необязательны.
type Handlers struct {
	Order        *handlers.OrderHandler
	Dispute      *handlers.DisputeHandler
	Withdrawal   *handlers.WithdrawalHandler
	Payment      *handlers.PaymentHandler
	Notification *handlers.NotificationHandler
	WS           *handlers.WSHandler
	Health       *handlers.HealthHandler
	Seed         *handlers.SeedHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.TokenParser, limitStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	// колбэк шлюза аутентифицируется подписью
	api.POST("/payments/webhook", h.Payment.Webhook)

	if h.Seed != nil && cfg.Env == "development" {
		api.POST("/seed/token", h.Seed.IssueToken)
		api.POST("/seed/products", middleware.AuthMiddleware(tokens), h.Seed.CreateProduct)
	}

	mutating := middleware.RateLimitMiddleware(limitStore, cfg.RateLimitLimit, cfg.RateLimitPeriod)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))
	{
		orders := protected.Group("/orders")
		orders.POST("", mutating, h.Order.CreateOrder)
		orders.GET("/my", h.Order.ListMyOrders)
		orders.GET("/:id", middleware.UUIDValidator("id"), h.Order.GetOrder)
		orders.GET("/:id/history", middleware.UUIDValidator("id"), h.Order.GetOrderHistory)
		orders.POST("/:id/payment-intent", middleware.UUIDValidator("id"), mutating, h.Order.CreatePaymentIntent)
		orders.POST("/:id/complete", middleware.UUIDValidator("id"), mutating, h.Order.CompleteOrder)
		orders.POST("/:id/cancel", middleware.UUIDValidator("id"), mutating, h.Order.CancelOrder)
		orders.POST("/:id/dispute", middleware.UUIDValidator("id"), mutating, h.Order.OpenDispute)
		orders.GET("/:id/dispute", middleware.UUIDValidator("id"), h.Order.GetOrderDispute)

		protected.GET("/disputes", h.Dispute.ListMyDisputes)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), h.Dispute.GetDispute)
		protected.POST("/disputes/:id/cancel", middleware.UUIDValidator("id"), mutating, h.Dispute.CancelDispute)

		protected.GET("/balance", h.Withdrawal.GetBalance)
		protected.GET("/financial-details", h.Withdrawal.GetFinancialDetails)
		protected.PUT("/financial-details", mutating, h.Withdrawal.SaveFinancialDetails)
		protected.GET("/withdrawals", h.Withdrawal.ListWithdrawals)
		protected.POST("/withdrawals", mutating, h.Withdrawal.CreateWithdrawal)

		if h.Notification != nil {
			protected.GET("/notifications", h.Notification.ListNotifications)
			protected.GET("/notifications/unread-count", h.Notification.CountUnread)
			protected.PUT("/notifications/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
		}
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokens), middleware.RequireAdmin())
	{
		admin.GET("/disputes", h.Dispute.ListActiveDisputes)
		admin.POST("/disputes/:id/review", middleware.UUIDValidator("id"), h.Dispute.ReviewDispute)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.Dispute.ResolveDispute)

		admin.GET("/withdrawals", h.Withdrawal.ListQueue)
		admin.POST("/withdrawals/:id/approve", middleware.UUIDValidator("id"), h.Withdrawal.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/reject", middleware.UUIDValidator("id"), h.Withdrawal.RejectWithdrawal)

		admin.GET("/sellers/:id/balance", middleware.UUIDValidator("id"), h.Withdrawal.GetSellerBalance)
	}

	return r
}
