package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-orchestrator/internal/apperror"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/handlers"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/service"
	"github.com/akylbek/payment-system/checkout-orchestrator/internal/telemetry"
)

type Services struct {
	Payments *service.PaymentService
	Checkout *service.CheckoutService
	Stats    *service.StatsService
	Carts    interfaces.CartStore
	Locker   interfaces.Locker

	ReturnURLHosts []string
}

func NewRouter(svc Services) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		telemetry.Logger.Error("Recovered from panic",
			zap.String("route", c.FullPath()),
			zap.Any("panic", recovered),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, handlers.ErrorResponse{
			ErrorCode:    apperror.CodeInternal,
			ErrorMessage: "Internal server error",
		})
	}))
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	paymentHandler := handlers.NewPaymentHandler(svc.Payments, svc.ReturnURLHosts)
	statsHandler := handlers.NewStatsHandler(svc.Stats)
	payments := r.Group("/api/payment")
	{
		payments.POST("", paymentHandler.CreatePayment)
		payments.POST("/process", paymentHandler.ProcessPayment)
		payments.GET("/stats", statsHandler.GetPaymentStats)
		payments.GET("/methods", statsHandler.ListPaymentMethods)
		payments.GET("/expired", statsHandler.ListExpiredPending)
		payments.GET("/search", statsHandler.Search)
		payments.GET("/transaction/:transactionId", statsHandler.GetByTransactionID)
		payments.GET("/customer/:email", paymentHandler.GetPaymentsByCustomer)
		payments.GET("/customer/:email/successful-count", statsHandler.CountSuccessfulByCustomer)
		payments.GET("/mock-pay/:paymentId", paymentHandler.MockPay)
		payments.GET("/:paymentId", paymentHandler.GetPayment)
		payments.GET("/:paymentId/verify", paymentHandler.VerifyPayment)
		payments.POST("/:paymentId/refund", paymentHandler.RefundPayment)
		payments.POST("/:paymentId/cancel", paymentHandler.CancelPayment)
	}

	checkoutHandler := handlers.NewCheckoutHandler(svc.Checkout)
	checkout := r.Group("/api/checkout")
	{
		checkout.POST("/process", checkoutHandler.ProcessCheckout)
		checkout.POST("/create", checkoutHandler.CreateCheckoutPayment)
		checkout.POST("/summary", checkoutHandler.GetCheckoutSummary)
		checkout.POST("/complete/:paymentId", checkoutHandler.CompleteCheckout)
	}

	cartHandler := handlers.NewCartHandler(svc.Carts, svc.Locker)
	cart := r.Group("/api/cart")
	{
		cart.GET("", cartHandler.GetCart)
		cart.DELETE("", cartHandler.ClearCart)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items/:productId", cartHandler.UpdateItem)
		cart.DELETE("/items/:productId", cartHandler.RemoveItem)
	}

	return r
}
