package storefront

import (
	"context"
	"errors"
	"net/http"
	"time"

	"coffeecart/internal/service/checkout"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Users == nil || deps.Tokens == nil || deps.Catalog == nil || deps.Carts == nil || deps.Orders == nil {
		return nil, errors.New("storefront: repositories are required")
	}
	if deps.Payments == nil {
		return nil, errors.New("storefront: payment links are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	h := &handlers{deps: deps, logger: logger, validate: checkout.NewAddressValidator()}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		if deps.Ready == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/catalog/:kind", h.listCatalog)
	r.GET("/catalog/:kind/:id", h.catalogItem)

	authed := r.Group("/", h.authenticate)
	authed.GET("/auth/me", h.me)
	authed.DELETE("/auth/token", h.revokeToken)
	authed.GET("/addresses", h.addresses)
	authed.POST("/addresses", h.addAddress)

	authed.GET("/cart", h.getCart)
	authed.POST("/cart", h.addToCart)
	authed.PUT("/cart", h.setQuantity)
	authed.DELETE("/cart", h.removeFromCart)
	authed.DELETE("/cart/clear", h.clearCart)
	authed.POST("/cart/remove-items", h.removeItems)

	authed.POST("/orders", h.createOrder)
	authed.GET("/orders/:id", h.getOrder)
	authed.POST("/payment/create-order", h.createPayment)

	return r, nil
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		start := time.Now()
		c.Next()
		logger.Info("storefront request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID),
		)
	}
}
