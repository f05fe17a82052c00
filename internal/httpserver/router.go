package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the collaborators the API routes need.
type Deps struct {
	Storefront  Storefront
	Sessions    *Registry
	CORSOrigins []string
	// Ready reports whether the storefront can be reached.
	Ready func(context.Context) error
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Storefront == nil {
		return nil, errors.New("storefront client required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session registry required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(requestIDMiddleware(), accessLogMiddleware(logger), gin.Recovery(), corsMiddleware(deps.CORSOrigins))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Ready))

	api := router.Group("/")
	api.Use(sessionMiddleware(deps.Sessions))
	{
		api.GET("/cart", getCartHandler)
		api.DELETE("/cart", clearCartHandler)
		api.POST("/cart/items", addItemHandler(deps.Storefront))
		api.PUT("/cart/items/:kind/:id", updateQuantityHandler)
		api.DELETE("/cart/items/:kind/:id", removeItemHandler)
		api.GET("/cart/groups", groupsHandler)
		api.PUT("/cart/groups/:brand", toggleGroupHandler)

		api.POST("/checkout", checkoutHandler)
		api.POST("/checkout/buy-now", buyNowHandler(deps.Storefront))
		api.POST("/checkout/retry-payment", retryPaymentHandler)
		api.GET("/orders/:id", orderHandler(deps.Storefront))
		api.GET("/addresses", addressesHandler(deps.Storefront))

		api.DELETE("/session", func(c *gin.Context) {
			deps.Sessions.End(sessionFrom(c).token)
			c.Status(http.StatusNoContent)
		})
	}

	return router, nil
}
