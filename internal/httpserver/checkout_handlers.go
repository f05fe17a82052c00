package httpserver

import (
	"errors"
	"net/http"

	"coffeecart/internal/domain"
	"coffeecart/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	AddressID     string         `json:"addressId"`
	Address       domain.Address `json:"address"`
	PaymentMethod string         `json:"paymentMethod" binding:"required"`
}

type buyNowRequest struct {
	checkoutRequest
	Item     domain.ItemRef `json:"item"`
	Quantity *int           `json:"quantity"`
}

type checkoutResponse struct {
	*checkout.Result
	Warning string `json:"warning,omitempty"`
}

func runCheckout(c *gin.Context, cs *clientSession, req checkout.Request) {
	res, err := cs.checkout.Run(c.Request.Context(), req)
	respondCheckout(c, res, err)
}

func respondCheckout(c *gin.Context, res *checkout.Result, err error) {
	var cleanupErr *checkout.CartCleanupError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, checkoutResponse{Result: res})
	case errors.As(err, &cleanupErr):
		_ = c.Error(err)
		c.JSON(http.StatusCreated, checkoutResponse{
			Result:  res,
			Warning: "Your order was placed, but the purchased items are still in your cart. Refresh the cart to remove them.",
		})
	default:
		writeError(c, err)
	}
}

// checkoutHandler buys the lines of the included brand groups.
func checkoutHandler(c *gin.Context) {
	cs := sessionFrom(c)
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "paymentMethod required")
		return
	}
	lines := cs.selection.SelectedLines(cs.cart.Lines())
	runCheckout(c, cs, checkout.Request{
		Lines:     lines,
		Address:   req.Address,
		AddressID: req.AddressID,
		Method:    domain.PaymentMethod(req.PaymentMethod),
	})
}

// buyNowHandler buys a single catalog item without touching the cart.
func buyNowHandler(remote Storefront) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs := sessionFrom(c)
		var req buyNowRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "item and paymentMethod required")
			return
		}
		if !req.Item.Valid() {
			badRequest(c, "item id and kind required")
			return
		}
		qty := 1
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		item, err := remote.Item(c.Request.Context(), cs.token, req.Item)
		if err != nil {
			writeError(c, err)
			return
		}
		line, err := checkout.BuyNowLine(*item, qty)
		if err != nil {
			writeError(c, err)
			return
		}
		runCheckout(c, cs, checkout.Request{
			Lines:     []domain.CartLine{line},
			Address:   req.Address,
			AddressID: req.AddressID,
			Method:    domain.PaymentMethod(req.PaymentMethod),
			BuyNow:    true,
		})
	}
}

func retryPaymentHandler(c *gin.Context) {
	cs := sessionFrom(c)
	res, err := cs.checkout.RetryPayment(c.Request.Context())
	respondCheckout(c, res, err)
}

func orderHandler(remote Storefront) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs := sessionFrom(c)
		order, err := remote.Order(c.Request.Context(), cs.token, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func addressesHandler(remote Storefront) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs := sessionFrom(c)
		addrs, err := remote.Addresses(c.Request.Context(), cs.token)
		if err != nil {
			writeError(c, err)
			return
		}
		if addrs == nil {
			addrs = []domain.Address{}
		}
		c.JSON(http.StatusOK, gin.H{"addresses": addrs})
	}
}
