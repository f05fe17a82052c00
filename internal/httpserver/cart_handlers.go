package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"coffeecart/internal/domain"
	"coffeecart/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

type cartResponse struct {
	UserID    string            `json:"userId"`
	State     string            `json:"state"`
	Lines     []domain.CartLine `json:"lines"`
	Total     int64             `json:"total"`
	ItemCount int               `json:"itemCount"`
}

type addItemRequest struct {
	Item     domain.ItemRef `json:"item"`
	Quantity *int           `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type toggleGroupRequest struct {
	Included *bool `json:"included" binding:"required"`
}

func toCartResponse(cs *clientSession) cartResponse {
	snap := cs.cart.Snapshot()
	lines := snap.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return cartResponse{
		UserID:    snap.UserID,
		State:     cs.cart.State().String(),
		Lines:     lines,
		Total:     domain.Total(lines),
		ItemCount: domain.ItemCount(lines),
	}
}

func itemRefParam(c *gin.Context) (domain.ItemRef, error) {
	kind, err := domain.ParseItemKind(c.Param("kind"))
	if err != nil {
		return domain.ItemRef{}, err
	}
	ref := domain.ItemRef{ID: strings.TrimSpace(c.Param("id")), Kind: kind}
	if !ref.Valid() {
		return domain.ItemRef{}, errors.New("item id required")
	}
	return ref, nil
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: "bad_request", Message: msg})
}

func getCartHandler(c *gin.Context) {
	cs := sessionFrom(c)
	if c.Query("refresh") == "true" {
		if err := cs.cart.Load(c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, toCartResponse(cs))
}

func addItemHandler(remote Storefront) gin.HandlerFunc {
	return func(c *gin.Context) {
		cs := sessionFrom(c)
		var req addItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid payload")
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
		if err := cs.cart.Add(c.Request.Context(), *item, qty); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toCartResponse(cs))
	}
}

func updateQuantityHandler(c *gin.Context) {
	cs := sessionFrom(c)
	ref, err := itemRefParam(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "quantity required")
		return
	}
	if err := cs.cart.UpdateQuantity(c.Request.Context(), ref, *req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cs))
}

func removeItemHandler(c *gin.Context) {
	cs := sessionFrom(c)
	ref, err := itemRefParam(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := cs.cart.Remove(c.Request.Context(), ref); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cs))
}

func clearCartHandler(c *gin.Context) {
	cs := sessionFrom(c)
	if err := cs.cart.Clear(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResponse(cs))
}

type groupsResponse struct {
	Groups        []checkout.BrandGroup `json:"groups"`
	SelectedTotal int64                 `json:"selectedTotal"`
}

func groupsHandler(c *gin.Context) {
	cs := sessionFrom(c)
	lines := cs.cart.Lines()
	c.JSON(http.StatusOK, groupsResponse{
		Groups:        cs.selection.Groups(lines),
		SelectedTotal: domain.Total(cs.selection.SelectedLines(lines)),
	})
}

func toggleGroupHandler(c *gin.Context) {
	cs := sessionFrom(c)
	var req toggleGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "included required")
		return
	}
	if err := cs.selection.Toggle(c.Param("brand"), *req.Included); err != nil {
		writeError(c, err)
		return
	}
	groupsHandler(c)
}
