package storefront

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"coffeecart/internal/domain"
	"coffeecart/internal/remote"
	"coffeecart/internal/repository/order"
	"coffeecart/internal/service/checkout"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	userKey  = "storefront.user"
	tokenKey = "storefront.token"
)

type handlers struct {
	deps     Deps
	logger   *zap.Logger
	validate *validator.Validate
}

func (h *handlers) authenticate(c *gin.Context) {
	raw := c.GetHeader("Authorization")
	tok := strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" || tok == "" || tok == raw {
		h.fail(c, domain.ErrUnauthenticated)
		return
	}
	t, err := h.deps.Tokens.Get(c.Request.Context(), tok)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrUnauthenticated
		}
		h.fail(c, err)
		return
	}
	if t.Expired(h.deps.Now()) {
		h.fail(c, domain.ErrUnauthenticated)
		return
	}
	u, err := h.deps.Users.GetByID(c.Request.Context(), t.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrUnauthenticated
		}
		h.fail(c, err)
		return
	}
	c.Set(userKey, u)
	c.Set(tokenKey, tok)
	c.Next()
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := c.MustGet(userKey).(*domain.User)
	return u
}

func (h *handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// revokeToken signs the caller out everywhere the token is used.
func (h *handlers) revokeToken(c *gin.Context) {
	if err := h.deps.Tokens.Delete(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) addresses(c *gin.Context) {
	list, err := h.deps.Users.Addresses(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, remote.AddressesResponse{Addresses: list})
}

func (h *handlers) addAddress(c *gin.Context) {
	var a domain.Address
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, remote.ErrorResponse{Error: "invalid_body", Message: err.Error()})
		return
	}
	a = checkout.NormalizeAddress(a)
	a.ID = ""
	if err := checkout.ValidateAddress(h.validate, a); err != nil {
		h.fail(c, err)
		return
	}
	saved, err := h.deps.Users.AddAddress(c.Request.Context(), currentUser(c).ID, a)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (h *handlers) listCatalog(c *gin.Context) {
	kind, err := domain.ParseItemKind(c.Param("kind"))
	if err != nil {
		h.fail(c, fmt.Errorf("%s: %w", c.Param("kind"), domain.ErrNotFound))
		return
	}
	items, err := h.deps.Catalog.List(c.Request.Context(), kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handlers) catalogItem(c *gin.Context) {
	kind, err := domain.ParseItemKind(c.Param("kind"))
	if err != nil {
		h.fail(c, fmt.Errorf("%s: %w", c.Param("kind"), domain.ErrNotFound))
		return
	}
	ref := domain.ItemRef{ID: c.Param("id"), Kind: kind}
	if err := checkRef(ref); err != nil {
		h.fail(c, err)
		return
	}
	item, err := h.deps.Catalog.Get(c.Request.Context(), ref)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handlers) getCart(c *gin.Context) {
	lines, err := h.deps.Carts.Lines(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := remote.CartResponse{Items: make([]remote.CartItem, 0, len(lines))}
	for _, l := range lines {
		resp.Items = append(resp.Items, remote.WireLine(l))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) addToCart(c *gin.Context) {
	ref, qty, ok := h.bindMutation(c, true)
	if !ok {
		return
	}
	if err := h.deps.Carts.Add(c.Request.Context(), currentUser(c).ID, ref, qty); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) setQuantity(c *gin.Context) {
	ref, qty, ok := h.bindMutation(c, true)
	if !ok {
		return
	}
	if err := h.deps.Carts.SetQuantity(c.Request.Context(), currentUser(c).ID, ref, qty); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) removeFromCart(c *gin.Context) {
	ref, _, ok := h.bindMutation(c, false)
	if !ok {
		return
	}
	if err := h.deps.Carts.Remove(c.Request.Context(), currentUser(c).ID, ref); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.deps.Carts.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) removeItems(c *gin.Context) {
	var req remote.RemoveItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, remote.ErrorResponse{Error: "invalid_body", Message: err.Error()})
		return
	}
	ids := make([]string, 0, len(req.CartItemIDs))
	for _, id := range req.CartItemIDs {
		if _, err := uuid.Parse(id); err == nil {
			ids = append(ids, id)
		}
	}
	removed, err := h.deps.Carts.RemoveLines(c.Request.Context(), currentUser(c).ID, ids)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (h *handlers) createOrder(c *gin.Context) {
	var req remote.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, remote.ErrorResponse{Error: "invalid_body", Message: err.Error()})
		return
	}
	method, err := domain.ParsePaymentMethod(string(req.PaymentMethod))
	if err != nil {
		h.fail(c, err)
		return
	}
	addr := checkout.NormalizeAddress(req.ShippingAddress)
	if err := checkout.ValidateAddress(h.validate, addr); err != nil {
		h.fail(c, err)
		return
	}

	in := order.CreateInput{
		UserID:        currentUser(c).ID,
		Method:        method,
		Currency:      h.deps.Currency,
		Address:       addr,
		ExpectedTotal: req.TotalAmount,
	}
	for _, it := range req.Items {
		ref := domain.RefFor(it.ItemID, it.IsProduct)
		if err := checkRef(ref); err != nil {
			h.fail(c, err)
			return
		}
		in.Lines = append(in.Lines, order.LineInput{Item: ref, Quantity: it.Quantity})
	}

	created, err := h.deps.Orders.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.String("payment_method", string(created.PaymentMethod)),
		zap.Int64("total_cents", created.TotalCents))
	c.JSON(http.StatusCreated, remote.CreateOrderResponse{OrderID: created.ID})
}

func (h *handlers) getOrder(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.fail(c, fmt.Errorf("order %s: %w", id, domain.ErrNotFound))
		return
	}
	o, err := h.deps.Orders.Get(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// createPayment starts a hosted checkout for an unpaid online order. The item
// amounts sent by the caller must add up to the recorded order total.
func (h *handlers) createPayment(c *gin.Context) {
	var req remote.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, remote.ErrorResponse{Error: "invalid_body", Message: err.Error()})
		return
	}
	if _, err := uuid.Parse(req.OrderID); err != nil {
		h.fail(c, fmt.Errorf("order %s: %w", req.OrderID, domain.ErrNotFound))
		return
	}
	userID := currentUser(c).ID
	o, err := h.deps.Orders.Get(c.Request.Context(), userID, req.OrderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	switch {
	case o.PaymentMethod != domain.PaymentOnline:
		h.fail(c, errNotOnline)
		return
	case o.Status == domain.OrderStatusConfirmed:
		h.fail(c, errAlreadyPaid)
		return
	}

	amount := decimal.Zero
	for _, it := range req.Items {
		amount = amount.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !amount.Equal(remote.CentsToDecimal(o.TotalCents)) {
		h.fail(c, order.ErrTotalMismatch)
		return
	}

	ref, redirect := h.deps.Payments.Create(o.ID, amount, o.Currency)
	if err := h.deps.Orders.MarkPaymentStarted(c.Request.Context(), userID, o.ID, ref); err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("payment started", zap.String("order_id", o.ID), zap.String("payment_ref", ref))
	c.JSON(http.StatusCreated, remote.CreatePaymentResponse{RedirectURL: redirect})
}

func (h *handlers) bindMutation(c *gin.Context, needQuantity bool) (domain.ItemRef, int, bool) {
	var req remote.CartMutation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, remote.ErrorResponse{Error: "invalid_body", Message: err.Error()})
		return domain.ItemRef{}, 0, false
	}
	ref := domain.RefFor(req.ItemID, req.IsProduct)
	if err := checkRef(ref); err != nil {
		h.fail(c, err)
		return domain.ItemRef{}, 0, false
	}
	if needQuantity && req.Quantity < 1 {
		h.fail(c, domain.ErrInvalidQuantity)
		return domain.ItemRef{}, 0, false
	}
	return ref, req.Quantity, true
}

// checkRef rejects ids that cannot exist in the catalog tables.
func checkRef(ref domain.ItemRef) error {
	if _, err := uuid.Parse(ref.ID); err != nil {
		return fmt.Errorf("%s %s: %w", ref.Kind, ref.ID, domain.ErrNotFound)
	}
	return nil
}
