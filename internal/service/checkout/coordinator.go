// Package checkout drives a purchase from a set of cart lines to a placed order
// and, for online payment, to the payment provider's redirect.
//
// The protocol is strictly sequential: validate the address, create the order,
// start the payment when paying online, then remove exactly the purchased lines
// from the cart. Order creation is the durability point. Nothing after it is
// rolled back; failures after it are reported with the order id so the user can
// recover.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"coffeecart/internal/domain"
	"coffeecart/internal/events"
	"coffeecart/internal/session"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Remote interface {
	CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (string, error)
	CreatePayment(ctx context.Context, token string, lines []domain.CartLine, orderID string) (string, error)
}

// CartPruner removes purchased lines from the cart.
type CartPruner interface {
	RemovePurchased(ctx context.Context, lines []domain.CartLine) error
}

type NextAction string

const (
	// NextRedirect hands the user to the payment provider.
	NextRedirect NextAction = "redirect"
	// NextConfirmation shows the order confirmation.
	NextConfirmation NextAction = "confirmation"
)

type Request struct {
	Lines     []domain.CartLine
	Address   domain.Address
	AddressID string
	Method    domain.PaymentMethod
	// BuyNow lines never came from the cart, so nothing is pruned afterwards.
	BuyNow bool
}

type Result struct {
	Order       domain.PendingOrder `json:"order"`
	Next        NextAction          `json:"next"`
	RedirectURL string              `json:"redirectUrl,omitempty"`
}

type Coordinator struct {
	session   *session.Session
	remote    Remote
	addresses AddressBook
	cart      CartPruner
	publisher events.Publisher
	validate  *validator.Validate
	logger    *zap.Logger

	running atomic.Bool

	mu     sync.Mutex
	unpaid *unpaidOrder
}

type unpaidOrder struct {
	order  domain.PendingOrder
	buyNow bool
}

func New(sess *session.Session, remote Remote, addresses AddressBook, cart CartPruner, publisher events.Publisher, logger *zap.Logger) *Coordinator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		session:   sess,
		remote:    remote,
		addresses: addresses,
		cart:      cart,
		publisher: publisher,
		validate:  NewAddressValidator(),
		logger:    logger,
	}
	sess.OnTeardown(c.forgetUnpaid)
	return c
}

// Run executes one checkout. On a partial completion both a Result (carrying the
// order id) and an error are returned: *PaymentInitiationError when the order
// exists without a payment, *CartCleanupError when the purchase succeeded but the
// cart still holds the purchased lines.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	user, ok := c.session.User()
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	if len(req.Lines) == 0 {
		return nil, domain.ErrEmptySelection
	}
	method, err := domain.ParsePaymentMethod(string(req.Method))
	if err != nil {
		return nil, err
	}
	lines := domain.CloneLines(req.Lines)
	if err := checkLines(lines); err != nil {
		return nil, err
	}

	if !c.running.CompareAndSwap(false, true) {
		return nil, domain.ErrCheckoutInProgress
	}
	defer c.running.Store(false)

	token := c.session.Token()
	addr := req.Address
	if id := strings.TrimSpace(req.AddressID); id != "" {
		addr, err = resolveSavedAddress(ctx, c.addresses, token, id)
		if err != nil {
			return nil, err
		}
	}
	addr = NormalizeAddress(addr)
	if err := ValidateAddress(c.validate, addr); err != nil {
		c.logger.Info("checkout rejected: invalid address", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	pending := domain.PendingOrder{
		Lines:   lines,
		Address: addr,
		Method:  method,
		Total:   domain.Total(lines),
	}
	orderID, err := c.remote.CreateOrder(ctx, token, domain.OrderRequest{
		Lines:           lines,
		ShippingAddress: addr,
		PaymentMethod:   method,
		TotalAmount:     pending.Total,
	})
	if err != nil {
		c.logger.Warn("order creation failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("create order: %w", err)
	}
	pending.OrderID = orderID
	c.logger.Info("order created",
		zap.String("user_id", user.ID), zap.String("order_id", orderID),
		zap.String("payment_method", string(method)), zap.Int64("total", pending.Total))
	c.publish(ctx, events.Event{
		Type:          events.OrderCreated,
		UserID:        user.ID,
		OrderID:       orderID,
		PaymentMethod: string(method),
		TotalAmount:   pending.Total,
		LineCount:     len(lines),
	})

	if method == domain.PaymentCashOnDelivery {
		res := &Result{Order: pending, Next: NextConfirmation}
		return c.finish(ctx, user, res, req.BuyNow)
	}
	return c.startPayment(ctx, user, token, pending, req.BuyNow)
}

// RetryPayment starts the payment again for the last order whose payment could
// not be initiated. The order is not created a second time.
func (c *Coordinator) RetryPayment(ctx context.Context) (*Result, error) {
	user, ok := c.session.User()
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	c.mu.Lock()
	unpaid := c.unpaid
	c.mu.Unlock()
	if unpaid == nil {
		return nil, ErrNoUnpaidOrder
	}

	if !c.running.CompareAndSwap(false, true) {
		return nil, domain.ErrCheckoutInProgress
	}
	defer c.running.Store(false)

	return c.startPayment(ctx, user, c.session.Token(), unpaid.order, unpaid.buyNow)
}

// Unpaid returns the order waiting for a payment retry, if any.
func (c *Coordinator) Unpaid() (domain.PendingOrder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unpaid == nil {
		return domain.PendingOrder{}, false
	}
	return c.unpaid.order, true
}

func (c *Coordinator) startPayment(ctx context.Context, user domain.User, token string, pending domain.PendingOrder, buyNow bool) (*Result, error) {
	redirect, err := c.remote.CreatePayment(ctx, token, pending.Lines, pending.OrderID)
	if err != nil {
		c.mu.Lock()
		c.unpaid = &unpaidOrder{order: pending, buyNow: buyNow}
		c.mu.Unlock()
		c.logger.Error("payment initiation failed",
			zap.String("user_id", user.ID), zap.String("order_id", pending.OrderID), zap.Error(err))
		c.publish(ctx, events.Event{
			Type:          events.PaymentInitiationFailed,
			UserID:        user.ID,
			OrderID:       pending.OrderID,
			PaymentMethod: string(pending.Method),
			Error:         err.Error(),
		})
		return &Result{Order: pending}, &PaymentInitiationError{OrderID: pending.OrderID, Err: err}
	}

	c.forgetUnpaid()
	c.publish(ctx, events.Event{
		Type:          events.PaymentInitiated,
		UserID:        user.ID,
		OrderID:       pending.OrderID,
		PaymentMethod: string(pending.Method),
		RedirectURL:   redirect,
	})
	res := &Result{Order: pending, Next: NextRedirect, RedirectURL: redirect}
	return c.finish(ctx, user, res, buyNow)
}

// finish prunes the purchased lines unless they never came from the cart.
func (c *Coordinator) finish(ctx context.Context, user domain.User, res *Result, buyNow bool) (*Result, error) {
	orderID := res.Order.OrderID
	if !buyNow && c.cart != nil {
		err := c.cart.RemovePurchased(ctx, res.Order.Lines)
		if errors.Is(err, domain.ErrCartStale) {
			c.logger.Warn("purchased lines removed but cart reload failed",
				zap.String("user_id", user.ID), zap.String("order_id", orderID), zap.Error(err))
			err = nil
		}
		if err != nil {
			c.logger.Warn("cart cleanup failed",
				zap.String("user_id", user.ID), zap.String("order_id", orderID), zap.Error(err))
			c.publish(ctx, events.Event{Type: events.CartCleanupFailed, UserID: user.ID, OrderID: orderID, Error: err.Error()})
			return res, &CartCleanupError{OrderID: orderID, Err: err}
		}
	}
	c.logger.Info("checkout completed", zap.String("user_id", user.ID), zap.String("order_id", orderID))
	c.publish(ctx, events.Event{
		Type:          events.CheckoutCompleted,
		UserID:        user.ID,
		OrderID:       orderID,
		PaymentMethod: string(res.Order.Method),
		TotalAmount:   res.Order.Total,
		LineCount:     len(res.Order.Lines),
	})
	return res, nil
}

func (c *Coordinator) forgetUnpaid() {
	c.mu.Lock()
	c.unpaid = nil
	c.mu.Unlock()
}

// publish never fails a checkout. The publisher is expected to queue rather than
// wait on the broker (events.Async).
func (c *Coordinator) publish(ctx context.Context, e events.Event) {
	if err := c.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		c.logger.Warn("publish checkout event failed",
			zap.String("type", string(e.Type)), zap.String("order_id", e.OrderID), zap.Error(err))
	}
}

func checkLines(lines []domain.CartLine) error {
	for _, l := range lines {
		if !l.Item.Valid() {
			return fmt.Errorf("line %q: %w", l.ID, domain.ErrNotFound)
		}
		if l.Quantity < 1 {
			return domain.ErrInvalidQuantity
		}
		if l.Quantity > l.AvailableStock {
			return &domain.InsufficientStockError{Item: l.Item, Requested: l.Quantity, Available: l.AvailableStock}
		}
	}
	return nil
}

// IsPartialCompletion reports whether err means an order exists even though the
// checkout did not fully succeed.
func IsPartialCompletion(err error) bool {
	var pe *PaymentInitiationError
	var ce *CartCleanupError
	return errors.As(err, &pe) || errors.As(err, &ce)
}
