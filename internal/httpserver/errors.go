package httpserver

import (
	"errors"
	"net/http"

	"coffeecart/internal/domain"
	"coffeecart/internal/remote"
	"coffeecart/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Available *int              `json:"available,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	OrderID   string            `json:"orderId,omitempty"`
	Retryable bool              `json:"retryable"`
	Refresh   bool              `json:"refresh,omitempty"`
}

// writeError maps core errors onto status codes and a body the UI can render.
func writeError(c *gin.Context, err error) {
	status, body := classify(err)
	_ = c.Error(err)
	c.JSON(status, body)
}

func classify(err error) (int, errorBody) {
	var (
		stockErr   *domain.InsufficientStockError
		addrErr    *domain.AddressError
		paymentErr *checkout.PaymentInitiationError
		remoteErr  *remote.Error
	)
	switch {
	case errors.As(err, &paymentErr):
		return http.StatusBadGateway, errorBody{
			Error:     "payment_not_started",
			Message:   "Your order " + paymentErr.OrderID + " was created but the payment could not start. Retry the payment or contact support.",
			OrderID:   paymentErr.OrderID,
			Retryable: true,
		}
	case errors.Is(err, domain.ErrCartStale):
		// The change went through; the UI must re-read the cart, not resend it.
		return http.StatusAccepted, errorBody{
			Error:   "cart_stale",
			Message: "Your cart was updated but could not be refreshed. Reload the cart.",
			Refresh: true,
		}
	case errors.As(err, &stockErr):
		avail := stockErr.Available
		return http.StatusConflict, errorBody{Error: "insufficient_stock", Message: stockErr.Error(), Available: &avail}
	case errors.As(err, &addrErr):
		return http.StatusUnprocessableEntity, errorBody{Error: "invalid_address", Message: addrErr.Error(), Fields: addrErr.Fields}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Error: "unauthenticated", Message: "sign in to continue"}
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, errorBody{Error: "invalid_quantity", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidPayment):
		return http.StatusBadRequest, errorBody{Error: "invalid_payment_method", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidStockData):
		return http.StatusUnprocessableEntity, errorBody{Error: "invalid_stock_data", Message: "stock for this item is unknown"}
	case errors.Is(err, domain.ErrEmptySelection):
		return http.StatusUnprocessableEntity, errorBody{Error: "empty_selection", Message: err.Error()}
	case errors.Is(err, domain.ErrConflictInProgress):
		return http.StatusConflict, errorBody{Error: "conflict_in_progress", Message: err.Error(), Retryable: true}
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict, errorBody{Error: "checkout_in_progress", Message: err.Error(), Retryable: true}
	case errors.Is(err, checkout.ErrNoUnpaidOrder):
		return http.StatusNotFound, errorBody{Error: "no_unpaid_order", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()}
	case errors.As(err, &remoteErr):
		status := http.StatusBadGateway
		if remoteErr.Status == 0 || remoteErr.Status == http.StatusServiceUnavailable {
			status = http.StatusServiceUnavailable
		}
		return status, errorBody{Error: "storefront_error", Message: remoteErr.Error(), Retryable: remoteErr.Retryable()}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal", Message: "something went wrong, please try again", Retryable: true}
	}
}
