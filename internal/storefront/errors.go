package storefront

import (
	"errors"
	"net/http"

	"coffeecart/internal/domain"
	"coffeecart/internal/remote"
	"coffeecart/internal/repository/order"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errNotOnline   = errors.New("order is not paid online")
	errAlreadyPaid = errors.New("order is already confirmed")
)

func (h *handlers) fail(c *gin.Context, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("storefront request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, remote.ErrorResponse) {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		available := stockErr.Available
		return http.StatusConflict, remote.ErrorResponse{
			Error:     remote.CodeInsufficientStock,
			Message:   stockErr.Error(),
			Available: &available,
			Requested: stockErr.Requested,
			ItemID:    stockErr.Item.ID,
			IsProduct: stockErr.Item.IsProduct(),
		}
	}
	var addrErr *domain.AddressError
	if errors.As(err, &addrErr) {
		return http.StatusUnprocessableEntity, remote.ErrorResponse{Error: "invalid_address", Message: addrErr.Error()}
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, remote.ErrorResponse{Error: "unauthenticated", Message: "a valid bearer token is required"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, remote.ErrorResponse{Error: "not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest, remote.ErrorResponse{Error: "invalid_quantity", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidPayment):
		return http.StatusBadRequest, remote.ErrorResponse{Error: "invalid_payment", Message: err.Error()}
	case errors.Is(err, domain.ErrEmptySelection):
		return http.StatusBadRequest, remote.ErrorResponse{Error: "empty_order", Message: "an order needs at least one item"}
	case errors.Is(err, order.ErrTotalMismatch):
		return http.StatusConflict, remote.ErrorResponse{Error: "total_mismatch", Message: "prices changed, refresh your cart and try again"}
	case errors.Is(err, errNotOnline):
		return http.StatusConflict, remote.ErrorResponse{Error: "not_online", Message: err.Error()}
	case errors.Is(err, errAlreadyPaid):
		return http.StatusConflict, remote.ErrorResponse{Error: "already_paid", Message: err.Error()}
	default:
		return http.StatusInternalServerError, remote.ErrorResponse{Error: "internal", Message: "internal error"}
	}
}
