package remote

import (
	"encoding/json"
	"fmt"
	"net/http"

	"coffeecart/internal/domain"
)

const genericMessage = "the store could not complete the request, please try again"

// Error is a transient or unexpected failure reported by the storefront, or a
// transport failure reaching it (Status 0).
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return genericMessage
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same call may succeed.
func (e *Error) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func parseErrorResponse(status int, body []byte) error {
	var er ErrorResponse
	_ = json.Unmarshal(body, &er)

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthenticated
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", fallback(er.Message, "resource"), domain.ErrNotFound)
	case http.StatusConflict:
		if er.Error == CodeInsufficientStock && er.Available != nil {
			return &domain.InsufficientStockError{
				Item:      domain.RefFor(er.ItemID, er.IsProduct),
				Requested: er.Requested,
				Available: *er.Available,
			}
		}
	case http.StatusBadRequest:
		if er.Error == "invalid_quantity" {
			return domain.ErrInvalidQuantity
		}
	}
	return &Error{Status: status, Code: er.Error, Message: er.Message}
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
