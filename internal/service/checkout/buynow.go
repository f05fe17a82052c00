package checkout

import "coffeecart/internal/domain"

// BuyNowLine builds a transient line for a single-item purchase. It has no cart
// line id and is never written to the cart.
func BuyNowLine(item domain.CatalogItem, quantity int) (domain.CartLine, error) {
	if !item.Ref.Valid() {
		return domain.CartLine{}, domain.ErrNotFound
	}
	if quantity < 1 {
		return domain.CartLine{}, domain.ErrInvalidQuantity
	}
	stock, ok := item.KnownStock()
	if !ok {
		return domain.CartLine{}, domain.ErrInvalidStockData
	}
	if quantity > stock {
		return domain.CartLine{}, &domain.InsufficientStockError{Item: item.Ref, Requested: quantity, Available: stock}
	}
	return domain.CartLine{
		Item:           item.Ref,
		Name:           item.Name,
		Quantity:       quantity,
		UnitPrice:      item.PriceCents,
		AvailableStock: stock,
		Brand:          item.Brand,
	}, nil
}
