package httpserver

import (
	"errors"
	"net/http"
	"testing"

	"coffeecart/internal/domain"
)

func TestGetCart(t *testing.T) {
	api := newTestAPI(t)
	api.store.seedCart(
		domain.NewProductLine("l1", "p1", "Espresso", 2, 1000, 5, "A"),
		domain.NewSupplyLine("l2", "s1", "Filters", 1, 2000, 5, "B"),
	)
	rec := api.do(http.MethodGet, "/cart", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[cartResponse](t, rec)
	if got.Total != 4000 || got.ItemCount != 3 || len(got.Lines) != 2 || got.State != "ready" || got.UserID != "u1" {
		t.Fatalf("unexpected cart: %+v", got)
	}
}

func TestAddItemDefaultsToOne(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/cart/items", `{"item":{"id":"p1","kind":"product"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decode[cartResponse](t, rec)
	if got.ItemCount != 1 || got.Total != 1000 {
		t.Fatalf("unexpected cart: %+v", got)
	}

	rec = api.do(http.MethodPost, "/cart/items", `{"item":{"id":"p1","kind":"product"},"quantity":2}`)
	got = decode[cartResponse](t, rec)
	if got.ItemCount != 3 || len(got.Lines) != 1 {
		t.Fatalf("expected line quantity to grow, got %+v", got)
	}
}

func TestAddItemAppliedButReloadFailed(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodGet, "/cart", "")
	api.store.mu.Lock()
	api.store.getCartErr = errors.New("storefront timeout")
	api.store.mu.Unlock()

	rec := api.do(http.MethodPost, "/cart/items", `{"item":{"id":"p1","kind":"product"},"quantity":2}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decode[errorBody](t, rec)
	if body.Error != "cart_stale" || !body.Refresh || body.Retryable {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(api.store.lines) != 1 || api.store.lines[0].Quantity != 2 {
		t.Fatalf("expected the add to be applied once, got %+v", api.store.lines)
	}
}

func TestAddItemInsufficientStock(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/cart/items", `{"item":{"id":"p9","kind":"product"},"quantity":4}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decode[errorBody](t, rec)
	if body.Error != "insufficient_stock" || body.Available == nil || *body.Available != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if len(api.store.lines) != 0 {
		t.Fatalf("cart changed on rejected add")
	}
}

func TestAddItemUnknownStock(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodPost, "/cart/items", `{"item":{"id":"px","kind":"product"}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAddItemBadPayload(t *testing.T) {
	api := newTestAPI(t)
	for _, body := range []string{`{`, `{"item":{"id":"p1","kind":"gadget"}}`, `{"item":{"kind":"product"}}`} {
		rec := api.do(http.MethodPost, "/cart/items", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestUpdateQuantityZeroIsRejected(t *testing.T) {
	api := newTestAPI(t)
	api.store.seedCart(domain.NewProductLine("l1", "p1", "Espresso", 2, 1000, 5, "A"))
	rec := api.do(http.MethodPut, "/cart/items/products/p1", `{"quantity":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decode[errorBody](t, rec).Error != "invalid_quantity" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if api.store.lines[0].Quantity != 2 {
		t.Fatalf("quantity changed")
	}

	rec = api.do(http.MethodPut, "/cart/items/products/p1", `{"quantity":4}`)
	if rec.Code != http.StatusOK || decode[cartResponse](t, rec).Total != 4000 {
		t.Fatalf("expected update to apply, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRemoveItemTwice(t *testing.T) {
	api := newTestAPI(t)
	api.store.seedCart(domain.NewSupplyLine("l2", "s1", "Filters", 1, 2000, 5, "B"))
	for i := 0; i < 2; i++ {
		rec := api.do(http.MethodDelete, "/cart/items/supply/s1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("remove %d: expected 200, got %d body=%s", i, rec.Code, rec.Body.String())
		}
	}
	if api.store.removeCalls != 2 {
		t.Fatalf("expected two remove calls, got %d", api.store.removeCalls)
	}
}

func TestClearCart(t *testing.T) {
	api := newTestAPI(t)
	api.store.seedCart(domain.NewSupplyLine("l2", "s1", "Filters", 1, 2000, 5, "B"))
	rec := api.do(http.MethodDelete, "/cart", "")
	if rec.Code != http.StatusOK || decode[cartResponse](t, rec).ItemCount != 0 {
		t.Fatalf("expected empty cart, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGroupsToggle(t *testing.T) {
	api := newTestAPI(t)
	api.store.seedCart(
		domain.NewProductLine("l1", "p1", "Espresso", 2, 1000, 5, "A"),
		domain.NewSupplyLine("l2", "s1", "Filters", 1, 2000, 5, "B"),
	)
	rec := api.do(http.MethodGet, "/cart/groups", "")
	got := decode[groupsResponse](t, rec)
	if len(got.Groups) != 2 || got.SelectedTotal != 4000 {
		t.Fatalf("unexpected groups: %+v", got)
	}

	rec = api.do(http.MethodPut, "/cart/groups/B", `{"included":false}`)
	got = decode[groupsResponse](t, rec)
	if rec.Code != http.StatusOK || got.SelectedTotal != 2000 || got.Groups[1].Included {
		t.Fatalf("unexpected groups after toggle: %d %+v", rec.Code, got)
	}

	rec = api.do(http.MethodPut, "/cart/items/products/p1", `{"quantity":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %s", rec.Body.String())
	}
	got = decode[groupsResponse](t, api.do(http.MethodGet, "/cart/groups", ""))
	if got.Groups[1].Included || got.SelectedTotal != 3000 {
		t.Fatalf("quantity edit reset the selection: %+v", got)
	}

	rec = api.do(http.MethodPut, "/cart/groups/Nope", `{"included":true}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown brand, got %d", rec.Code)
	}
}
