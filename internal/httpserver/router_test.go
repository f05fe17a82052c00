package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"coffeecart/internal/domain"
	"github.com/gin-gonic/gin"
)

func TestBuildRouterRequiresDeps(t *testing.T) {
	if _, err := buildRouter(nil, Deps{}); err == nil {
		t.Fatalf("expected error without storefront")
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestSessionMiddleware_MissingToken(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionMiddleware_UnknownToken(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer stranger")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if api.reg.Len() != 0 {
		t.Fatalf("expected no session for an unknown token")
	}
}

func TestSessionReusedAcrossRequests(t *testing.T) {
	api := newTestAPI(t)
	api.do(http.MethodGet, "/cart", "")
	api.do(http.MethodGet, "/cart", "")
	if api.store.meCalls != 1 {
		t.Fatalf("expected one identity lookup, got %d", api.store.meCalls)
	}
}

func TestEndSession(t *testing.T) {
	api := newTestAPI(t)
	api.store.seedCart(domain.NewProductLine("l1", "p1", "Espresso", 1, 1000, 5, "A"))
	api.do(http.MethodGet, "/cart", "")
	cs, err := api.reg.Get(t.Context(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := api.do(http.MethodDelete, "/session", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if api.reg.Len() != 0 || len(cs.cart.Lines()) != 0 || cs.session.Authenticated() {
		t.Fatalf("expected session torn down")
	}
}

func TestReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/readyz", readyHandler(nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
