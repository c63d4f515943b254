package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Piotrek1987/ds-online-shop/internal/cart"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
)

func cartRouter(t *testing.T) (http.Handler, cart.Service) {
	t.Helper()
	svc, err := cart.NewService(cart.ServiceParams{
		Store:   cart.NewMemoryStore(),
		Catalog: testCatalog(t),
		Logger:  logger.Nop(),
	})
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	r := chi.NewRouter()
	r.Get("/cart", CartView(svc, "usd", nil))
	r.Post("/cart/items/{itemId}", CartAdd(svc, "usd", nil))
	r.Delete("/cart/items/{itemId}", CartRemove(svc, "usd", nil))
	r.Patch("/cart/items/{itemId}/{action}", CartUpdate(svc, "usd", nil))
	return r, svc
}

func serveShopper(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withShopper(httptest.NewRequest(method, target, nil)))
	return rec
}

func TestCartAddReportsItemName(t *testing.T) {
	h, _ := cartRouter(t)

	rec := serveShopper(h, http.MethodPost, "/cart/items/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var body cart.ViewDTO
	decodeData(t, rec, &body)
	if body.Message != "Pilsner added to cart!" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if len(body.Lines) != 1 || body.Total != 500 {
		t.Fatalf("unexpected cart %+v", body)
	}
}

func TestCartAddUnknownItem(t *testing.T) {
	h, _ := cartRouter(t)
	if rec := serveShopper(h, http.MethodPost, "/cart/items/42"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestCartViewTotals(t *testing.T) {
	h, _ := cartRouter(t)
	serveShopper(h, http.MethodPost, "/cart/items/1")
	serveShopper(h, http.MethodPost, "/cart/items/1")
	serveShopper(h, http.MethodPost, "/cart/items/3")

	var body cart.ViewDTO
	decodeData(t, serveShopper(h, http.MethodGet, "/cart"), &body)
	if body.Total != 2200 {
		t.Fatalf("expected total 2200, got %d", body.Total)
	}
	if body.TotalDisplay != "22.00 USD" {
		t.Fatalf("unexpected display %q", body.TotalDisplay)
	}
}

func TestCartRemove(t *testing.T) {
	h, _ := cartRouter(t)
	serveShopper(h, http.MethodPost, "/cart/items/1")

	var body cart.ViewDTO
	decodeData(t, serveShopper(h, http.MethodDelete, "/cart/items/1"), &body)
	if body.Message != msgCartUpdated || len(body.Lines) != 0 {
		t.Fatalf("unexpected body %+v", body)
	}

	decodeData(t, serveShopper(h, http.MethodDelete, "/cart/items/1"), &body)
	if body.Message != msgCartNotInCart {
		t.Fatalf("expected not-in-cart message, got %q", body.Message)
	}
}

func TestCartUpdateActions(t *testing.T) {
	h, _ := cartRouter(t)
	serveShopper(h, http.MethodPost, "/cart/items/2")

	var body cart.ViewDTO
	decodeData(t, serveShopper(h, http.MethodPatch, "/cart/items/2/increase"), &body)
	if len(body.Lines) != 1 || body.Lines[0].Quantity != 2 {
		t.Fatalf("expected quantity 2, got %+v", body.Lines)
	}

	decodeData(t, serveShopper(h, http.MethodPatch, "/cart/items/2/decrease"), &body)
	if body.Lines[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %+v", body.Lines)
	}

	if rec := serveShopper(h, http.MethodPatch, "/cart/items/2/double"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rec.Code)
	}
}

func TestCartRequiresSession(t *testing.T) {
	h, _ := cartRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session, got %d", rec.Code)
	}
}
