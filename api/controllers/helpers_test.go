package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Piotrek1987/ds-online-shop/api/middleware"
	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	pkgredis "github.com/Piotrek1987/ds-online-shop/pkg/redis"
	"github.com/Piotrek1987/ds-online-shop/pkg/types"
)

const testSessionID = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func testCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.NewStore(context.Background(), catalog.StaticSource{
		{ID: 1, Name: "Pilsner", Description: "Lager", Price: 500, Category: "Drinks", Subcategory: "Beer"},
		{ID: 2, Name: "Riesling", Description: "White", Price: 1800, Category: "Drinks", Subcategory: "Wine"},
		{ID: 3, Name: "Cheese Board", Description: "Aged", Price: 1200, Category: "Food", Subcategory: "."},
	}, nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return store
}

// withShopper seeds the context the Session and Auth middleware would set.
func withShopper(r *http.Request) *http.Request {
	ctx := middleware.WithSessionID(r.Context(), testSessionID)
	ctx = middleware.WithUser(ctx, 7, "shopper@example.com")
	return r.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error
}

func newTestRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	client, err := pkgredis.NewInMemory()
	if err != nil {
		t.Fatalf("start embedded redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
