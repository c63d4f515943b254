package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Piotrek1987/ds-online-shop/internal/auth"
	"github.com/Piotrek1987/ds-online-shop/internal/cart"
	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	"github.com/Piotrek1987/ds-online-shop/internal/checkout"
	"github.com/Piotrek1987/ds-online-shop/internal/orders"
	"github.com/Piotrek1987/ds-online-shop/internal/payments"
	pkgAuth "github.com/Piotrek1987/ds-online-shop/pkg/auth"
	"github.com/Piotrek1987/ds-online-shop/pkg/auth/session"
	"github.com/Piotrek1987/ds-online-shop/pkg/config"
	"github.com/Piotrek1987/ds-online-shop/pkg/db/models"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/metrics"
	"github.com/Piotrek1987/ds-online-shop/pkg/redis"
)

const testSessionID = "abcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcdefabcd"

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	return nil, fmt.Errorf("not implemented")
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type countingOrderLog struct {
	mu    sync.Mutex
	count int
}

func (l *countingOrderLog) Append(context.Context, orders.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	return nil
}

type routerFixture struct {
	handler http.Handler
	cfg     *config.Config
	orders  *countingOrderLog
}

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Env: "dev", BaseURL: "http://localhost:8080"},
		JWT:      config.JWTConfig{Secret: "secret", Issuer: "ds-online-shop", ExpirationMinutes: 10},
		Session:  config.SessionConfig{CookieName: "shop_session", TTL: time.Hour},
		Payments: config.PaymentsConfig{Currency: "usd"},
		Admin:    config.AdminConfig{Token: "admin-secret"},
	}
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	cfg := testConfig()
	logg := logger.Nop()
	redisClient := newTestRedis(t)

	store, err := catalog.NewStore(context.Background(), catalog.StaticSource{
		{ID: 1, Name: "Pilsner", Price: 500, Category: "Drinks", Subcategory: "Beer"},
		{ID: 3, Name: "Cheese Board", Price: 1200, Category: "Food", Subcategory: "."},
	}, logg)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	carts := cart.NewMemoryStore()
	cartSvc, err := cart.NewService(cart.ServiceParams{Store: carts, Catalog: store, Logger: logg})
	if err != nil {
		t.Fatalf("cart service: %v", err)
	}
	orderLog := &countingOrderLog{}
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Carts:      carts,
		Catalog:    store,
		Orders:     orderLog,
		Authorizer: payments.Always(),
		Hosted:     payments.LocalHosted{},
		Guard:      redisClient,
		Logger:     logg,
		Currency:   "usd",
		SuccessURL: "http://localhost:8080/api/v1/checkout/success",
	})
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}

	reg := prometheus.NewRegistry()
	shopMetrics := metrics.NewShopMetrics(reg)

	handler := NewRouter(cfg, logg, Deps{
		DB:             stubPinger{},
		Redis:          redisClient,
		Metrics:        shopMetrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Sessions:       stubSessionManager{},
		Auth:           stubAuthService{},
		Catalog:        store,
		Cart:           cartSvc,
		Checkout:       checkoutSvc,
	})
	return &routerFixture{handler: handler, cfg: cfg, orders: orderLog}
}

func (f *routerFixture) bearer(t *testing.T) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: 5,
		Email:  "ann@example.com",
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	f := newRouterFixture(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		if rec := f.do(httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, rec.Code)
		}
	}
}

func TestCatalogIsPublicAndSetsSession(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/categories/Drinks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if sid := rec.Header().Get("X-Session-Id"); len(sid) != 64 {
		t.Fatalf("expected a fresh session id, got %q", sid)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), "shop_session=") {
		t.Fatalf("expected session cookie")
	}
}

func TestCartRequiresLogin(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestCartAndCheckoutFlow(t *testing.T) {
	f := newRouterFixture(t)
	auth := f.bearer(t)

	add := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items/1", nil)
	add.Header.Set("Authorization", auth)
	add.Header.Set("X-Session-Id", testSessionID)
	if rec := f.do(add); rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	body := `{"name":"Ann","email":"ann@example.com","address":"1 Main St","card":"4242424242424242"}`
	submit := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
		req.Header.Set("Authorization", auth)
		req.Header.Set("X-Session-Id", testSessionID)
		req.Header.Set("Idempotency-Key", "order-1")
		return f.do(req)
	}

	first := submit()
	if first.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201 got %d: %s", first.Code, first.Body.String())
	}
	replay := submit()
	if replay.Code != http.StatusCreated || replay.Body.String() != first.Body.String() {
		t.Fatalf("expected replayed response, got %d: %s", replay.Code, replay.Body.String())
	}
	if f.orders.count != 1 {
		t.Fatalf("expected exactly one recorded order, got %d", f.orders.count)
	}
}

func TestHostedRedirectCompletesWithSessionCookieOnly(t *testing.T) {
	f := newRouterFixture(t)
	auth := f.bearer(t)

	landing := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	var cookie *http.Cookie
	for _, c := range landing.Result().Cookies() {
		if c.Name == "shop_session" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("expected a session cookie on the first visit")
	}

	withAuth := func(method, target string) *http.Request {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set("Authorization", auth)
		req.AddCookie(cookie)
		return req
	}

	if rec := f.do(withAuth(http.MethodPost, "/api/v1/cart/items/1")); rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	created := f.do(withAuth(http.MethodPost, "/api/v1/checkout/session"))
	if created.Code != http.StatusCreated {
		t.Fatalf("session: expected 201 got %d: %s", created.Code, created.Body.String())
	}
	var hosted struct {
		Data struct {
			RedirectURL string `json:"redirect_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &hosted); err != nil || hosted.Data.RedirectURL == "" {
		t.Fatalf("decode redirect: %v %s", err, created.Body.String())
	}

	follow := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, hosted.Data.RedirectURL, nil)
		req.AddCookie(cookie)
		return f.do(req)
	}
	first := follow()
	if first.Code != http.StatusOK || !strings.Contains(first.Body.String(), `"completed":true`) {
		t.Fatalf("redirect: expected completion, got %d: %s", first.Code, first.Body.String())
	}
	again := follow()
	if again.Code != http.StatusOK || !strings.Contains(again.Body.String(), `"completed":false`) {
		t.Fatalf("repeat redirect: expected a no-op, got %d: %s", again.Code, again.Body.String())
	}

	view := f.do(withAuth(http.MethodGet, "/api/v1/cart"))
	if view.Code != http.StatusOK || !strings.Contains(view.Body.String(), `"lines":[]`) {
		t.Fatalf("expected an empty cart after the redirect, got %d: %s", view.Code, view.Body.String())
	}
	if f.orders.count != 0 {
		t.Fatalf("hosted completion must not append to the order log, got %d", f.orders.count)
	}
}

func TestAdminReloadRequiresToken(t *testing.T) {
	f := newRouterFixture(t)
	if rec := f.do(httptest.NewRequest(http.MethodPost, "/api/admin/v1/catalog/reload", nil)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/catalog/reload", nil)
	req.Header.Set("X-Admin-Token", "admin-secret")
	if rec := f.do(req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_request_duration_seconds") {
		t.Fatalf("expected request metrics in output")
	}
}

func TestStripeWebhookRouteNeedsSecret(t *testing.T) {
	f := newRouterFixture(t)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected webhook route to be absent without a secret, got %d", rec.Code)
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client, err := redis.NewInMemory()
	if err != nil {
		t.Fatalf("start embedded redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
