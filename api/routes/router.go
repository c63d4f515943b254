package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Piotrek1987/ds-online-shop/api/controllers"
	"github.com/Piotrek1987/ds-online-shop/api/middleware"
	"github.com/Piotrek1987/ds-online-shop/internal/auth"
	"github.com/Piotrek1987/ds-online-shop/internal/cart"
	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	checkoutsvc "github.com/Piotrek1987/ds-online-shop/internal/checkout"
	stripewebhook "github.com/Piotrek1987/ds-online-shop/internal/webhooks/stripe"
	"github.com/Piotrek1987/ds-online-shop/pkg/auth/session"
	"github.com/Piotrek1987/ds-online-shop/pkg/config"
	"github.com/Piotrek1987/ds-online-shop/pkg/db"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/metrics"
	"github.com/Piotrek1987/ds-online-shop/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps are the collaborators the router mounts. Nil optional pieces (DB,
// Redis, metrics, Stripe webhooks) leave their routes or middleware out.
type Deps struct {
	DB             db.Pinger
	Redis          *redis.Client
	Metrics        *metrics.ShopMetrics
	MetricsHandler http.Handler
	Sessions       sessionManager
	Auth           auth.Service
	Catalog        *catalog.Store
	Cart           cart.Service
	Checkout       checkoutsvc.Service
	StripeWebhooks controllers.StripeWebhookService
	WebhookDeduper *stripewebhook.EventDeduper
}

func NewRouter(cfg *config.Config, logg *logger.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	currency := cfg.Payments.Currency

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.BaseURL),
	)
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	var readyDeps = map[string]controllers.Pinger{}
	if d.DB != nil {
		readyDeps["db"] = d.DB
	}
	if d.Redis != nil {
		readyDeps["redis"] = d.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyDeps, logg))
	})
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	// Stripe signs its deliveries and carries no session or bearer token.
	if d.StripeWebhooks != nil && cfg.Stripe.WebhookSecret != "" {
		r.Post("/webhooks/stripe", controllers.StripeWebhook(d.StripeWebhooks, cfg.Stripe.WebhookSecret, d.WebhookDeduper, logg))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session, logg))

		r.Get("/categories", controllers.CatalogCategories(d.Catalog, logg))
		r.Route("/categories/{category}", func(r chi.Router) {
			r.Get("/", controllers.CatalogCategory(d.Catalog, currency, logg))
			r.Get("/all", controllers.CatalogCategoryAll(d.Catalog, currency, logg))
			r.Get("/{subcategory}", controllers.CatalogSubcategory(d.Catalog, currency, logg))
		})
		r.Get("/items/{itemId}", controllers.CatalogItem(d.Catalog, currency, logg))

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(
				middleware.AuthRateLimit(registerPolicy, d.Redis, logg),
				middleware.Idempotency(d.Redis, logg),
			).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Sessions, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Sessions, cfg.JWT, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.Idempotency(d.Redis, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartView(d.Cart, currency, logg))
				r.Post("/items/{itemId}", controllers.CartAdd(d.Cart, currency, logg))
				r.Delete("/items/{itemId}", controllers.CartRemove(d.Cart, currency, logg))
				r.Patch("/items/{itemId}/{action}", controllers.CartUpdate(d.Cart, currency, logg))
			})
			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutSummary(d.Checkout, currency, logg))
				r.Post("/", controllers.CheckoutSubmit(d.Checkout, currency, logg))
				r.Post("/session", controllers.CheckoutCreateSession(d.Checkout, logg))
			})
		})

		// The provider redirects the browser back here with only the session
		// cookie. The cart is keyed by that session and completion is guarded
		// by the hosted token, so no bearer token is required.
		r.Get("/checkout/success", controllers.CheckoutSuccess(d.Checkout, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminToken(cfg.Admin.Token, logg))
		r.Use(middleware.Idempotency(d.Redis, logg))
		r.Post("/catalog/reload", controllers.AdminCatalogReload(d.Catalog, logg))
	})

	return r
}
