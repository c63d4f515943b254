package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/Piotrek1987/ds-online-shop/api/controllers"
	"github.com/Piotrek1987/ds-online-shop/api/routes"
	"github.com/Piotrek1987/ds-online-shop/internal/auth"
	"github.com/Piotrek1987/ds-online-shop/internal/cart"
	"github.com/Piotrek1987/ds-online-shop/internal/catalog"
	"github.com/Piotrek1987/ds-online-shop/internal/checkout"
	"github.com/Piotrek1987/ds-online-shop/internal/cron"
	"github.com/Piotrek1987/ds-online-shop/internal/orders"
	"github.com/Piotrek1987/ds-online-shop/internal/payments"
	"github.com/Piotrek1987/ds-online-shop/internal/users"
	stripewebhook "github.com/Piotrek1987/ds-online-shop/internal/webhooks/stripe"
	"github.com/Piotrek1987/ds-online-shop/pkg/auth/session"
	"github.com/Piotrek1987/ds-online-shop/pkg/config"
	"github.com/Piotrek1987/ds-online-shop/pkg/db"
	"github.com/Piotrek1987/ds-online-shop/pkg/env"
	"github.com/Piotrek1987/ds-online-shop/pkg/logger"
	"github.com/Piotrek1987/ds-online-shop/pkg/metrics"
	"github.com/Piotrek1987/ds-online-shop/pkg/migrate"
	"github.com/Piotrek1987/ds-online-shop/pkg/redis"
	"github.com/Piotrek1987/ds-online-shop/pkg/security"
	"github.com/Piotrek1987/ds-online-shop/pkg/square"
	"github.com/Piotrek1987/ds-online-shop/pkg/stripe"
)

const (
	shutdownTimeout    = 15 * time.Second
	webhookEventTTL    = 72 * time.Hour
	stripeWebhookScope = "stripe-webhook"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		var closeErr error
		for i := len(closers) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, closers[i].Close())
		}
		if closeErr != nil {
			logg.Error(context.Background(), "error releasing resources", closeErr)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	closers = append(closers, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
	} else {
		logg.Warn(ctx, "redis disabled, using embedded miniredis")
		redisClient, err = redis.NewInMemory()
		requireResource(ctx, logg, "embedded redis", err)
	}
	closers = append(closers, redisClient)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shopMetrics := metrics.NewShopMetrics(registry)

	catalogStore, err := catalog.NewStore(ctx, catalog.FileSource{Path: cfg.Catalog.ItemsPath}, logg)
	requireResource(ctx, logg, "catalog", err)

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Session.TTL)
	requireResource(ctx, logg, "cart store", err)

	orderLog, err := openOrderLog(cfg, logg, dbClient)
	requireResource(ctx, logg, "order log", err)
	if c, ok := orderLog.(io.Closer); ok {
		closers = append(closers, c)
	}

	stripeClient, squareClient := paymentClients(ctx, cfg, logg)
	providers := payments.Providers{}
	if stripeClient != nil {
		providers.Stripe = stripeClient
	}
	if squareClient != nil {
		providers.Square = squareClient
	}
	authorizer, err := payments.NewAuthorizer(cfg.Payments, cfg.Stripe, cfg.Square, providers)
	requireResource(ctx, logg, "payment authorizer", err)

	var hosted payments.HostedCheckout = payments.LocalHosted{}
	if stripeClient != nil {
		hosted, err = payments.NewStripeHosted(stripeClient)
		requireResource(ctx, logg, "hosted checkout", err)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	hasher, err := security.NewHasher(cfg.Password)
	requireResource(ctx, logg, "password hasher", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		Hasher:         hasher,
		JWTConfig:      cfg.JWT,
	})
	requireResource(ctx, logg, "auth service", err)

	cartService, err := cart.NewService(cart.ServiceParams{
		Store:   cartStore,
		Catalog: catalogStore,
		Metrics: shopMetrics,
		Logger:  logg,
	})
	requireResource(ctx, logg, "cart service", err)

	baseURL := strings.TrimRight(cfg.App.BaseURL, "/")
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Carts:       cartStore,
		Catalog:     catalogStore,
		Orders:      orderLog,
		Authorizer:  authorizer,
		Hosted:      hosted,
		Guard:       redisClient,
		Metrics:     shopMetrics,
		Logger:      logg,
		Currency:    cfg.Payments.Currency,
		SuccessURL:  baseURL + cfg.Payments.SuccessPath,
		CancelURL:   baseURL + cfg.Payments.CancelPath,
		CallbackTTL: cfg.Payments.HostedCallbackTTL,
	})
	requireResource(ctx, logg, "checkout service", err)

	var (
		stripeWebhooks     *stripewebhook.Service
		stripeWebhookGuard *stripewebhook.EventDeduper
	)
	if stripeClient != nil && cfg.Stripe.WebhookSecret != "" {
		stripeWebhooks, err = stripewebhook.NewService(stripewebhook.ServiceParams{
			Checkout: checkoutService,
			Logger:   logg,
		})
		requireResource(ctx, logg, "stripe webhook service", err)
		stripeWebhookGuard, err = stripewebhook.NewEventDeduper(redisClient, webhookEventTTL, stripeWebhookScope)
		requireResource(ctx, logg, "stripe webhook guard", err)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"authorizer": cfg.Payments.AuthorizerKind(),
		"items":      catalogStore.Len(),
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:             dbClient,
			Redis:          redisClient,
			Metrics:        shopMetrics,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Sessions:       sessionManager,
			Auth:           authService,
			Catalog:        catalogStore,
			Cart:           cartService,
			Checkout:       checkoutService,
			StripeWebhooks: webhookService(stripeWebhooks),
			WebhookDeduper: stripeWebhookGuard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Catalog.ReloadInterval > 0 {
		startCatalogReload(ctx, cfg, logg, catalogStore, shopMetrics)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(runCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}
}

func startCatalogReload(ctx context.Context, cfg *config.Config, logg *logger.Logger, store *catalog.Store, shopMetrics *metrics.ShopMetrics) {
	job, err := cron.NewCatalogReloadJob(store)
	requireResource(ctx, logg, "catalog reload job", err)
	registry, err := cron.NewRegistry(job)
	requireResource(ctx, logg, "catalog reload registry", err)
	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Metrics:  shopMetrics,
		Interval: cfg.Catalog.ReloadInterval,
	})
	requireResource(ctx, logg, "catalog reload scheduler", err)
	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "catalog reload scheduler stopped", err)
		}
	}()
}

// webhookService keeps a nil *Service from becoming a non-nil interface.
func webhookService(svc *stripewebhook.Service) controllers.StripeWebhookService {
	if svc == nil {
		return nil
	}
	return svc
}

func openOrderLog(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (orders.Log, error) {
	if cfg.Orders.UsesDB() {
		return orders.NewDBLog(dbClient.DB())
	}
	return orders.OpenFileLog(cfg.Orders.LogPath, logg)
}

// paymentClients builds the gateway clients that have credentials configured.
// A missing credential only matters when the selected authorizer needs it,
// which NewAuthorizer reports.
func paymentClients(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*stripe.Client, *square.Client) {
	var stripeClient *stripe.Client
	if strings.TrimSpace(cfg.Stripe.APIKey) != "" {
		c, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		requireResource(ctx, logg, "stripe client", err)
		stripeClient = c
	}

	var squareClient *square.Client
	if strings.TrimSpace(cfg.Square.AccessToken) != "" {
		c, err := square.NewClient(ctx, cfg.Square, logg)
		requireResource(ctx, logg, "square client", err)
		squareClient = c
	}
	return stripeClient, squareClient
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "resource", resource), "failed to bootstrap resource", err)
	os.Exit(1)
}
