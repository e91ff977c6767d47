package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	cartapp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/cart/application"
	carthttp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/cart/infrastructure/http"
	cartpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/cart/infrastructure/postgres"
	catalogapp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/infrastructure/http"
	catalogpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/infrastructure/postgres"
	invapp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/application"
	invhttp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/infrastructure/http"
	invpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/infrastructure/postgres"
	notifapp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/application"
	notifhttp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/infrastructure/http"
	notifpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/infrastructure/postgres"
	orderapp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	orderhttp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/infrastructure/postgres"
	paymentapp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/application"
	paymenthttp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/infrastructure/http"
	paymentpg "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/infrastructure/postgres"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/payment/infrastructure/stripe"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/config"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/database"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/httpx"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/idempotency"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/logging"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/outbox"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/shutdown"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", "order-service")

	if err := run(cfg, log); err != nil {
		log.Error("order-service stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("order-service shutdown complete")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "order-service", cfg.OTelEndpoint, log)
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	if cfg.RunMigrations {
		if err := database.Migrate(log, cfg.PGURL); err != nil {
			return err
		}
	}
	pool, err := database.Open(ctx, cfg.PGURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)

	catalogSvc := catalogapp.NewService(log, catalogpg.NewRepository(log, pool))
	invSvc := invapp.NewService(log, invpg.NewRepository(log, pool), catalogSvc)
	pricing := domain.Pricing{TaxRatePercent: cfg.TaxRatePercent, DeliveryFee: cfg.DeliveryFee}
	orderSvc := orderapp.NewService(log, orderpg.NewRepository(log, pool), catalogSvc, invSvc, pricing)
	cartSvc := cartapp.NewService(log, cartpg.NewRepository(log, pool), catalogSvc, orderSvc)
	notifSvc := notifapp.NewService(log, notifpg.NewRepository(log, pool))

	var gateway paymentapp.Gateway
	if cfg.StripeSecretKey != "" {
		gateway = stripe.NewGateway(log, cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, card payments disabled")
	}
	paymentSvc := paymentapp.NewService(log, paymentpg.NewRepository(log, pool), orderSvc, gateway, idem, cfg.Currency)
	paymentHandler := paymenthttp.NewHandler(log, paymentSvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Get("/health", health(log, pool))
	paymentHandler.WebhookRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(auth.NewVerifier([]byte(cfg.JWTSecret)).Middleware)
		cataloghttp.NewHandler(log, catalogSvc).Routes(r)
		invhttp.NewHandler(log, invSvc).Routes(r)
		orderhttp.NewHandler(log, orderSvc).Routes(r)
		carthttp.NewHandler(log, cartSvc).Routes(r)
		paymentHandler.Routes(r)
		notifhttp.NewHandler(log, notifSvc).Routes(r)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	writer := orderkafka.NewWriter(log, cfg.KafkaBrokers)
	defer writer.Close()
	hostname, _ := os.Hostname()
	relay := outbox.NewRelay(log, outbox.NewPGStore(log, pool), outbox.NewDispatcher(log, writer, cfg.OutboxTopic), "order-service-"+hostname)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return shutdown.Serve(gctx, log, srv, 10*time.Second) })
	g.Go(func() error { return relay.Run(gctx) })
	return g.Wait()
}

func health(log *slog.Logger, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "err", err)
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
