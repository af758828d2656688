package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/widyatama/jasaku-backend/api/routes"
	"github.com/widyatama/jasaku-backend/internal/auth"
	"github.com/widyatama/jasaku-backend/internal/escrow"
	"github.com/widyatama/jasaku-backend/internal/feepolicy"
	"github.com/widyatama/jasaku-backend/internal/ledger"
	"github.com/widyatama/jasaku-backend/internal/orders"
	"github.com/widyatama/jasaku-backend/internal/payments"
	"github.com/widyatama/jasaku-backend/internal/platformconfig"
	"github.com/widyatama/jasaku-backend/internal/refunds"
	"github.com/widyatama/jasaku-backend/internal/users"
	stripewebhook "github.com/widyatama/jasaku-backend/internal/webhooks/stripe"
	"github.com/widyatama/jasaku-backend/internal/withdrawals"
	"github.com/widyatama/jasaku-backend/pkg/config"
	"github.com/widyatama/jasaku-backend/pkg/db"
	"github.com/widyatama/jasaku-backend/pkg/logger"
	"github.com/widyatama/jasaku-backend/pkg/migrate"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
	"github.com/widyatama/jasaku-backend/pkg/redis"
	pkgstripe "github.com/widyatama/jasaku-backend/pkg/stripe"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	configService, err := platformconfig.NewService(platformconfig.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create platform config service", err)
		os.Exit(1)
	}

	feeService, err := feepolicy.NewService(configService)
	if err != nil {
		logg.Error(context.Background(), "failed to create fee policy", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, outboxService, feeService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	escrowService, err := escrow.NewService(escrow.NewRepository(dbClient.DB()), dbClient, outboxService, ledgerService, ordersService)
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}
	escrow.RegisterOrderHooks(ordersService, escrowService)

	paymentsRepo := payments.NewRepository(dbClient.DB())
	paymentGateway := payments.NewStripeGateway(stripeClient, cfg.Gateway.Currency, cfg.Gateway.SuccessURL, cfg.Gateway.CancelURL)
	paymentsService, err := payments.NewService(paymentsRepo, dbClient, outboxService, paymentGateway, ordersService, escrowService, logg, cfg.Payments.ExpiryWindow)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	refundsService, err := refunds.NewService(
		refunds.NewRepository(dbClient.DB()),
		paymentsRepo,
		dbClient,
		outboxService,
		escrowService,
		ordersService,
		refunds.NewStripeGateway(stripeClient),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create refunds service", err)
		os.Exit(1)
	}

	withdrawalsService, err := withdrawals.NewService(withdrawals.NewRepository(dbClient.DB()), dbClient, outboxService, ledgerService, feeService)
	if err != nil {
		logg.Error(context.Background(), "failed to create withdrawals service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookDedupTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: paymentsService,
		Guard:    webhookGuard,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			authService,
			usersRepo,
			ordersService,
			paymentsService,
			refundsService,
			withdrawalsService,
			ledgerService,
			escrowService,
			configService,
			stripeClient,
			stripeWebhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
