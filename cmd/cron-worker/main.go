package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/widyatama/jasaku-backend/internal/cron"
	"github.com/widyatama/jasaku-backend/internal/escrow"
	"github.com/widyatama/jasaku-backend/internal/feepolicy"
	"github.com/widyatama/jasaku-backend/internal/ledger"
	"github.com/widyatama/jasaku-backend/internal/orders"
	"github.com/widyatama/jasaku-backend/internal/payments"
	"github.com/widyatama/jasaku-backend/internal/platformconfig"
	"github.com/widyatama/jasaku-backend/internal/withdrawals"
	"github.com/widyatama/jasaku-backend/pkg/config"
	"github.com/widyatama/jasaku-backend/pkg/db"
	"github.com/widyatama/jasaku-backend/pkg/logger"
	"github.com/widyatama/jasaku-backend/pkg/metrics"
	"github.com/widyatama/jasaku-backend/pkg/migrate"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
	"github.com/widyatama/jasaku-backend/pkg/redis"
	pkgstripe "github.com/widyatama/jasaku-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

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
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	escrowRepo := escrow.NewRepository(dbClient.DB())
	escrowService, err := escrow.NewService(escrowRepo, dbClient, outboxService, ledgerService, ordersService)
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow service", err)
		os.Exit(1)
	}
	escrow.RegisterOrderHooks(ordersService, escrowService)

	paymentGateway := payments.NewStripeGateway(stripeClient, cfg.Gateway.Currency, cfg.Gateway.SuccessURL, cfg.Gateway.CancelURL)
	paymentsService, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, outboxService, paymentGateway, ordersService, escrowService, logg, cfg.Payments.ExpiryWindow)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()

	expiryJob, err := cron.NewPaymentExpiryJob(cron.PaymentExpiryJobParams{
		Logger:   logg,
		Payments: paymentsService,
		Limit:    cfg.Payments.ReconcileBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment expiry job", err)
		os.Exit(1)
	}
	registry.Register(expiryJob)

	auditJob, err := cron.NewEscrowAuditJob(cron.EscrowAuditJobParams{
		Logger:      logg,
		Ledger:      ledgerRepo,
		Escrows:     escrowRepo,
		Withdrawals: withdrawals.NewRepository(dbClient.DB()),
		PendingAge:  cfg.Cron.StalePendingAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create escrow audit job", err)
		os.Exit(1)
	}
	registry.Register(auditJob)

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	registry.Register(retentionJob)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
