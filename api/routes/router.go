package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/widyatama/jasaku-backend/api/controllers"
	webhookcontrollers "github.com/widyatama/jasaku-backend/api/controllers/webhooks"
	"github.com/widyatama/jasaku-backend/api/middleware"
	"github.com/widyatama/jasaku-backend/internal/auth"
	"github.com/widyatama/jasaku-backend/internal/escrow"
	"github.com/widyatama/jasaku-backend/internal/ledger"
	"github.com/widyatama/jasaku-backend/internal/orders"
	"github.com/widyatama/jasaku-backend/internal/payments"
	"github.com/widyatama/jasaku-backend/internal/platformconfig"
	"github.com/widyatama/jasaku-backend/internal/refunds"
	"github.com/widyatama/jasaku-backend/internal/users"
	"github.com/widyatama/jasaku-backend/internal/withdrawals"
	stripewebhook "github.com/widyatama/jasaku-backend/internal/webhooks/stripe"
	"github.com/widyatama/jasaku-backend/pkg/config"
	"github.com/widyatama/jasaku-backend/pkg/db"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	"github.com/widyatama/jasaku-backend/pkg/logger"
	"github.com/widyatama/jasaku-backend/pkg/redis"
	"github.com/widyatama/jasaku-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	authService auth.Service,
	usersRepo *users.Repository,
	ordersService orders.Service,
	paymentsService payments.Service,
	refundsService refunds.Service,
	withdrawalsService withdrawals.Service,
	ledgerService ledger.Service,
	escrowService escrow.Service,
	configService platformconfig.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

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

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbClient, redisClient, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.Login(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.Register(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(string(enums.UserRoleClient), logg)).Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
			r.Get("/{orderID}/history", controllers.OrderHistory(ordersService, logg))
			r.Get("/{orderID}/payments", controllers.ListOrderPayments(paymentsService, logg))

			r.Post("/{orderID}/accept", controllers.OrderTransition(ordersService, enums.OrderEventFreelancerAccept, logg))
			r.Post("/{orderID}/submit", controllers.OrderTransition(ordersService, enums.OrderEventWorkSubmitted, logg))
			r.Post("/{orderID}/approve", controllers.OrderTransition(ordersService, enums.OrderEventWorkApproved, logg))
			r.Post("/{orderID}/request-revision", controllers.OrderTransition(ordersService, enums.OrderEventRevisionRequested, logg))
			r.Post("/{orderID}/dispute", controllers.OrderTransition(ordersService, enums.OrderEventDisputeOpened, logg))
			r.Post("/{orderID}/cancel", controllers.OrderTransition(ordersService, enums.OrderEventOrderCancelled, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(middleware.RequireRole(string(enums.UserRoleClient), logg)).Post("/", controllers.CreatePayment(paymentsService, logg))
			r.Get("/{paymentID}", controllers.GetPayment(paymentsService, logg))
		})

		r.Route("/refunds", func(r chi.Router) {
			r.With(middleware.RequireRole(string(enums.UserRoleClient), logg)).Post("/", controllers.RequestRefund(refundsService, logg))
			r.Get("/", controllers.ListMyRefunds(refundsService, logg))
			r.Get("/{refundID}", controllers.GetRefund(refundsService, logg))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleFreelancer), logg))
			r.Post("/", controllers.RequestWithdrawal(withdrawalsService, logg))
			r.Get("/", controllers.ListMyWithdrawals(withdrawalsService, logg))
			r.Get("/{withdrawalID}", controllers.GetWithdrawal(withdrawalsService, logg))
		})

		r.Route("/balance", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleFreelancer), logg))
			r.Get("/", controllers.GetBalance(ledgerService, logg))
			r.Get("/statement", controllers.GetStatement(ledgerService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/config", func(r chi.Router) {
			r.Get("/", controllers.ListPlatformConfig(configService, logg))
			r.Put("/{key}", controllers.UpdatePlatformConfig(configService, logg))
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Get("/", controllers.ListPendingRefunds(refundsService, logg))
			r.Get("/{refundID}", controllers.GetRefund(refundsService, logg))
			r.Post("/{refundID}/process", controllers.ProcessRefund(refundsService, logg))
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.ListPendingWithdrawals(withdrawalsService, logg))
			r.Get("/{withdrawalID}", controllers.GetWithdrawal(withdrawalsService, logg))
			r.Post("/{withdrawalID}/process", controllers.ProcessWithdrawal(withdrawalsService, logg))
		})

		r.Post("/escrows/{orderID}/release", controllers.ReleaseEscrow(escrowService, logg))
		r.Post("/freelancers/{freelancerID}/balance/adjust", controllers.AdjustBalance(ledgerService, dbClient, logg))
		r.Post("/users/{userID}/block", controllers.SetUserBlocked(usersRepo, logg))
	})

	return r
}
