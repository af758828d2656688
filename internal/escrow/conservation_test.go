package escrow_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/escrow"
	"github.com/widyatama/jasaku-backend/internal/feepolicy"
	"github.com/widyatama/jasaku-backend/internal/ledger"
	"github.com/widyatama/jasaku-backend/internal/orders"
	"github.com/widyatama/jasaku-backend/internal/payments"
	"github.com/widyatama/jasaku-backend/internal/refunds"
	"github.com/widyatama/jasaku-backend/internal/withdrawals"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
)

// The conservation check below walks one order through the full money
// lifecycle over a single database and re-asserts after every step that
// no cent has appeared or vanished:
//
//   held + available + reserved + paid_out_net
//     == collected − refunded − payment_fees − payout_fees
//
// Funds already transferred to the freelancer's bank stay on the left
// as paid_out_net so the identity holds across the payout too.

func setupLifecycleDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  client_id TEXT NOT NULL,
  freelancer_id TEXT NOT NULL,
  service_package_id TEXT NOT NULL,
  title TEXT NOT NULL,
  requirements TEXT,
  price_cents INTEGER NOT NULL,
  platform_fee_cents INTEGER NOT NULL,
  gateway_fee_cents INTEGER NOT NULL,
  total_payable_cents INTEGER NOT NULL,
  status TEXT NOT NULL,
  work_duration_days INTEGER NOT NULL,
  deadline DATETIME,
  submitted_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_status_histories (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  event TEXT NOT NULL,
  changed_by TEXT NOT NULL,
  role TEXT NOT NULL,
  reason TEXT,
  metadata TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  invoice_number TEXT NOT NULL UNIQUE,
  gateway_transaction_id TEXT UNIQUE,
  gateway_intent_id TEXT,
  amount_cents INTEGER NOT NULL,
  platform_fee_cents INTEGER NOT NULL,
  gateway_fee_cents INTEGER NOT NULL,
  method TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_url TEXT,
  expires_at DATETIME NOT NULL,
  paid_at DATETIME,
  retry_count INTEGER NOT NULL DEFAULT 0,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS escrows (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL UNIQUE,
  order_id TEXT NOT NULL,
  freelancer_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  platform_fee_cents INTEGER NOT NULL,
  status TEXT NOT NULL,
  prior_status TEXT,
  held_at DATETIME NOT NULL,
  released_at DATETIME,
  notes TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS freelancer_balances (
  freelancer_id TEXT PRIMARY KEY,
  available_cents INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  freelancer_id TEXT NOT NULL,
  entry_type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  escrow_id TEXT,
  withdrawal_id TEXT,
  actor_user_id TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS refunds (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL,
  escrow_id TEXT,
  client_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  reason TEXT NOT NULL,
  status TEXT NOT NULL,
  admin_id TEXT,
  admin_note TEXT,
  gateway_refund_id TEXT,
  requested_at DATETIME NOT NULL,
  processed_at DATETIME,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS withdrawals (
  id TEXT PRIMARY KEY,
  freelancer_id TEXT NOT NULL,
  gross_amount_cents INTEGER NOT NULL,
  fee_cents INTEGER NOT NULL,
  net_amount_cents INTEGER NOT NULL,
  bank_name TEXT NOT NULL,
  bank_account_number TEXT NOT NULL,
  bank_account_name TEXT NOT NULL,
  status TEXT NOT NULL,
  admin_id TEXT,
  admin_note TEXT,
  transfer_evidence_url TEXT,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

type lifecycleTxRunner struct {
	db *gorm.DB
}

func (r lifecycleTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(r.db)
}

type lifecycleOutbox struct{}

func (lifecycleOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return nil
}

// lifecycleFeePolicy keeps the percentages round so every expected
// amount in the assertions is exact: 5% platform, 2.5% gateway, 2.5%
// withdrawal fee.
type lifecycleFeePolicy struct{}

func (lifecycleFeePolicy) ComputeFees(ctx context.Context, basePrice int64) (feepolicy.FeeBreakdown, error) {
	platform := basePrice * 5 / 100
	gateway := basePrice * 25 / 1000
	return feepolicy.FeeBreakdown{
		BasePrice:    basePrice,
		PlatformFee:  platform,
		GatewayFee:   gateway,
		TotalPayable: basePrice + platform + gateway,
	}, nil
}

func (lifecycleFeePolicy) WithdrawalFee(ctx context.Context, gross int64) (int64, int64, error) {
	fee := gross * 25 / 1000
	return fee, gross - fee, nil
}

func (lifecycleFeePolicy) WithdrawalMinimum(ctx context.Context) (int64, error) {
	return 50_000, nil
}

type lifecyclePaymentGateway struct{}

func (lifecyclePaymentGateway) CreateSession(ctx context.Context, input payments.SessionInput) (*payments.Session, error) {
	return &payments.Session{
		TransactionID: "cs_" + input.ReferenceID,
		PaymentURL:    "https://pay.example/" + input.ReferenceID,
	}, nil
}

func (lifecyclePaymentGateway) GetSession(ctx context.Context, transactionID string) (*payments.Session, error) {
	return &payments.Session{TransactionID: transactionID}, nil
}

type lifecycleRefundGateway struct{}

func (lifecycleRefundGateway) CreateRefund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string, metadata map[string]string) (string, error) {
	return "re_" + idempotencyKey, nil
}

type lifecycleFixture struct {
	db          *gorm.DB
	orders      orders.Service
	payments    payments.Service
	escrow      escrow.Service
	refunds     refunds.Service
	withdrawals withdrawals.Service

	client     uuid.UUID
	freelancer uuid.UUID
	admin      uuid.UUID
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	db := setupLifecycleDB(t)
	tx := lifecycleTxRunner{db: db}
	events := lifecycleOutbox{}
	fees := lifecycleFeePolicy{}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)

	ordersSvc, err := orders.NewService(orders.NewRepository(db), tx, events, fees)
	require.NoError(t, err)

	escrowSvc, err := escrow.NewService(escrow.NewRepository(db), tx, events, ledgerSvc, ordersSvc)
	require.NoError(t, err)
	escrow.RegisterOrderHooks(ordersSvc, escrowSvc)

	paymentsRepo := payments.NewRepository(db)
	paymentsSvc, err := payments.NewService(paymentsRepo, tx, events, lifecyclePaymentGateway{}, ordersSvc, escrowSvc, nil, time.Hour)
	require.NoError(t, err)

	refundsSvc, err := refunds.NewService(refunds.NewRepository(db), paymentsRepo, tx, events, escrowSvc, ordersSvc, lifecycleRefundGateway{})
	require.NoError(t, err)

	withdrawalsSvc, err := withdrawals.NewService(withdrawals.NewRepository(db), tx, events, ledgerSvc, fees)
	require.NoError(t, err)

	return &lifecycleFixture{
		db:          db,
		orders:      ordersSvc,
		payments:    paymentsSvc,
		escrow:      escrowSvc,
		refunds:     refundsSvc,
		withdrawals: withdrawalsSvc,
		client:      uuid.New(),
		freelancer:  uuid.New(),
		admin:       uuid.New(),
	}
}

func sumCents(t *testing.T, db *gorm.DB, query string, args ...any) int64 {
	t.Helper()
	var total int64
	require.NoError(t, db.Raw(query, args...).Scan(&total).Error)
	return total
}

// requireConserved asserts the money conservation identity over the
// whole database at one point in the lifecycle.
func requireConserved(t *testing.T, db *gorm.DB, stage string) {
	t.Helper()

	held := sumCents(t, db,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM escrows WHERE status IN ('held', 'disputed', 'refund_pending')`)
	available := sumCents(t, db,
		`SELECT COALESCE(SUM(available_cents), 0) FROM freelancer_balances`)
	reserved := sumCents(t, db,
		`SELECT COALESCE(SUM(gross_amount_cents), 0) FROM withdrawals WHERE status = 'pending'`)
	paidOutNet := sumCents(t, db,
		`SELECT COALESCE(SUM(net_amount_cents), 0) FROM withdrawals WHERE status = 'completed'`)

	collected := sumCents(t, db,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = 'paid'`)
	refunded := sumCents(t, db,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM refunds WHERE status = 'completed'`)
	paymentFees := sumCents(t, db,
		`SELECT COALESCE(SUM(platform_fee_cents + gateway_fee_cents), 0) FROM payments WHERE status = 'paid'`)
	payoutFees := sumCents(t, db,
		`SELECT COALESCE(SUM(fee_cents), 0) FROM withdrawals WHERE status = 'completed'`)

	left := held + available + reserved + paidOutNet
	right := collected - refunded - paymentFees - payoutFees
	require.Equalf(t, right, left,
		"%s: held=%d available=%d reserved=%d paid_out_net=%d vs collected=%d refunded=%d payment_fees=%d payout_fees=%d",
		stage, held, available, reserved, paidOutNet, collected, refunded, paymentFees, payoutFees)
}

func TestMoneyIsConservedAcrossFullLifecycle(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	clientActor := orders.Actor{UserID: f.client, Role: enums.UserRoleClient}
	freelancerActor := orders.Actor{UserID: f.freelancer, Role: enums.UserRoleFreelancer}
	adminActor := orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin}

	// Base 200_000 breaks down to 10_000 platform + 5_000 gateway fee,
	// so the client pays 215_000 and escrow holds 200_000.
	order, err := f.orders.Create(ctx, orders.CreateInput{
		ClientID:         f.client,
		FreelancerID:     f.freelancer,
		ServicePackageID: uuid.New(),
		Title:            "Company profile website",
		PriceCents:       200_000,
		WorkDurationDays: 7,
	})
	require.NoError(t, err)
	require.Equal(t, int64(215_000), order.TotalPayableCents)

	payment, err := f.payments.CreatePayment(ctx, payments.CreateInput{
		OrderID: order.ID,
		Actor:   clientActor,
		Method:  enums.PaymentMethodCard,
	})
	require.NoError(t, err)
	require.NotNil(t, payment.GatewayTransactionID)

	payment, err = f.payments.HandleCallback(ctx, payments.CallbackInput{
		TransactionID: *payment.GatewayTransactionID,
		Kind:          payments.CallbackSucceeded,
		IntentID:      "pi_lifecycle",
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, payment.Status)
	requireConserved(t, f.db, "after payment success")

	held, err := f.escrow.GetByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, int64(200_000), held.AmountCents)

	_, err = f.orders.Apply(ctx, orders.ApplyInput{
		OrderID: order.ID,
		Event:   enums.OrderEventFreelancerAccept,
		Actor:   freelancerActor,
	})
	require.NoError(t, err)

	// Partial refund of 50_000 back to the client.
	partial := int64(50_000)
	refund, err := f.refunds.Request(ctx, refunds.RequestInput{
		PaymentID:   payment.ID,
		Actor:       clientActor,
		Reason:      "scope was reduced",
		AmountCents: &partial,
	})
	require.NoError(t, err)
	requireConserved(t, f.db, "after refund requested")

	note := "partial refund agreed with both parties"
	refund, err = f.refunds.Process(ctx, refunds.ProcessInput{
		RefundID: refund.ID,
		Actor:    adminActor,
		Action:   refunds.ProcessActionApprove,
		Note:     &note,
	})
	require.NoError(t, err)
	require.Equal(t, enums.RefundStatusCompleted, refund.Status)
	requireConserved(t, f.db, "after partial refund settled")

	held, err = f.escrow.GetByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.EscrowStatusHeld, held.Status)
	require.Equal(t, int64(150_000), held.AmountCents)

	// Delivery and client approval release the remaining escrow.
	_, err = f.orders.Apply(ctx, orders.ApplyInput{
		OrderID: order.ID,
		Event:   enums.OrderEventWorkSubmitted,
		Actor:   freelancerActor,
	})
	require.NoError(t, err)
	completed, err := f.orders.Apply(ctx, orders.ApplyInput{
		OrderID: order.ID,
		Event:   enums.OrderEventWorkApproved,
		Actor:   clientActor,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCompleted, completed.Status)
	requireConserved(t, f.db, "after escrow release")

	released, err := f.escrow.GetByPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, enums.EscrowStatusReleased, released.Status)

	// Payout of 100_000 gross: 2_500 fee, 97_500 to the bank.
	withdrawal, err := f.withdrawals.Request(ctx, withdrawals.RequestInput{
		FreelancerID:      f.freelancer,
		AmountCents:       100_000,
		BankName:          "BCA",
		BankAccountNumber: "8881234567",
		BankAccountName:   "Freelancer Test",
	})
	require.NoError(t, err)
	requireConserved(t, f.db, "after withdrawal reserved")

	evidence := "https://storage.example/transfers/lifecycle.png"
	withdrawal, err = f.withdrawals.Process(ctx, withdrawals.ProcessInput{
		WithdrawalID:        withdrawal.ID,
		Actor:               withdrawals.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:              withdrawals.ProcessActionApprove,
		TransferEvidenceURL: &evidence,
	})
	require.NoError(t, err)
	require.Equal(t, enums.WithdrawalStatusCompleted, withdrawal.Status)
	require.Equal(t, int64(97_500), withdrawal.NetAmountCents)
	requireConserved(t, f.db, "after payout completed")

	// The remaining balance is exactly what was collected minus every
	// outflow: 215_000 − 50_000 refund − 15_000 payment fees −
	// 100_000 gross payout.
	remaining := sumCents(t, f.db,
		`SELECT COALESCE(SUM(available_cents), 0) FROM freelancer_balances WHERE freelancer_id = ?`, f.freelancer)
	require.Equal(t, int64(50_000), remaining)
}
