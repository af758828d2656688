package withdrawals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/ledger"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
)

func setupWithdrawalsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	withdrawals := `
CREATE TABLE IF NOT EXISTS withdrawals (
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
);`
	balances := `
CREATE TABLE IF NOT EXISTS freelancer_balances (
  freelancer_id TEXT PRIMARY KEY,
  available_cents INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`
	entries := `
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  freelancer_id TEXT NOT NULL,
  entry_type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  escrow_id TEXT,
  withdrawal_id TEXT,
  actor_user_id TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(withdrawals).Error)
	require.NoError(t, db.Exec(balances).Error)
	require.NoError(t, db.Exec(entries).Error)
	return db
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubFeeReader struct {
	minimum int64
}

func (s *stubFeeReader) WithdrawalFee(ctx context.Context, gross int64) (int64, int64, error) {
	fee := gross * 25 / 1000 // 2.5%
	return fee, gross - fee, nil
}

func (s *stubFeeReader) WithdrawalMinimum(ctx context.Context) (int64, error) {
	if s.minimum == 0 {
		return 50_000, nil
	}
	return s.minimum, nil
}

type dbTxRunner struct {
	db *gorm.DB
}

func (r dbTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(r.db)
}

type withdrawalsFixture struct {
	db         *gorm.DB
	svc        Service
	ledger     ledger.Service
	events     *stubOutboxPublisher
	freelancer uuid.UUID
	admin      uuid.UUID
}

func newWithdrawalsFixture(t *testing.T) *withdrawalsFixture {
	t.Helper()

	db := setupWithdrawalsTestDB(t)
	events := &stubOutboxPublisher{}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(db))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(db), dbTxRunner{db: db}, events, ledgerSvc, &stubFeeReader{})
	require.NoError(t, err)

	f := &withdrawalsFixture{
		db:         db,
		svc:        svc,
		ledger:     ledgerSvc,
		events:     events,
		freelancer: uuid.New(),
		admin:      uuid.New(),
	}
	// Fund the freelancer the way production does, through a release credit.
	escrowID := uuid.New()
	require.NoError(t, ledgerSvc.Credit(context.Background(), db, ledger.MovementInput{
		FreelancerID: f.freelancer,
		AmountCents:  200_000,
		EscrowID:     &escrowID,
		ActorUserID:  uuid.New(),
	}))
	return f
}

func (f *withdrawalsFixture) request(t *testing.T, amount int64) *models.Withdrawal {
	t.Helper()
	withdrawal, err := f.svc.Request(context.Background(), RequestInput{
		FreelancerID:      f.freelancer,
		AmountCents:       amount,
		BankName:          "BCA",
		BankAccountNumber: "1234567890",
		BankAccountName:   "Freelancer Test",
	})
	require.NoError(t, err)
	return withdrawal
}

func (f *withdrawalsFixture) available(t *testing.T) int64 {
	t.Helper()
	balance, err := f.ledger.Balance(context.Background(), f.freelancer)
	require.NoError(t, err)
	return balance.AvailableCents
}

func note(value string) *string { return &value }

func TestRequestReservesGrossAmount(t *testing.T) {
	f := newWithdrawalsFixture(t)

	withdrawal := f.request(t, 100_000)

	assert.Equal(t, enums.WithdrawalStatusPending, withdrawal.Status)
	assert.Equal(t, int64(2_500), withdrawal.FeeCents)
	assert.Equal(t, int64(97_500), withdrawal.NetAmountCents)
	assert.Equal(t, int64(100_000), f.available(t))

	require.Len(t, f.events.events, 1)
	assert.Equal(t, enums.EventWithdrawalRequested, f.events.events[0].EventType)
}

func TestRequestInsufficientBalanceMakesNoReservation(t *testing.T) {
	f := newWithdrawalsFixture(t)

	_, err := f.svc.Request(context.Background(), RequestInput{
		FreelancerID:      f.freelancer,
		AmountCents:       250_000,
		BankName:          "BCA",
		BankAccountNumber: "1234567890",
		BankAccountName:   "Freelancer Test",
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeInsufficientBalance, coded.Code())
	assert.Equal(t, int64(200_000), f.available(t))

	statement, _, err := f.ledger.Statement(context.Background(), f.freelancer, 10, 0)
	require.NoError(t, err)
	assert.Len(t, statement, 1)
}

func TestRequestBelowMinimumRejected(t *testing.T) {
	f := newWithdrawalsFixture(t)

	_, err := f.svc.Request(context.Background(), RequestInput{
		FreelancerID:      f.freelancer,
		AmountCents:       10_000,
		BankName:          "BCA",
		BankAccountNumber: "1234567890",
		BankAccountName:   "Freelancer Test",
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestConcurrentRequestsCannotSpendTwice(t *testing.T) {
	f := newWithdrawalsFixture(t)

	f.request(t, 150_000)

	_, err := f.svc.Request(context.Background(), RequestInput{
		FreelancerID:      f.freelancer,
		AmountCents:       150_000,
		BankName:          "BCA",
		BankAccountNumber: "1234567890",
		BankAccountName:   "Freelancer Test",
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeInsufficientBalance, coded.Code())
	assert.Equal(t, int64(50_000), f.available(t))
}

func TestApproveConsumesReservation(t *testing.T) {
	f := newWithdrawalsFixture(t)
	withdrawal := f.request(t, 100_000)

	evidence := "https://cdn.example.com/transfers/abc.png"
	completed, err := f.svc.Process(context.Background(), ProcessInput{
		WithdrawalID:        withdrawal.ID,
		Actor:               Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:              ProcessActionApprove,
		TransferEvidenceURL: &evidence,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.WithdrawalStatusCompleted, completed.Status)
	require.NotNil(t, completed.TransferEvidenceURL)
	assert.Equal(t, evidence, *completed.TransferEvidenceURL)
	require.NotNil(t, completed.AdminID)
	assert.Equal(t, f.admin, *completed.AdminID)
	assert.NotNil(t, completed.ProcessedAt)

	// The reservation already debited the balance; settlement moves nothing.
	assert.Equal(t, int64(100_000), f.available(t))
}

func TestApproveRequiresEvidence(t *testing.T) {
	f := newWithdrawalsFixture(t)
	withdrawal := f.request(t, 100_000)

	_, err := f.svc.Process(context.Background(), ProcessInput{
		WithdrawalID: withdrawal.ID,
		Actor:        Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:       ProcessActionApprove,
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestRejectReturnsReservedFunds(t *testing.T) {
	f := newWithdrawalsFixture(t)
	withdrawal := f.request(t, 100_000)
	require.Equal(t, int64(100_000), f.available(t))

	rejected, err := f.svc.Process(context.Background(), ProcessInput{
		WithdrawalID: withdrawal.ID,
		Actor:        Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:       ProcessActionReject,
		Note:         note("account number does not match registered name"),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.WithdrawalStatusRejected, rejected.Status)
	assert.Equal(t, int64(200_000), f.available(t))
}

func TestBankFailureReturnsReservedFunds(t *testing.T) {
	f := newWithdrawalsFixture(t)
	withdrawal := f.request(t, 100_000)

	failed, err := f.svc.Process(context.Background(), ProcessInput{
		WithdrawalID: withdrawal.ID,
		Actor:        Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:       ProcessActionFail,
		Note:         note("transfer bounced, account closed"),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.WithdrawalStatusFailed, failed.Status)
	assert.Equal(t, int64(200_000), f.available(t))

	// Bank failure carries its own event type so consumers can tell
	// it apart from an admin rejection.
	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, enums.EventWithdrawalFailed, last.EventType)
}

func TestProcessReplayIsNoop(t *testing.T) {
	f := newWithdrawalsFixture(t)
	withdrawal := f.request(t, 100_000)

	input := ProcessInput{
		WithdrawalID: withdrawal.ID,
		Actor:        Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:       ProcessActionReject,
		Note:         note("duplicate request"),
	}
	_, err := f.svc.Process(context.Background(), input)
	require.NoError(t, err)
	replay, err := f.svc.Process(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, enums.WithdrawalStatusRejected, replay.Status)
	// A second reject must not credit the reservation back twice.
	assert.Equal(t, int64(200_000), f.available(t))
}

func TestProcessCrossVerdictRejected(t *testing.T) {
	f := newWithdrawalsFixture(t)
	withdrawal := f.request(t, 100_000)

	_, err := f.svc.Process(context.Background(), ProcessInput{
		WithdrawalID: withdrawal.ID,
		Actor:        Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:       ProcessActionReject,
		Note:         note("bad account"),
	})
	require.NoError(t, err)

	evidence := "https://cdn.example.com/transfers/abc.png"
	_, err = f.svc.Process(context.Background(), ProcessInput{
		WithdrawalID:        withdrawal.ID,
		Actor:               Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:              ProcessActionApprove,
		TransferEvidenceURL: &evidence,
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeInvalidTransition, coded.Code())
}

func TestProcessForbiddenForNonAdmin(t *testing.T) {
	f := newWithdrawalsFixture(t)
	withdrawal := f.request(t, 100_000)

	_, err := f.svc.Process(context.Background(), ProcessInput{
		WithdrawalID: withdrawal.ID,
		Actor:        Actor{UserID: f.freelancer, Role: enums.UserRoleFreelancer},
		Action:       ProcessActionReject,
		Note:         note("nope"),
	})
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeForbidden, coded.Code())
}
