package refunds

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/orders"
	"github.com/widyatama/jasaku-backend/internal/payments"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
)

type stubRefundsRepo struct {
	refunds map[uuid.UUID]*models.Refund
}

func newStubRefundsRepo() *stubRefundsRepo {
	return &stubRefundsRepo{refunds: make(map[uuid.UUID]*models.Refund)}
}

func (s *stubRefundsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRefundsRepo) Create(ctx context.Context, refund *models.Refund) error {
	copied := *refund
	s.refunds[refund.ID] = &copied
	return nil
}

func (s *stubRefundsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	refund, ok := s.refunds[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *refund
	return &copied, nil
}

func (s *stubRefundsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	return s.FindByID(ctx, id)
}

func (s *stubRefundsRepo) HasActiveByPayment(ctx context.Context, paymentID uuid.UUID) (bool, error) {
	for _, refund := range s.refunds {
		if refund.PaymentID != paymentID {
			continue
		}
		switch refund.Status {
		case enums.RefundStatusPending, enums.RefundStatusApproved, enums.RefundStatusProcessing:
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRefundsRepo) Update(ctx context.Context, refund *models.Refund) error {
	copied := *refund
	s.refunds[refund.ID] = &copied
	return nil
}

func (s *stubRefundsRepo) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Refund, int64, error) {
	var out []models.Refund
	for _, refund := range s.refunds {
		if refund.ClientID == clientID {
			out = append(out, *refund)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubRefundsRepo) ListByStatus(ctx context.Context, status enums.RefundStatus, limit, offset int) ([]models.Refund, int64, error) {
	var out []models.Refund
	for _, refund := range s.refunds {
		if refund.Status == status {
			out = append(out, *refund)
		}
	}
	return out, int64(len(out)), nil
}

type stubPaymentsRepo struct {
	payments map[uuid.UUID]*models.Payment
}

func newStubPaymentsRepo() *stubPaymentsRepo {
	return &stubPaymentsRepo{payments: make(map[uuid.UUID]*models.Payment)}
}

func (s *stubPaymentsRepo) put(payment *models.Payment) {
	copied := *payment
	s.payments[payment.ID] = &copied
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) payments.Repository { return s }

func (s *stubPaymentsRepo) Create(ctx context.Context, payment *models.Payment) error {
	s.put(payment)
	return nil
}

func (s *stubPaymentsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, ok := s.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *payment
	return &copied, nil
}

func (s *stubPaymentsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.FindByID(ctx, id)
}

func (s *stubPaymentsRepo) FindByTransactionIDForUpdate(ctx context.Context, transactionID string) (*models.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) FindPendingByOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	return int64(len(s.payments)), nil
}

func (s *stubPaymentsRepo) Update(ctx context.Context, payment *models.Payment) error {
	copied := *payment
	s.payments[payment.ID] = &copied
	return nil
}

func (s *stubPaymentsRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

func (s *stubPaymentsRepo) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	return nil, nil
}

type stubEscrowController struct {
	escrows map[uuid.UUID]*models.Escrow

	restored []uuid.UUID
	parked   []uuid.UUID
	settled  []int64
	closed   bool
}

func newStubEscrowController() *stubEscrowController {
	return &stubEscrowController{escrows: make(map[uuid.UUID]*models.Escrow)}
}

func (s *stubEscrowController) put(held *models.Escrow) {
	copied := *held
	s.escrows[held.ID] = &copied
}

func (s *stubEscrowController) GetByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Escrow, error) {
	for _, held := range s.escrows {
		if held.PaymentID == paymentID {
			copied := *held
			return &copied, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
}

func (s *stubEscrowController) MoveToRefundPendingTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID) (*models.Escrow, error) {
	held, ok := s.escrows[escrowID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
	}
	prior := held.Status
	held.PriorStatus = &prior
	held.Status = enums.EscrowStatusRefundPending
	s.parked = append(s.parked, escrowID)
	copied := *held
	return &copied, nil
}

func (s *stubEscrowController) RestorePriorTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID) (*models.Escrow, error) {
	held, ok := s.escrows[escrowID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
	}
	if held.PriorStatus != nil {
		held.Status = *held.PriorStatus
		held.PriorStatus = nil
	}
	s.restored = append(s.restored, escrowID)
	copied := *held
	return &copied, nil
}

func (s *stubEscrowController) SettleRefundTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID, amountCents int64) (*models.Escrow, bool, error) {
	held, ok := s.escrows[escrowID]
	if !ok {
		return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
	}
	held.AmountCents -= amountCents
	s.settled = append(s.settled, amountCents)
	closed := held.AmountCents == 0
	if closed {
		held.Status = enums.EscrowStatusRefunded
	} else if held.PriorStatus != nil {
		held.Status = *held.PriorStatus
		held.PriorStatus = nil
	}
	s.closed = closed
	copied := *held
	return &copied, closed, nil
}

type stubOrderDriver struct {
	status  enums.OrderStatus
	applied []enums.OrderEvent
}

func (s *stubOrderDriver) Get(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	status := s.status
	if status == "" {
		status = enums.OrderStatusInProgress
	}
	return &models.Order{ID: orderID, Status: status}, nil
}

func (s *stubOrderDriver) ApplyTx(ctx context.Context, tx *gorm.DB, input orders.ApplyInput) (*models.Order, error) {
	s.applied = append(s.applied, input.Event)
	return &models.Order{ID: input.OrderID, Status: enums.OrderStatusRefunded}, nil
}

type stubRefundGateway struct {
	refundID string
	err      error
	calls    int
	keys     []string
}

func (s *stubRefundGateway) CreateRefund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string, metadata map[string]string) (string, error) {
	s.calls++
	s.keys = append(s.keys, idempotencyKey)
	if s.err != nil {
		return "", s.err
	}
	if s.refundID == "" {
		return "re_test", nil
	}
	return s.refundID, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type refundsFixture struct {
	svc     Service
	repo    *stubRefundsRepo
	pays    *stubPaymentsRepo
	escrows *stubEscrowController
	ordersv *stubOrderDriver
	gateway *stubRefundGateway
	outbox  *stubOutboxPublisher

	payment *models.Payment
	held    *models.Escrow
	client  uuid.UUID
	admin   uuid.UUID
}

func newRefundsFixture(t *testing.T) *refundsFixture {
	t.Helper()

	f := &refundsFixture{
		repo:    newStubRefundsRepo(),
		pays:    newStubPaymentsRepo(),
		escrows: newStubEscrowController(),
		ordersv: &stubOrderDriver{},
		gateway: &stubRefundGateway{},
		outbox:  &stubOutboxPublisher{},
		client:  uuid.New(),
		admin:   uuid.New(),
	}

	intentID := "pi_test"
	now := time.Now().UTC()
	f.payment = &models.Payment{
		ID:              uuid.New(),
		OrderID:         uuid.New(),
		ClientID:        f.client,
		InvoiceNumber:   "INV/20260115/ABCDEFGHIJ",
		GatewayIntentID: &intentID,
		AmountCents:     107_500,
		Status:          enums.PaymentStatusPaid,
		PaidAt:          &now,
		ExpiresAt:       now.Add(24 * time.Hour),
	}
	f.pays.put(f.payment)

	f.held = &models.Escrow{
		ID:           uuid.New(),
		PaymentID:    f.payment.ID,
		OrderID:      f.payment.OrderID,
		FreelancerID: uuid.New(),
		AmountCents:  100_000,
		Status:       enums.EscrowStatusHeld,
		HeldAt:       now,
	}
	f.escrows.put(f.held)

	svc, err := NewService(f.repo, f.pays, &stubTxRunner{}, f.outbox, f.escrows, f.ordersv, f.gateway)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *refundsFixture) request(t *testing.T, amount *int64) *models.Refund {
	t.Helper()
	refund, err := f.svc.Request(context.Background(), RequestInput{
		PaymentID:   f.payment.ID,
		Actor:       orders.Actor{UserID: f.client, Role: enums.UserRoleClient},
		Reason:      "work never delivered",
		AmountCents: amount,
	})
	if err != nil {
		t.Fatalf("request refund: %v", err)
	}
	return refund
}

func adminNote(note string) *string { return &note }

func TestRequestParksEscrowAndDefaultsToFullAmount(t *testing.T) {
	f := newRefundsFixture(t)

	refund := f.request(t, nil)

	if refund.Status != enums.RefundStatusPending {
		t.Fatalf("status = %s, want pending", refund.Status)
	}
	if refund.AmountCents != 100_000 {
		t.Fatalf("amount = %d, want full escrow amount", refund.AmountCents)
	}
	if refund.EscrowID == nil || *refund.EscrowID != f.held.ID {
		t.Fatal("refund not linked to escrow")
	}
	if len(f.escrows.parked) != 1 {
		t.Fatalf("escrow parked %d times, want 1", len(f.escrows.parked))
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventRefundRequested {
		t.Fatalf("events = %+v, want one refund.requested", f.outbox.events)
	}
}

func TestRequestRejectsOverdraw(t *testing.T) {
	f := newRefundsFixture(t)

	amount := int64(150_000)
	_, err := f.svc.Request(context.Background(), RequestInput{
		PaymentID:   f.payment.ID,
		Actor:       orders.Actor{UserID: f.client, Role: enums.UserRoleClient},
		Reason:      "too much",
		AmountCents: &amount,
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestRequestRejectsSecondActiveRefund(t *testing.T) {
	f := newRefundsFixture(t)
	f.request(t, nil)

	_, err := f.svc.Request(context.Background(), RequestInput{
		PaymentID: f.payment.ID,
		Actor:     orders.Actor{UserID: f.client, Role: enums.UserRoleClient},
		Reason:    "again",
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestRequestRejectsForeignClient(t *testing.T) {
	f := newRefundsFixture(t)

	_, err := f.svc.Request(context.Background(), RequestInput{
		PaymentID: f.payment.ID,
		Actor:     orders.Actor{UserID: uuid.New(), Role: enums.UserRoleClient},
		Reason:    "not mine",
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestRequestRejectsUnpaidPayment(t *testing.T) {
	f := newRefundsFixture(t)
	f.payment.Status = enums.PaymentStatusPending
	f.pays.put(f.payment)

	_, err := f.svc.Request(context.Background(), RequestInput{
		PaymentID: f.payment.ID,
		Actor:     orders.Actor{UserID: f.client, Role: enums.UserRoleClient},
		Reason:    "never paid",
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func TestApproveSettlesFullRefund(t *testing.T) {
	f := newRefundsFixture(t)
	refund := f.request(t, nil)

	settled, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionApprove,
		Note:     adminNote("verified"),
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if settled.Status != enums.RefundStatusCompleted {
		t.Fatalf("status = %s, want completed", settled.Status)
	}
	if settled.GatewayRefundID == nil || *settled.GatewayRefundID != "re_test" {
		t.Fatal("gateway refund id not recorded")
	}
	if settled.SettledAt == nil {
		t.Fatal("settled_at not stamped")
	}
	if !f.escrows.closed {
		t.Fatal("escrow not closed on full refund")
	}
	stored, _ := f.pays.FindByID(context.Background(), f.payment.ID)
	if stored.Status != enums.PaymentStatusRefunded {
		t.Fatalf("payment status = %s, want refunded", stored.Status)
	}
	if len(f.ordersv.applied) != 1 || f.ordersv.applied[0] != enums.OrderEventRefundSettled {
		t.Fatalf("order events = %v, want one refund_settled", f.ordersv.applied)
	}
}

func TestApprovePartialKeepsPaymentAndOrder(t *testing.T) {
	f := newRefundsFixture(t)
	amount := int64(40_000)
	refund := f.request(t, &amount)

	settled, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionApprove,
		Note:     adminNote("partial compensation"),
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if settled.Status != enums.RefundStatusCompleted {
		t.Fatalf("status = %s, want completed", settled.Status)
	}
	if f.escrows.closed {
		t.Fatal("partial refund should not close escrow")
	}
	stored, _ := f.pays.FindByID(context.Background(), f.payment.ID)
	if stored.Status != enums.PaymentStatusPaid {
		t.Fatalf("payment status = %s, want paid", stored.Status)
	}
	if len(f.ordersv.applied) != 0 {
		t.Fatalf("order events = %v, want none", f.ordersv.applied)
	}
}

func TestApproveGatewayFailureParksRefund(t *testing.T) {
	f := newRefundsFixture(t)
	f.gateway.err = errors.New("card issuer unavailable")
	refund := f.request(t, nil)

	_, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionApprove,
		Note:     adminNote("verified"),
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeSettlementFailure {
		t.Fatalf("err = %v, want settlement failure", err)
	}

	stored, _ := f.repo.FindByID(context.Background(), refund.ID)
	if stored.Status != enums.RefundStatusFailed {
		t.Fatalf("refund status = %s, want failed", stored.Status)
	}
	if len(f.escrows.restored) != 0 {
		t.Fatal("escrow must stay parked after a failed movement")
	}
	if len(f.escrows.settled) != 0 {
		t.Fatal("no escrow settlement may happen on failure")
	}
}

func TestApproveMissingIntentFailsWithoutGatewayCall(t *testing.T) {
	f := newRefundsFixture(t)
	f.payment.GatewayIntentID = nil
	f.pays.put(f.payment)
	refund := f.request(t, nil)

	_, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionApprove,
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeSettlementFailure {
		t.Fatalf("err = %v, want settlement failure", err)
	}
	if f.gateway.calls != 0 {
		t.Fatalf("gateway called %d times, want 0", f.gateway.calls)
	}
}

func TestApproveCompletedRefundIsNoop(t *testing.T) {
	f := newRefundsFixture(t)
	refund := f.request(t, nil)

	input := ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionApprove,
		Note:     adminNote("verified"),
	}
	if _, err := f.svc.Process(context.Background(), input); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	replay, err := f.svc.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Status != enums.RefundStatusCompleted {
		t.Fatalf("status = %s, want completed", replay.Status)
	}
	if f.gateway.calls != 1 {
		t.Fatalf("gateway called %d times, want 1", f.gateway.calls)
	}
}

func TestApproveRecoversRefundStuckInProcessing(t *testing.T) {
	f := newRefundsFixture(t)
	refund := f.request(t, nil)

	// A crash after the processing commit leaves the refund mid-flight
	// with no gateway movement recorded.
	stored, _ := f.repo.FindByID(context.Background(), refund.ID)
	stored.Status = enums.RefundStatusProcessing
	if err := f.repo.Update(context.Background(), stored); err != nil {
		t.Fatalf("force processing: %v", err)
	}

	settled, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionApprove,
		Note:     adminNote("retrying after worker restart"),
	})
	if err != nil {
		t.Fatalf("approve retry: %v", err)
	}
	if settled.Status != enums.RefundStatusCompleted {
		t.Fatalf("status = %s, want completed", settled.Status)
	}
	if f.gateway.calls != 1 {
		t.Fatalf("gateway called %d times, want 1", f.gateway.calls)
	}
	if len(f.escrows.settled) != 1 {
		t.Fatalf("escrow settled %d times, want 1", len(f.escrows.settled))
	}
}

func TestApproveSendsStableIdempotencyKey(t *testing.T) {
	f := newRefundsFixture(t)
	refund := f.request(t, nil)

	if _, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionApprove,
		Note:     adminNote("verified"),
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	want := "refund-" + refund.ID.String()
	if len(f.gateway.keys) != 1 || f.gateway.keys[0] != want {
		t.Fatalf("idempotency keys = %v, want [%s]", f.gateway.keys, want)
	}
}

func TestRejectRestoresEscrow(t *testing.T) {
	f := newRefundsFixture(t)
	refund := f.request(t, nil)

	rejected, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionReject,
		Note:     adminNote("delivery confirmed by client chat"),
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.RefundStatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}
	if rejected.AdminID == nil || *rejected.AdminID != f.admin {
		t.Fatal("admin not recorded")
	}
	if len(f.escrows.restored) != 1 {
		t.Fatalf("escrow restored %d times, want 1", len(f.escrows.restored))
	}
	if f.gateway.calls != 0 {
		t.Fatal("rejection must not touch the gateway")
	}
}

func TestRejectRequiresNote(t *testing.T) {
	f := newRefundsFixture(t)
	refund := f.request(t, nil)

	_, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.admin, Role: enums.UserRoleAdmin},
		Action:   ProcessActionReject,
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestProcessForbiddenForNonAdmin(t *testing.T) {
	f := newRefundsFixture(t)
	refund := f.request(t, nil)

	_, err := f.svc.Process(context.Background(), ProcessInput{
		RefundID: refund.ID,
		Actor:    orders.Actor{UserID: f.client, Role: enums.UserRoleClient},
		Action:   ProcessActionApprove,
	})
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}
