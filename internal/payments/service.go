// Package payments collects an order's total payable through the
// gateway's hosted pages and settles the result. Callback handling is
// idempotent per gateway transaction id; escrow is opened only after
// the payment row has durably flipped to paid in the same transaction.
package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/escrow"
	"github.com/widyatama/jasaku-backend/internal/orders"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/logger"
	"github.com/widyatama/jasaku-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderLifecycle interface {
	Get(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error)
	GetForUpdateTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor orders.Actor) (*models.Order, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, input orders.ApplyInput) (*models.Order, error)
}

type escrowHolder interface {
	HoldTx(ctx context.Context, tx *gorm.DB, input escrow.HoldInput) (*models.Escrow, error)
}

// CallbackKind is the gateway's verdict on one transaction.
type CallbackKind string

const (
	CallbackSucceeded CallbackKind = "succeeded"
	CallbackFailed    CallbackKind = "failed"
	CallbackExpired   CallbackKind = "expired"
)

// Service is the payment processor.
type Service interface {
	// CreatePayment opens (or returns the still-live) payment attempt
	// for an awaiting_payment order.
	CreatePayment(ctx context.Context, input CreateInput) (*models.Payment, error)
	// HandleCallback applies a gateway verdict. Replays of an already
	// applied verdict return the payment unchanged.
	HandleCallback(ctx context.Context, input CallbackInput) (*models.Payment, error)
	// ExpireStale sweeps pending payments past their window, polling
	// the gateway first so a late success is settled instead of lost.
	ExpireStale(ctx context.Context, limit int) (expired int, err error)

	Get(ctx context.Context, paymentID uuid.UUID, actor orders.Actor) (*models.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) ([]models.Payment, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	gateway Gateway
	ordersv orderLifecycle
	escrow  escrowHolder
	logg    *logger.Logger
	window  time.Duration
	now     func() time.Time
}

// CreateInput identifies the order and channel for a payment attempt.
type CreateInput struct {
	OrderID uuid.UUID
	Actor   orders.Actor
	Method  enums.PaymentMethod
}

// CallbackInput carries one gateway verdict.
type CallbackInput struct {
	TransactionID string
	Kind          CallbackKind
	IntentID      string
	FailureReason *string
}

// PaymentEvent is the payload for payment outbox events.
type PaymentEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	OrderID       uuid.UUID           `json:"order_id"`
	ClientID      uuid.UUID           `json:"client_id"`
	InvoiceNumber string              `json:"invoice_number"`
	AmountCents   int64               `json:"amount_cents"`
	Status        enums.PaymentStatus `json:"status"`
}

// NewService builds the payment processor.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, gateway Gateway, ordersSvc orderLifecycle, escrowSvc escrowHolder, logg *logger.Logger, expiryWindow time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("order lifecycle required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if expiryWindow <= 0 {
		expiryWindow = 24 * time.Hour
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		gateway: gateway,
		ordersv: ordersSvc,
		escrow:  escrowSvc,
		logg:    logg,
		window:  expiryWindow,
		now:     time.Now,
	}, nil
}

func (s *service) CreatePayment(ctx context.Context, input CreateInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	var out *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now().UTC()

		// The order is locked for the whole attempt so a callback
		// settling a concurrent attempt cannot slip between the
		// status check and the insert.
		order, err := s.ordersv.GetForUpdateTx(ctx, tx, input.OrderID, input.Actor)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusAwaitingPayment {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is not awaiting payment")
		}

		pending, err := repo.FindPendingByOrderForUpdate(ctx, order.ID)
		if err == nil {
			if pending.ExpiresAt.After(now) {
				out = pending
				return nil
			}
			pending.Status = enums.PaymentStatusSuperseded
			if err := repo.Update(ctx, pending); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede stale payment")
			}
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up pending payment")
		}

		attempts, err := repo.CountByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count payment attempts")
		}

		payment := &models.Payment{
			ID:               uuid.New(),
			OrderID:          order.ID,
			ClientID:         order.ClientID,
			InvoiceNumber:    invoiceNumber(now),
			AmountCents:      order.TotalPayableCents,
			PlatformFeeCents: order.PlatformFeeCents,
			GatewayFeeCents:  order.GatewayFeeCents,
			Method:           input.Method,
			Status:           enums.PaymentStatusPending,
			ExpiresAt:        now.Add(s.window),
			RetryCount:       int(attempts),
		}

		session, err := s.gateway.CreateSession(ctx, SessionInput{
			ReferenceID: payment.ID.String(),
			ProductName: order.Title,
			AmountCents: payment.AmountCents,
			Method:      input.Method,
			ExpiresAt:   payment.ExpiresAt,
			Metadata: map[string]string{
				"order_id":   order.ID.String(),
				"payment_id": payment.ID.String(),
				"invoice":    payment.InvoiceNumber,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeSettlementFailure, err, "open gateway session")
		}
		payment.GatewayTransactionID = &session.TransactionID
		payment.PaymentURL = &session.PaymentURL
		if !session.ExpiresAt.IsZero() {
			payment.ExpiresAt = session.ExpiresAt
		}

		if err := repo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		if err := s.emit(ctx, tx, enums.EventPaymentCreated, payment, input.Actor); err != nil {
			return err
		}
		out = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) HandleCallback(ctx context.Context, input CallbackInput) (*models.Payment, error) {
	if input.TransactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway transaction id required")
	}

	var out *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByTransactionIDForUpdate(ctx, input.TransactionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found for transaction")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		switch input.Kind {
		case CallbackSucceeded:
			out, err = s.settleSuccess(ctx, tx, payment, input)
		case CallbackFailed:
			out, err = s.settleFailure(ctx, tx, payment, input)
		case CallbackExpired:
			out, err = s.settleExpiry(ctx, tx, payment)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "unknown callback kind")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) settleSuccess(ctx context.Context, tx *gorm.DB, payment *models.Payment, input CallbackInput) (*models.Payment, error) {
	if payment.Status == enums.PaymentStatusPaid {
		return payment, nil
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment is not settleable in its current state")
	}

	repo := s.repo.WithTx(tx)
	now := s.now().UTC()
	payment.Status = enums.PaymentStatusPaid
	payment.PaidAt = &now
	if input.IntentID != "" {
		payment.GatewayIntentID = &input.IntentID
	}
	if err := repo.Update(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment paid")
	}

	actor := orders.Actor{UserID: payment.ClientID, Role: enums.UserRoleSystem}
	order, err := s.ordersv.ApplyTx(ctx, tx, orders.ApplyInput{
		OrderID: payment.OrderID,
		Event:   enums.OrderEventPaymentSucceeded,
		Actor:   actor,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.escrow.HoldTx(ctx, tx, escrow.HoldInput{
		PaymentID:        payment.ID,
		OrderID:          order.ID,
		FreelancerID:     order.FreelancerID,
		AmountCents:      order.PriceCents,
		PlatformFeeCents: order.PlatformFeeCents,
		Actor:            actor,
	}); err != nil {
		return nil, err
	}

	if err := s.emit(ctx, tx, enums.EventPaymentSucceeded, payment, actor); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) settleFailure(ctx context.Context, tx *gorm.DB, payment *models.Payment, input CallbackInput) (*models.Payment, error) {
	if payment.Status == enums.PaymentStatusFailed {
		return payment, nil
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment is not settleable in its current state")
	}

	payment.Status = enums.PaymentStatusFailed
	payment.FailureReason = input.FailureReason
	if err := s.repo.WithTx(tx).Update(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
	}
	actor := orders.Actor{UserID: payment.ClientID, Role: enums.UserRoleSystem}
	if err := s.emit(ctx, tx, enums.EventPaymentFailed, payment, actor); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) settleExpiry(ctx context.Context, tx *gorm.DB, payment *models.Payment) (*models.Payment, error) {
	if payment.Status == enums.PaymentStatusExpired {
		return payment, nil
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment is not settleable in its current state")
	}

	payment.Status = enums.PaymentStatusExpired
	if err := s.repo.WithTx(tx).Update(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment expired")
	}
	actor := orders.Actor{UserID: payment.ClientID, Role: enums.UserRoleSystem}
	if err := s.emit(ctx, tx, enums.EventPaymentExpired, payment, actor); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) ExpireStale(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	stale, err := s.repo.ListExpiredPending(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired pending payments")
	}

	expired := 0
	for _, payment := range stale {
		if payment.GatewayTransactionID == nil {
			continue
		}
		txnID := *payment.GatewayTransactionID

		kind := CallbackExpired
		intentID := ""
		session, err := s.gateway.GetSession(ctx, txnID)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "payment expiry sweep could not poll gateway", err)
			}
		} else if session.Paid {
			kind = CallbackSucceeded
			intentID = session.IntentID
		}

		if _, err := s.HandleCallback(ctx, CallbackInput{
			TransactionID: txnID,
			Kind:          kind,
			IntentID:      intentID,
		}); err != nil {
			if kind == CallbackSucceeded && pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeInvalidTransition {
				// The order settled through another attempt while this
				// one collected money at the gateway. Park the attempt
				// terminally so the sweep stops re-polling it and an
				// operator refunds the duplicate charge.
				if qErr := s.quarantineUnsettleable(ctx, txnID, err); qErr != nil && s.logg != nil {
					s.logg.Error(ctx, "payment expiry sweep could not quarantine unsettleable payment", qErr)
				}
				continue
			}
			if s.logg != nil {
				s.logg.Error(ctx, "payment expiry sweep could not settle payment", err)
			}
			continue
		}
		if kind == CallbackExpired {
			expired++
		}
	}
	return expired, nil
}

func (s *service) quarantineUnsettleable(ctx context.Context, transactionID string, cause error) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByTransactionIDForUpdate(ctx, transactionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			return nil
		}
		reason := "paid at gateway but order is no longer settleable: " + cause.Error()
		payment.Status = enums.PaymentStatusSuperseded
		payment.FailureReason = &reason
		if err := repo.Update(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quarantine payment")
		}
		if s.logg != nil {
			logCtx := s.logg.WithField(ctx, "payment_id", payment.ID.String())
			logCtx = s.logg.WithField(logCtx, "gateway_transaction_id", transactionID)
			s.logg.Warn(logCtx, "payment collected at gateway without a settleable order; manual refund required")
		}
		return nil
	})
	return err
}

func (s *service) Get(ctx context.Context, paymentID uuid.UUID, actor orders.Actor) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if actor.Role == enums.UserRoleClient && payment.ClientID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to client")
	}
	return payment, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) ([]models.Payment, error) {
	if _, err := s.ordersv.Get(ctx, orderID, actor); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return payments, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, payment *models.Payment, actor orders.Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: PaymentEvent{
			PaymentID:     payment.ID,
			OrderID:       payment.OrderID,
			ClientID:      payment.ClientID,
			InvoiceNumber: payment.InvoiceNumber,
			AmountCents:   payment.AmountCents,
			Status:        payment.Status,
		},
	})
}

// invoiceNumber builds a human-readable unique invoice reference.
func invoiceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	return fmt.Sprintf("INV/%s/%s", now.Format("20060102"), suffix)
}
