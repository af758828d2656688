// Package refunds returns paid funds to clients under admin control.
// A refund settles only after the gateway confirms the money movement;
// an approved refund whose gateway call fails lands in failed and the
// escrow stays parked rather than being reported as returned.
package refunds

import (
	"context"
	"fmt"
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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type escrowController interface {
	GetByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Escrow, error)
	MoveToRefundPendingTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID) (*models.Escrow, error)
	RestorePriorTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID) (*models.Escrow, error)
	SettleRefundTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID, amountCents int64) (*models.Escrow, bool, error)
}

type orderDriver interface {
	Get(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, input orders.ApplyInput) (*models.Order, error)
}

// Gateway moves refund money back through the payment gateway. The
// idempotency key makes re-issuing the same refund after a crash safe;
// the gateway returns the original movement instead of a second one.
type Gateway interface {
	CreateRefund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string, metadata map[string]string) (refundID string, err error)
}

// ProcessAction is the admin's verdict on a pending refund.
type ProcessAction string

const (
	ProcessActionApprove ProcessAction = "approve"
	ProcessActionReject  ProcessAction = "reject"
)

// Service is the refund workflow.
type Service interface {
	// Request opens a refund against a paid payment and parks its
	// escrow. The amount defaults to the full remaining held amount.
	Request(ctx context.Context, input RequestInput) (*models.Refund, error)
	// Process applies an admin verdict. Approval runs the gateway
	// movement and settles escrow, payment and order only after the
	// gateway confirms.
	Process(ctx context.Context, input ProcessInput) (*models.Refund, error)

	Get(ctx context.Context, refundID uuid.UUID, actor orders.Actor) (*models.Refund, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Refund, int64, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Refund, int64, error)
}

type service struct {
	repo     Repository
	payments payments.Repository
	tx       txRunner
	outbox   outboxPublisher
	escrow   escrowController
	ordersv  orderDriver
	gateway  Gateway
	now      func() time.Time
}

// RequestInput opens one refund request.
type RequestInput struct {
	PaymentID   uuid.UUID
	Actor       orders.Actor
	Reason      string
	AmountCents *int64
}

// ProcessInput carries one admin verdict.
type ProcessInput struct {
	RefundID uuid.UUID
	Actor    orders.Actor
	Action   ProcessAction
	Note     *string
}

// RefundEvent is the payload for refund outbox events.
type RefundEvent struct {
	RefundID    uuid.UUID          `json:"refund_id"`
	PaymentID   uuid.UUID          `json:"payment_id"`
	ClientID    uuid.UUID          `json:"client_id"`
	AmountCents int64              `json:"amount_cents"`
	Status      enums.RefundStatus `json:"status"`
}

// NewService builds the refund workflow.
func NewService(repo Repository, paymentsRepo payments.Repository, tx txRunner, outboxSvc outboxPublisher, escrowSvc escrowController, ordersSvc orderDriver, gateway Gateway) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("order lifecycle required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("refund gateway required")
	}
	return &service{
		repo:     repo,
		payments: paymentsRepo,
		tx:       tx,
		outbox:   outboxSvc,
		escrow:   escrowSvc,
		ordersv:  ordersSvc,
		gateway:  gateway,
		now:      time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Refund, error) {
	if input.PaymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}
	if input.AmountCents != nil && *input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var out *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		payment, err := s.payments.WithTx(tx).FindByIDForUpdate(ctx, input.PaymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if input.Actor.Role == enums.UserRoleClient && payment.ClientID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payment does not belong to client")
		}
		if payment.Status != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "only a successful payment can be refunded")
		}

		active, err := s.repo.WithTx(tx).HasActiveByPayment(ctx, payment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active refunds")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment already has a refund in flight")
		}

		held, err := s.escrow.GetByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		if held.AmountCents <= 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "payment has no refundable balance left")
		}

		amount := held.AmountCents
		if input.AmountCents != nil {
			amount = *input.AmountCents
		}
		if amount > held.AmountCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds the remaining refundable balance")
		}

		if _, err := s.escrow.MoveToRefundPendingTx(ctx, tx, held.ID); err != nil {
			return err
		}

		refund := &models.Refund{
			ID:          uuid.New(),
			PaymentID:   payment.ID,
			EscrowID:    &held.ID,
			ClientID:    payment.ClientID,
			AmountCents: amount,
			Reason:      input.Reason,
			Status:      enums.RefundStatusPending,
			RequestedAt: s.now().UTC(),
		}
		if err := s.repo.WithTx(tx).Create(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
		}
		if err := s.emit(ctx, tx, enums.EventRefundRequested, refund, input.Actor); err != nil {
			return err
		}
		out = refund
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) Process(ctx context.Context, input ProcessInput) (*models.Refund, error) {
	if input.RefundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	if input.Actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may process refunds")
	}

	switch input.Action {
	case ProcessActionApprove:
		return s.approve(ctx, input)
	case ProcessActionReject:
		return s.reject(ctx, input)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown refund action")
	}
}

func (s *service) reject(ctx context.Context, input ProcessInput) (*models.Refund, error) {
	if input.Note == nil || *input.Note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection requires an admin note")
	}

	var out *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		refund, err := s.lockRefund(ctx, tx, input.RefundID)
		if err != nil {
			return err
		}
		if refund.Status == enums.RefundStatusRejected {
			out = refund
			return nil
		}
		if refund.Status != enums.RefundStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "refund is not awaiting a verdict")
		}

		now := s.now().UTC()
		refund.Status = enums.RefundStatusRejected
		refund.AdminID = &input.Actor.UserID
		refund.AdminNote = input.Note
		refund.ProcessedAt = &now
		if err := s.repo.WithTx(tx).Update(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund")
		}

		if refund.EscrowID != nil {
			if _, err := s.escrow.RestorePriorTx(ctx, tx, *refund.EscrowID); err != nil {
				return err
			}
		}
		if err := s.emit(ctx, tx, enums.EventRefundRejected, refund, input.Actor); err != nil {
			return err
		}
		out = refund
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// approve moves the refund to processing, runs the gateway movement,
// then settles or fails depending on the gateway's answer. The
// processing state is committed before the external call so a crash
// mid-movement is visible; a later approve finds the refund processing
// and re-issues the gateway movement under the same idempotency key,
// so a stuck refund always has an admin exit.
func (s *service) approve(ctx context.Context, input ProcessInput) (*models.Refund, error) {
	var refund *models.Refund
	var payment *models.Payment

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		locked, err := s.lockRefund(ctx, tx, input.RefundID)
		if err != nil {
			return err
		}
		switch locked.Status {
		case enums.RefundStatusCompleted:
			refund = locked
			return nil
		case enums.RefundStatusPending, enums.RefundStatusProcessing:
		default:
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "refund is not awaiting a verdict")
		}

		payment, err = s.payments.WithTx(tx).FindByID(ctx, locked.PaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		now := s.now().UTC()
		locked.Status = enums.RefundStatusProcessing
		locked.AdminID = &input.Actor.UserID
		locked.AdminNote = input.Note
		locked.ProcessedAt = &now
		if err := s.repo.WithTx(tx).Update(ctx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund")
		}
		refund = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	if refund.Status == enums.RefundStatusCompleted {
		return refund, nil
	}

	if payment.GatewayIntentID == nil {
		return s.fail(ctx, refund, input.Actor, "payment has no gateway settlement reference")
	}
	gatewayRefundID, err := s.gateway.CreateRefund(ctx, *payment.GatewayIntentID, refund.AmountCents, refundIdempotencyKey(refund.ID), map[string]string{
		"refund_id":  refund.ID.String(),
		"payment_id": refund.PaymentID.String(),
	})
	if err != nil {
		return s.fail(ctx, refund, input.Actor, err.Error())
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		// Re-lock before settling: a concurrent retry may have
		// finished first, and escrow must shrink exactly once.
		locked, err := s.lockRefund(ctx, tx, refund.ID)
		if err != nil {
			return err
		}
		if locked.Status == enums.RefundStatusCompleted {
			refund = locked
			return nil
		}

		now := s.now().UTC()
		locked.Status = enums.RefundStatusCompleted
		locked.GatewayRefundID = &gatewayRefundID
		locked.SettledAt = &now
		if err := s.repo.WithTx(tx).Update(ctx, locked); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund")
		}
		refund = locked

		closed := false
		if refund.EscrowID != nil {
			_, escrowClosed, err := s.escrow.SettleRefundTx(ctx, tx, *refund.EscrowID, refund.AmountCents)
			if err != nil {
				return err
			}
			closed = escrowClosed
		}

		if closed {
			payment.Status = enums.PaymentStatusRefunded
			if err := s.payments.WithTx(tx).Update(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment refunded")
			}

			system := orders.Actor{UserID: input.Actor.UserID, Role: enums.UserRoleSystem}
			order, err := s.ordersv.Get(ctx, payment.OrderID, system)
			if err != nil {
				return err
			}
			if !order.Status.IsTerminal() {
				if _, err := s.ordersv.ApplyTx(ctx, tx, orders.ApplyInput{
					OrderID: payment.OrderID,
					Event:   enums.OrderEventRefundSettled,
					Actor:   system,
					Reason:  input.Note,
				}); err != nil {
					return err
				}
			}
		}
		return s.emit(ctx, tx, enums.EventRefundSettled, refund, input.Actor)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// fail records a terminal failed refund after the gateway declined or
// the movement could not be attempted. The escrow stays refund_pending
// for a follow-up request.
func (s *service) fail(ctx context.Context, refund *models.Refund, actor orders.Actor, reason string) (*models.Refund, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		refund.Status = enums.RefundStatusFailed
		note := reason
		refund.AdminNote = &note
		if err := s.repo.WithTx(tx).Update(ctx, refund); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update refund")
		}
		return s.emit(ctx, tx, enums.EventRefundFailed, refund, actor)
	})
	if err != nil {
		return nil, err
	}
	return refund, pkgerrors.New(pkgerrors.CodeSettlementFailure, "gateway refund failed: "+reason)
}

// refundIdempotencyKey is stable per refund, so a re-issued gateway
// call after a crash dedupes to the original money movement.
func refundIdempotencyKey(id uuid.UUID) string {
	return "refund-" + id.String()
}

func (s *service) lockRefund(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Refund, error) {
	refund, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	return refund, nil
}

func (s *service) Get(ctx context.Context, refundID uuid.UUID, actor orders.Actor) (*models.Refund, error) {
	if refundID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id required")
	}
	refund, err := s.repo.FindByID(ctx, refundID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refund")
	}
	if actor.Role == enums.UserRoleClient && refund.ClientID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "refund does not belong to client")
	}
	return refund, nil
}

func (s *service) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]models.Refund, int64, error) {
	if clientID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByClient(ctx, clientID, limit, offset)
}

func (s *service) ListPending(ctx context.Context, limit, offset int) ([]models.Refund, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByStatus(ctx, enums.RefundStatusPending, limit, offset)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, refund *models.Refund, actor orders.Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateRefund,
		AggregateID:   refund.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: RefundEvent{
			RefundID:    refund.ID,
			PaymentID:   refund.PaymentID,
			ClientID:    refund.ClientID,
			AmountCents: refund.AmountCents,
			Status:      refund.Status,
		},
	})
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
