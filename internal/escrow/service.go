// Package escrow guards funds between payment success and release.
// Exactly one escrow exists per successful payment; the held amount is
// the order's base price, with the platform fee retained outside it.
package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/ledger"
	"github.com/widyatama/jasaku-backend/internal/orders"
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

// orderDriver is the slice of the order lifecycle escrow needs when an
// admin release must also move the order forward.
type orderDriver interface {
	Get(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error)
	ApplyTx(ctx context.Context, tx *gorm.DB, input orders.ApplyInput) (*models.Order, error)
}

// Service owns escrow state transitions. The Tx-suffixed methods join
// a caller-owned transaction; Release runs its own.
type Service interface {
	// HoldTx opens the escrow for a successful payment. Replayed
	// callbacks hit the existing row and get it back unchanged.
	HoldTx(ctx context.Context, tx *gorm.DB, input HoldInput) (*models.Escrow, error)
	// Release settles a held or disputed escrow in the freelancer's
	// favor and completes the order unless it is already terminal.
	// Releasing an already released escrow is a no-op returning the row.
	Release(ctx context.Context, input ReleaseInput) (*models.Escrow, error)
	// ReleaseForOrderTx releases the held escrow of an order that just
	// completed through client approval. The order row is already
	// final, so no lifecycle event is driven.
	ReleaseForOrderTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor orders.Actor) (*models.Escrow, error)
	// MarkDisputedTx freezes a held escrow while a dispute is open.
	MarkDisputedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor orders.Actor) error
	// MoveToRefundPendingTx parks the escrow while a refund request is
	// in flight, remembering where it came from.
	MoveToRefundPendingTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID) (*models.Escrow, error)
	// RestorePriorTx puts a refund_pending escrow back to its prior
	// status after the refund is rejected.
	RestorePriorTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID) (*models.Escrow, error)
	// SettleRefundTx removes the refunded amount from a refund_pending
	// escrow. A full settlement closes the escrow as refunded; a
	// partial one restores the prior status with the remainder held.
	SettleRefundTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID, amountCents int64) (escrow *models.Escrow, closed bool, err error)

	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error)
	GetByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Escrow, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	ledger  ledger.Service
	ordersv orderDriver
	now     func() time.Time
}

// HoldInput captures the payment settlement data the escrow records.
type HoldInput struct {
	PaymentID        uuid.UUID
	OrderID          uuid.UUID
	FreelancerID     uuid.UUID
	AmountCents      int64
	PlatformFeeCents int64
	Actor            orders.Actor
}

// ReleaseInput identifies the disputed escrow an admin settles.
type ReleaseInput struct {
	OrderID uuid.UUID
	Actor   orders.Actor
	Notes   *string
}

// EscrowEvent is the payload for escrow outbox events.
type EscrowEvent struct {
	EscrowID     uuid.UUID          `json:"escrow_id"`
	OrderID      uuid.UUID          `json:"order_id"`
	PaymentID    uuid.UUID          `json:"payment_id"`
	FreelancerID uuid.UUID          `json:"freelancer_id"`
	AmountCents  int64              `json:"amount_cents"`
	Status       enums.EscrowStatus `json:"status"`
}

// NewService builds the escrow service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, ledgerSvc ledger.Service, ordersSvc orderDriver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("order driver required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		ledger:  ledgerSvc,
		ordersv: ordersSvc,
		now:     time.Now,
	}, nil
}

func (s *service) HoldTx(ctx context.Context, tx *gorm.DB, input HoldInput) (*models.Escrow, error) {
	if input.PaymentID == uuid.Nil || input.OrderID == uuid.Nil || input.FreelancerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment, order and freelancer ids required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "held amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindByPaymentID(ctx, input.PaymentID)
	if err == nil {
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up escrow by payment")
	}

	escrow := &models.Escrow{
		ID:               uuid.New(),
		PaymentID:        input.PaymentID,
		OrderID:          input.OrderID,
		FreelancerID:     input.FreelancerID,
		AmountCents:      input.AmountCents,
		PlatformFeeCents: input.PlatformFeeCents,
		Status:           enums.EscrowStatusHeld,
		HeldAt:           s.now().UTC(),
	}
	if err := repo.Create(ctx, escrow); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create escrow")
	}

	if err := s.emit(ctx, tx, enums.EventEscrowHeld, escrow, input.Actor); err != nil {
		return nil, err
	}
	return escrow, nil
}

func (s *service) Release(ctx context.Context, input ReleaseInput) (*models.Escrow, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.Role != enums.UserRoleAdmin && input.Actor.Role != enums.UserRoleSystem {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may force a release")
	}

	var out *models.Escrow
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		escrow, err := repo.FindByOrderIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found for order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
		}
		if escrow.Status == enums.EscrowStatusReleased {
			out = escrow
			return nil
		}
		if escrow.Status != enums.EscrowStatusHeld && escrow.Status != enums.EscrowStatusDisputed {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow is not releasable in its current state")
		}

		if err := s.releaseLocked(ctx, tx, escrow, input.Actor, input.Notes); err != nil {
			return err
		}

		order, err := s.ordersv.Get(ctx, escrow.OrderID, input.Actor)
		if err != nil {
			return err
		}
		if !order.Status.IsTerminal() {
			if _, err := s.ordersv.ApplyTx(ctx, tx, orders.ApplyInput{
				OrderID: escrow.OrderID,
				Event:   enums.OrderEventEscrowReleased,
				Actor:   input.Actor,
				Reason:  input.Notes,
			}); err != nil {
				return err
			}
		}
		out = escrow
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ReleaseForOrderTx(ctx context.Context, tx *gorm.DB, order *models.Order, actor orders.Actor) (*models.Escrow, error) {
	repo := s.repo.WithTx(tx)
	escrow, err := repo.FindByOrderIDForUpdate(ctx, order.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	if escrow.Status == enums.EscrowStatusReleased {
		return escrow, nil
	}
	if escrow.Status != enums.EscrowStatusHeld {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow is not releasable in its current state")
	}
	if err := s.releaseLocked(ctx, tx, escrow, actor, nil); err != nil {
		return nil, err
	}
	return escrow, nil
}

// releaseLocked flips the locked escrow to released and credits the
// freelancer. Callers have already validated the source status.
func (s *service) releaseLocked(ctx context.Context, tx *gorm.DB, escrow *models.Escrow, actor orders.Actor, notes *string) error {
	now := s.now().UTC()
	escrow.Status = enums.EscrowStatusReleased
	escrow.PriorStatus = nil
	escrow.ReleasedAt = &now
	if notes != nil {
		escrow.Notes = notes
	}
	if err := s.repo.WithTx(tx).Update(ctx, escrow); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow")
	}

	if err := s.ledger.Credit(ctx, tx, ledger.MovementInput{
		FreelancerID: escrow.FreelancerID,
		AmountCents:  escrow.AmountCents,
		EscrowID:     &escrow.ID,
		ActorUserID:  actor.UserID,
	}); err != nil {
		return err
	}
	return s.emit(ctx, tx, enums.EventEscrowReleased, escrow, actor)
}

func (s *service) MarkDisputedTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, actor orders.Actor) error {
	repo := s.repo.WithTx(tx)
	escrow, err := repo.FindByOrderIDForUpdate(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found for order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	switch escrow.Status {
	case enums.EscrowStatusDisputed, enums.EscrowStatusRefundPending:
		return nil
	case enums.EscrowStatusHeld:
	default:
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow cannot be disputed in its current state")
	}

	escrow.Status = enums.EscrowStatusDisputed
	if err := repo.Update(ctx, escrow); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow")
	}
	return s.emit(ctx, tx, enums.EventEscrowDisputed, escrow, actor)
}

func (s *service) MoveToRefundPendingTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID) (*models.Escrow, error) {
	repo := s.repo.WithTx(tx)
	escrow, err := repo.FindByIDForUpdate(ctx, escrowID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	if escrow.Status == enums.EscrowStatusRefundPending {
		return escrow, nil
	}
	if escrow.Status != enums.EscrowStatusHeld && escrow.Status != enums.EscrowStatusDisputed {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow cannot enter refund in its current state")
	}

	prior := escrow.Status
	escrow.PriorStatus = &prior
	escrow.Status = enums.EscrowStatusRefundPending
	if err := repo.Update(ctx, escrow); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow")
	}
	return escrow, nil
}

func (s *service) RestorePriorTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID) (*models.Escrow, error) {
	repo := s.repo.WithTx(tx)
	escrow, err := repo.FindByIDForUpdate(ctx, escrowID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	if escrow.Status != enums.EscrowStatusRefundPending {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow has no pending refund to unwind")
	}

	restored := enums.EscrowStatusHeld
	if escrow.PriorStatus != nil {
		restored = *escrow.PriorStatus
	}
	escrow.Status = restored
	escrow.PriorStatus = nil
	if err := repo.Update(ctx, escrow); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow")
	}
	return escrow, nil
}

func (s *service) SettleRefundTx(ctx context.Context, tx *gorm.DB, escrowID uuid.UUID, amountCents int64) (*models.Escrow, bool, error) {
	if amountCents <= 0 {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	escrow, err := repo.FindByIDForUpdate(ctx, escrowID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	if escrow.Status != enums.EscrowStatusRefundPending {
		return nil, false, pkgerrors.New(pkgerrors.CodeInvalidTransition, "escrow has no pending refund to settle")
	}
	if amountCents > escrow.AmountCents {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "refund exceeds held amount")
	}

	escrow.AmountCents -= amountCents
	closed := escrow.AmountCents == 0
	if closed {
		escrow.Status = enums.EscrowStatusRefunded
		escrow.PriorStatus = nil
	} else {
		restored := enums.EscrowStatusHeld
		if escrow.PriorStatus != nil {
			restored = *escrow.PriorStatus
		}
		escrow.Status = restored
		escrow.PriorStatus = nil
	}
	if err := repo.Update(ctx, escrow); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow")
	}
	return escrow, closed, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Escrow, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	escrow, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	return escrow, nil
}

func (s *service) GetByPayment(ctx context.Context, paymentID uuid.UUID) (*models.Escrow, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	escrow, err := s.repo.FindByPaymentID(ctx, paymentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found for payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	return escrow, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, escrow *models.Escrow, actor orders.Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateEscrow,
		AggregateID:   escrow.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: EscrowEvent{
			EscrowID:     escrow.ID,
			OrderID:      escrow.OrderID,
			PaymentID:    escrow.PaymentID,
			FreelancerID: escrow.FreelancerID,
			AmountCents:  escrow.AmountCents,
			Status:       escrow.Status,
		},
	})
}
