// Package withdrawals pays released escrow funds out to freelancers.
// The gross amount is reserved from the ledger the moment the request
// is accepted, so two concurrent requests cannot spend the same funds.
package withdrawals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/internal/ledger"
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

type balanceMover interface {
	Reserve(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) error
	Reverse(ctx context.Context, tx *gorm.DB, input ledger.MovementInput) error
}

type feeReader interface {
	WithdrawalFee(ctx context.Context, gross int64) (fee int64, net int64, err error)
	WithdrawalMinimum(ctx context.Context) (int64, error)
}

// ProcessAction is the admin's verdict on a pending withdrawal.
type ProcessAction string

const (
	ProcessActionApprove ProcessAction = "approve"
	ProcessActionReject  ProcessAction = "reject"
	ProcessActionFail    ProcessAction = "fail"
)

// Actor identifies who is performing a withdrawal operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service is the payout workflow.
type Service interface {
	// Request opens a payout and reserves the gross amount from the
	// freelancer's available balance in the same transaction.
	Request(ctx context.Context, input RequestInput) (*models.Withdrawal, error)
	// Process applies an admin verdict. Approval records the transfer
	// evidence and consumes the reservation; rejection and bank
	// failure return the reserved amount to the balance.
	Process(ctx context.Context, input ProcessInput) (*models.Withdrawal, error)

	Get(ctx context.Context, withdrawalID uuid.UUID, actor Actor) (*models.Withdrawal, error)
	ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.Withdrawal, int64, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Withdrawal, int64, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	moves  balanceMover
	fees   feeReader
	now    func() time.Time
}

// RequestInput opens one payout request.
type RequestInput struct {
	FreelancerID      uuid.UUID
	AmountCents       int64
	BankName          string
	BankAccountNumber string
	BankAccountName   string
}

// ProcessInput carries one admin verdict.
type ProcessInput struct {
	WithdrawalID        uuid.UUID
	Actor               Actor
	Action              ProcessAction
	Note                *string
	TransferEvidenceURL *string
}

// WithdrawalEvent is the payload for withdrawal outbox events.
type WithdrawalEvent struct {
	WithdrawalID     uuid.UUID              `json:"withdrawal_id"`
	FreelancerID     uuid.UUID              `json:"freelancer_id"`
	GrossAmountCents int64                  `json:"gross_amount_cents"`
	NetAmountCents   int64                  `json:"net_amount_cents"`
	Status           enums.WithdrawalStatus `json:"status"`
}

// NewService builds the payout workflow.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, moves balanceMover, fees feeReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if moves == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if fees == nil {
		return nil, fmt.Errorf("fee policy required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		moves:  moves,
		fees:   fees,
		now:    time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.Withdrawal, error) {
	if input.FreelancerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}
	if input.BankName == "" || input.BankAccountNumber == "" || input.BankAccountName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank account details required")
	}

	minimum, err := s.fees.WithdrawalMinimum(ctx)
	if err != nil {
		return nil, err
	}
	if input.AmountCents < minimum {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("withdrawal amount is below the minimum of %d", minimum))
	}

	fee, net, err := s.fees.WithdrawalFee(ctx, input.AmountCents)
	if err != nil {
		return nil, err
	}

	withdrawal := &models.Withdrawal{
		ID:                uuid.New(),
		FreelancerID:      input.FreelancerID,
		GrossAmountCents:  input.AmountCents,
		FeeCents:          fee,
		NetAmountCents:    net,
		BankName:          input.BankName,
		BankAccountNumber: input.BankAccountNumber,
		BankAccountName:   input.BankAccountName,
		Status:            enums.WithdrawalStatusPending,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.moves.Reserve(ctx, tx, ledger.MovementInput{
			FreelancerID: input.FreelancerID,
			AmountCents:  input.AmountCents,
			WithdrawalID: &withdrawal.ID,
			ActorUserID:  input.FreelancerID,
		}); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, withdrawal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal")
		}
		return s.emit(ctx, tx, enums.EventWithdrawalRequested, withdrawal,
			Actor{UserID: input.FreelancerID, Role: enums.UserRoleFreelancer})
	})
	if err != nil {
		return nil, err
	}
	return withdrawal, nil
}

func (s *service) Process(ctx context.Context, input ProcessInput) (*models.Withdrawal, error) {
	if input.WithdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	if input.Actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may process withdrawals")
	}

	switch input.Action {
	case ProcessActionApprove, ProcessActionReject, ProcessActionFail:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown withdrawal action")
	}
	if input.Action == ProcessActionApprove && (input.TransferEvidenceURL == nil || *input.TransferEvidenceURL == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "approval requires transfer evidence")
	}
	if input.Action != ProcessActionApprove && (input.Note == nil || *input.Note == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a note is required when turning down a withdrawal")
	}

	var out *models.Withdrawal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		withdrawal, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, input.WithdrawalID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
		}

		// Replaying the same verdict is a no-op so retried admin
		// actions do not double-move the reservation.
		if replayed(withdrawal.Status, input.Action) {
			out = withdrawal
			return nil
		}
		if withdrawal.Status != enums.WithdrawalStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "withdrawal is not awaiting a verdict")
		}

		now := s.now().UTC()
		withdrawal.AdminID = &input.Actor.UserID
		withdrawal.AdminNote = input.Note
		withdrawal.ProcessedAt = &now

		var eventType enums.OutboxEventType
		switch input.Action {
		case ProcessActionApprove:
			withdrawal.Status = enums.WithdrawalStatusCompleted
			withdrawal.TransferEvidenceURL = input.TransferEvidenceURL
			eventType = enums.EventWithdrawalCompleted
		case ProcessActionReject:
			withdrawal.Status = enums.WithdrawalStatusRejected
			eventType = enums.EventWithdrawalRejected
		case ProcessActionFail:
			withdrawal.Status = enums.WithdrawalStatusFailed
			eventType = enums.EventWithdrawalFailed
		}

		// Settlement consumes the reservation as-is; only a turndown
		// returns the money to the available balance.
		if withdrawal.Status != enums.WithdrawalStatusCompleted {
			if err := s.moves.Reverse(ctx, tx, ledger.MovementInput{
				FreelancerID: withdrawal.FreelancerID,
				AmountCents:  withdrawal.GrossAmountCents,
				WithdrawalID: &withdrawal.ID,
				ActorUserID:  input.Actor.UserID,
			}); err != nil {
				return err
			}
		}

		if err := s.repo.WithTx(tx).Update(ctx, withdrawal); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update withdrawal")
		}
		if err := s.emit(ctx, tx, eventType, withdrawal, input.Actor); err != nil {
			return err
		}
		out = withdrawal
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func replayed(status enums.WithdrawalStatus, action ProcessAction) bool {
	switch action {
	case ProcessActionApprove:
		return status == enums.WithdrawalStatusCompleted
	case ProcessActionReject:
		return status == enums.WithdrawalStatusRejected
	case ProcessActionFail:
		return status == enums.WithdrawalStatusFailed
	}
	return false
}

func (s *service) Get(ctx context.Context, withdrawalID uuid.UUID, actor Actor) (*models.Withdrawal, error) {
	if withdrawalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id required")
	}
	withdrawal, err := s.repo.FindByID(ctx, withdrawalID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal")
	}
	if actor.Role == enums.UserRoleFreelancer && withdrawal.FreelancerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "withdrawal does not belong to freelancer")
	}
	return withdrawal, nil
}

func (s *service) ListByFreelancer(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.Withdrawal, int64, error) {
	if freelancerID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "freelancer id required")
	}
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByFreelancer(ctx, freelancerID, limit, offset)
}

func (s *service) ListPending(ctx context.Context, limit, offset int) ([]models.Withdrawal, int64, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByStatus(ctx, enums.WithdrawalStatusPending, limit, offset)
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, withdrawal *models.Withdrawal, actor Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateWithdrawal,
		AggregateID:   withdrawal.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role},
		Data: WithdrawalEvent{
			WithdrawalID:     withdrawal.ID,
			FreelancerID:     withdrawal.FreelancerID,
			GrossAmountCents: withdrawal.GrossAmountCents,
			NetAmountCents:   withdrawal.NetAmountCents,
			Status:           withdrawal.Status,
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
