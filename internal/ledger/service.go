// Package ledger keeps the freelancer balance and its audit trail in
// lockstep. Every balance mutation happens under a row lock and writes
// a matching immutable entry, so the balance always equals the running
// sum of its entries.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
)

// Service mutates freelancer balances. The mutation methods take the
// caller's transaction because credits and debits only make sense
// atomically coupled to the escrow or withdrawal write that caused them.
type Service interface {
	// Credit raises the balance on escrow release.
	Credit(ctx context.Context, tx *gorm.DB, input MovementInput) error
	// Reserve debits the balance when a withdrawal is requested,
	// failing with INSUFFICIENT_BALANCE when funds do not cover it.
	Reserve(ctx context.Context, tx *gorm.DB, input MovementInput) error
	// Reverse credits a previously reserved amount back after a
	// withdrawal is rejected or fails at the bank.
	Reverse(ctx context.Context, tx *gorm.DB, input MovementInput) error
	// Adjust applies a signed admin correction.
	Adjust(ctx context.Context, tx *gorm.DB, input MovementInput) error

	Balance(ctx context.Context, freelancerID uuid.UUID) (*models.FreelancerBalance, error)
	Statement(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.LedgerEntry, int64, error)
}

type service struct {
	repo Repository
}

// MovementInput describes one balance movement. AmountCents is always
// positive; the movement type decides the sign, except Adjust which
// takes the signed amount as-is.
type MovementInput struct {
	FreelancerID uuid.UUID
	AmountCents  int64
	EscrowID     *uuid.UUID
	WithdrawalID *uuid.UUID
	ActorUserID  uuid.UUID
	Metadata     json.RawMessage
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input MovementInput) error {
	if err := validateMovement(input); err != nil {
		return err
	}
	return s.apply(ctx, tx, input, enums.LedgerEntryTypeEscrowRelease, input.AmountCents)
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, input MovementInput) error {
	if err := validateMovement(input); err != nil {
		return err
	}
	return s.apply(ctx, tx, input, enums.LedgerEntryTypeWithdrawalReserve, -input.AmountCents)
}

func (s *service) Reverse(ctx context.Context, tx *gorm.DB, input MovementInput) error {
	if err := validateMovement(input); err != nil {
		return err
	}
	return s.apply(ctx, tx, input, enums.LedgerEntryTypeWithdrawalReverse, input.AmountCents)
}

func (s *service) Adjust(ctx context.Context, tx *gorm.DB, input MovementInput) error {
	if input.FreelancerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "freelancer id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AmountCents == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "adjustment amount must be non-zero")
	}
	return s.apply(ctx, tx, input, enums.LedgerEntryTypeAdminAdjustment, input.AmountCents)
}

// apply locks the balance row, checks the resulting balance never goes
// negative, then writes the new balance and its entry.
func (s *service) apply(ctx context.Context, tx *gorm.DB, input MovementInput, entryType enums.LedgerEntryType, delta int64) error {
	repo := s.repo.WithTx(tx)

	balance, err := repo.FindBalanceForUpdate(ctx, input.FreelancerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock freelancer balance")
	}

	next := balance.AvailableCents + delta
	if next < 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "available balance does not cover this amount")
	}

	balance.AvailableCents = next
	if err := repo.UpdateBalance(ctx, balance); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update freelancer balance")
	}

	entry := &models.LedgerEntry{
		ID:           uuid.New(),
		FreelancerID: input.FreelancerID,
		EntryType:    entryType,
		AmountCents:  delta,
		EscrowID:     input.EscrowID,
		WithdrawalID: input.WithdrawalID,
		ActorUserID:  input.ActorUserID,
		Metadata:     input.Metadata,
	}
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}
	return nil
}

func (s *service) Balance(ctx context.Context, freelancerID uuid.UUID) (*models.FreelancerBalance, error) {
	if freelancerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "freelancer id required")
	}
	balance, err := s.repo.FindBalance(ctx, freelancerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &models.FreelancerBalance{FreelancerID: freelancerID}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load freelancer balance")
	}
	return balance, nil
}

func (s *service) Statement(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]models.LedgerEntry, int64, error) {
	if freelancerID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "freelancer id required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := s.repo.ListEntries(ctx, freelancerID, limit, offset)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, total, nil
}

func validateMovement(input MovementInput) error {
	if input.FreelancerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "freelancer id required")
	}
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AmountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
