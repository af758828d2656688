package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// BalanceDTO is the transport shape of a freelancer balance.
type BalanceDTO struct {
	FreelancerID   uuid.UUID `json:"freelancer_id"`
	AvailableCents int64     `json:"available_cents"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EntryDTO is one row of the balance statement.
type EntryDTO struct {
	ID           uuid.UUID             `json:"id"`
	EntryType    enums.LedgerEntryType `json:"entry_type"`
	AmountCents  int64                 `json:"amount_cents"`
	EscrowID     *uuid.UUID            `json:"escrow_id,omitempty"`
	WithdrawalID *uuid.UUID            `json:"withdrawal_id,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

func BalanceFromModel(b *models.FreelancerBalance) *BalanceDTO {
	if b == nil {
		return nil
	}
	return &BalanceDTO{
		FreelancerID:   b.FreelancerID,
		AvailableCents: b.AvailableCents,
		UpdatedAt:      b.UpdatedAt,
	}
}

func EntriesFromModels(items []models.LedgerEntry) []EntryDTO {
	out := make([]EntryDTO, 0, len(items))
	for _, e := range items {
		out = append(out, EntryDTO{
			ID:           e.ID,
			EntryType:    e.EntryType,
			AmountCents:  e.AmountCents,
			EscrowID:     e.EscrowID,
			WithdrawalID: e.WithdrawalID,
			CreatedAt:    e.CreatedAt,
		})
	}
	return out
}
