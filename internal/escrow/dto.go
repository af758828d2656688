package escrow

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// EscrowDTO is the transport shape of a held payment.
type EscrowDTO struct {
	ID               uuid.UUID          `json:"id"`
	PaymentID        uuid.UUID          `json:"payment_id"`
	OrderID          uuid.UUID          `json:"order_id"`
	FreelancerID     uuid.UUID          `json:"freelancer_id"`
	AmountCents      int64              `json:"amount_cents"`
	PlatformFeeCents int64              `json:"platform_fee_cents"`
	Status           enums.EscrowStatus `json:"status"`
	HeldAt           time.Time          `json:"held_at"`
	ReleasedAt       *time.Time         `json:"released_at,omitempty"`
	Notes            *string            `json:"notes,omitempty"`
}

func FromModel(e *models.Escrow) *EscrowDTO {
	if e == nil {
		return nil
	}
	return &EscrowDTO{
		ID:               e.ID,
		PaymentID:        e.PaymentID,
		OrderID:          e.OrderID,
		FreelancerID:     e.FreelancerID,
		AmountCents:      e.AmountCents,
		PlatformFeeCents: e.PlatformFeeCents,
		Status:           e.Status,
		HeldAt:           e.HeldAt,
		ReleasedAt:       e.ReleasedAt,
		Notes:            e.Notes,
	}
}
