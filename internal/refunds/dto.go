package refunds

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// RefundDTO is the transport shape of a refund request.
type RefundDTO struct {
	ID          uuid.UUID          `json:"id"`
	PaymentID   uuid.UUID          `json:"payment_id"`
	ClientID    uuid.UUID          `json:"client_id"`
	AmountCents int64              `json:"amount_cents"`
	Reason      string             `json:"reason"`
	Status      enums.RefundStatus `json:"status"`
	AdminNote   *string            `json:"admin_note,omitempty"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
	SettledAt   *time.Time         `json:"settled_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func FromModel(r *models.Refund) *RefundDTO {
	if r == nil {
		return nil
	}
	return &RefundDTO{
		ID:          r.ID,
		PaymentID:   r.PaymentID,
		ClientID:    r.ClientID,
		AmountCents: r.AmountCents,
		Reason:      r.Reason,
		Status:      r.Status,
		AdminNote:   r.AdminNote,
		ProcessedAt: r.ProcessedAt,
		SettledAt:   r.SettledAt,
		CreatedAt:   r.CreatedAt,
	}
}

func FromModels(items []models.Refund) []RefundDTO {
	out := make([]RefundDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}
