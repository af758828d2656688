package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// PaymentDTO is the transport shape of a payment attempt. Gateway
// identifiers stay internal.
type PaymentDTO struct {
	ID               uuid.UUID           `json:"id"`
	OrderID          uuid.UUID           `json:"order_id"`
	InvoiceNumber    string              `json:"invoice_number"`
	AmountCents      int64               `json:"amount_cents"`
	PlatformFeeCents int64               `json:"platform_fee_cents"`
	GatewayFeeCents  int64               `json:"gateway_fee_cents"`
	Method           enums.PaymentMethod `json:"method"`
	Status           enums.PaymentStatus `json:"status"`
	PaymentURL       *string             `json:"payment_url,omitempty"`
	ExpiresAt        time.Time           `json:"expires_at"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	FailureReason    *string             `json:"failure_reason,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

func FromModel(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	return &PaymentDTO{
		ID:               p.ID,
		OrderID:          p.OrderID,
		InvoiceNumber:    p.InvoiceNumber,
		AmountCents:      p.AmountCents,
		PlatformFeeCents: p.PlatformFeeCents,
		GatewayFeeCents:  p.GatewayFeeCents,
		Method:           p.Method,
		Status:           p.Status,
		PaymentURL:       p.PaymentURL,
		ExpiresAt:        p.ExpiresAt,
		PaidAt:           p.PaidAt,
		FailureReason:    p.FailureReason,
		CreatedAt:        p.CreatedAt,
	}
}

func FromModels(items []models.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}
