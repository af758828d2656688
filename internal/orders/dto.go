package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// OrderDTO is the transport shape of an order.
type OrderDTO struct {
	ID                uuid.UUID         `json:"id"`
	ClientID          uuid.UUID         `json:"client_id"`
	FreelancerID      uuid.UUID         `json:"freelancer_id"`
	ServicePackageID  uuid.UUID         `json:"service_package_id"`
	Title             string            `json:"title"`
	Requirements      *string           `json:"requirements,omitempty"`
	PriceCents        int64             `json:"price_cents"`
	PlatformFeeCents  int64             `json:"platform_fee_cents"`
	GatewayFeeCents   int64             `json:"gateway_fee_cents"`
	TotalPayableCents int64             `json:"total_payable_cents"`
	Status            enums.OrderStatus `json:"status"`
	WorkDurationDays  int               `json:"work_duration_days"`
	Deadline          *time.Time        `json:"deadline,omitempty"`
	SubmittedAt       *time.Time        `json:"submitted_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// HistoryDTO is one audit row of the order lifecycle.
type HistoryDTO struct {
	ID         uuid.UUID         `json:"id"`
	OrderID    uuid.UUID         `json:"order_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	Event      enums.OrderEvent  `json:"event"`
	ChangedBy  uuid.UUID         `json:"changed_by"`
	Role       enums.UserRole    `json:"role"`
	Reason     *string           `json:"reason,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:                o.ID,
		ClientID:          o.ClientID,
		FreelancerID:      o.FreelancerID,
		ServicePackageID:  o.ServicePackageID,
		Title:             o.Title,
		Requirements:      o.Requirements,
		PriceCents:        o.PriceCents,
		PlatformFeeCents:  o.PlatformFeeCents,
		GatewayFeeCents:   o.GatewayFeeCents,
		TotalPayableCents: o.TotalPayableCents,
		Status:            o.Status,
		WorkDurationDays:  o.WorkDurationDays,
		Deadline:          o.Deadline,
		SubmittedAt:       o.SubmittedAt,
		CompletedAt:       o.CompletedAt,
		CancelledAt:       o.CancelledAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func FromModels(items []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}

func HistoryFromModels(items []models.OrderStatusHistory) []HistoryDTO {
	out := make([]HistoryDTO, 0, len(items))
	for _, h := range items {
		out = append(out, HistoryDTO{
			ID:         h.ID,
			OrderID:    h.OrderID,
			FromStatus: h.FromStatus,
			ToStatus:   h.ToStatus,
			Event:      h.Event,
			ChangedBy:  h.ChangedBy,
			Role:       h.Role,
			Reason:     h.Reason,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}
