// Package payloads mirrors the event schemas the services pack into
// outbox rows. The publisher decodes against these types before
// anything leaves the database, so a malformed payload dead-letters
// instead of reaching subscribers.
package payloads

import (
	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once when an order is opened.
type OrderCreatedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	ClientID          uuid.UUID `json:"client_id"`
	FreelancerID      uuid.UUID `json:"freelancer_id"`
	ServicePackageID  uuid.UUID `json:"service_package_id"`
	PriceCents        int64     `json:"price_cents"`
	TotalPayableCents int64     `json:"total_payable_cents"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	ClientID     uuid.UUID         `json:"client_id"`
	FreelancerID uuid.UUID         `json:"freelancer_id"`
	FromStatus   enums.OrderStatus `json:"from_status"`
	ToStatus     enums.OrderStatus `json:"to_status"`
	Event        enums.OrderEvent  `json:"event"`
}

// PaymentEvent carries the state of one payment attempt.
type PaymentEvent struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	OrderID       uuid.UUID           `json:"order_id"`
	ClientID      uuid.UUID           `json:"client_id"`
	InvoiceNumber string              `json:"invoice_number"`
	AmountCents   int64               `json:"amount_cents"`
	Status        enums.PaymentStatus `json:"status"`
}

// EscrowEvent carries the state of one escrow hold.
type EscrowEvent struct {
	EscrowID     uuid.UUID          `json:"escrow_id"`
	OrderID      uuid.UUID          `json:"order_id"`
	PaymentID    uuid.UUID          `json:"payment_id"`
	FreelancerID uuid.UUID          `json:"freelancer_id"`
	AmountCents  int64              `json:"amount_cents"`
	Status       enums.EscrowStatus `json:"status"`
}

// RefundEvent carries the state of one refund request.
type RefundEvent struct {
	RefundID    uuid.UUID          `json:"refund_id"`
	PaymentID   uuid.UUID          `json:"payment_id"`
	ClientID    uuid.UUID          `json:"client_id"`
	AmountCents int64              `json:"amount_cents"`
	Status      enums.RefundStatus `json:"status"`
}

// WithdrawalEvent carries the state of one payout request.
type WithdrawalEvent struct {
	WithdrawalID     uuid.UUID              `json:"withdrawal_id"`
	FreelancerID     uuid.UUID              `json:"freelancer_id"`
	GrossAmountCents int64                  `json:"gross_amount_cents"`
	NetAmountCents   int64                  `json:"net_amount_cents"`
	Status           enums.WithdrawalStatus `json:"status"`
}

// ConfigUpdatedEvent records an audited platform configuration change.
type ConfigUpdatedEvent struct {
	Key      string `json:"key"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}
