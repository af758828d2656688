package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Payment is one attempt at collecting an order's total payable.
// An order may accumulate several attempts over time; at most one may
// end up paid, and failed/expired attempts are superseded, never deleted.
type Payment struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID              uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ClientID             uuid.UUID           `gorm:"column:client_id;type:uuid;not null"`
	InvoiceNumber        string              `gorm:"column:invoice_number;not null;unique"`
	GatewayTransactionID *string             `gorm:"column:gateway_transaction_id;unique"`
	GatewayIntentID      *string             `gorm:"column:gateway_intent_id"`
	AmountCents          int64               `gorm:"column:amount_cents;not null"`
	PlatformFeeCents     int64               `gorm:"column:platform_fee_cents;not null"`
	GatewayFeeCents      int64               `gorm:"column:gateway_fee_cents;not null"`
	Method               enums.PaymentMethod `gorm:"column:method;type:payment_method_enum;not null"`
	Status               enums.PaymentStatus `gorm:"column:status;type:payment_status_enum;not null;default:'pending'"`
	PaymentURL           *string             `gorm:"column:payment_url"`
	ExpiresAt            time.Time           `gorm:"column:expires_at;not null"`
	PaidAt               *time.Time          `gorm:"column:paid_at"`
	RetryCount           int                 `gorm:"column:retry_count;not null;default:0"`
	FailureReason        *string             `gorm:"column:failure_reason"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
