package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Escrow holds a successful payment's base price until release or refund.
// The unique index on payment_id guarantees at most one escrow per payment
// even under replayed gateway callbacks. PriorStatus remembers where a
// refund_pending escrow came from so a rejected refund can restore it.
type Escrow struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID        uuid.UUID           `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:ux_escrows_payment_id"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	FreelancerID     uuid.UUID           `gorm:"column:freelancer_id;type:uuid;not null;index"`
	AmountCents      int64               `gorm:"column:amount_cents;not null"`
	PlatformFeeCents int64               `gorm:"column:platform_fee_cents;not null"`
	Status           enums.EscrowStatus  `gorm:"column:status;type:escrow_status_enum;not null;default:'held'"`
	PriorStatus      *enums.EscrowStatus `gorm:"column:prior_status;type:escrow_status_enum"`
	HeldAt           time.Time           `gorm:"column:held_at;not null"`
	ReleasedAt       *time.Time          `gorm:"column:released_at"`
	Notes            *string             `gorm:"column:notes"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
