package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Refund is a client request to return paid funds, settled by an admin.
type Refund struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID       uuid.UUID          `gorm:"column:payment_id;type:uuid;not null;index"`
	EscrowID        *uuid.UUID         `gorm:"column:escrow_id;type:uuid"`
	ClientID        uuid.UUID          `gorm:"column:client_id;type:uuid;not null"`
	AmountCents     int64              `gorm:"column:amount_cents;not null"`
	Reason          string             `gorm:"column:reason;not null"`
	Status          enums.RefundStatus `gorm:"column:status;type:refund_status_enum;not null;default:'pending'"`
	AdminID         *uuid.UUID         `gorm:"column:admin_id;type:uuid"`
	AdminNote       *string            `gorm:"column:admin_note"`
	GatewayRefundID *string            `gorm:"column:gateway_refund_id"`
	RequestedAt     time.Time          `gorm:"column:requested_at;not null"`
	ProcessedAt     *time.Time         `gorm:"column:processed_at"`
	SettledAt       *time.Time         `gorm:"column:settled_at"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
