package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Order is a client's purchase of a freelancer service package.
// Status is only mutated through the order lifecycle state machine;
// total_payable_cents = price_cents + platform_fee_cents + gateway_fee_cents.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID          uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	FreelancerID      uuid.UUID         `gorm:"column:freelancer_id;type:uuid;not null;index"`
	ServicePackageID  uuid.UUID         `gorm:"column:service_package_id;type:uuid;not null"`
	Title             string            `gorm:"column:title;not null"`
	Requirements      *string           `gorm:"column:requirements"`
	PriceCents        int64             `gorm:"column:price_cents;not null"`
	PlatformFeeCents  int64             `gorm:"column:platform_fee_cents;not null"`
	GatewayFeeCents   int64             `gorm:"column:gateway_fee_cents;not null"`
	TotalPayableCents int64             `gorm:"column:total_payable_cents;not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:order_status_enum;not null;default:'awaiting_payment'"`
	WorkDurationDays  int               `gorm:"column:work_duration_days;not null"`
	Deadline          *time.Time        `gorm:"column:deadline"`
	SubmittedAt       *time.Time        `gorm:"column:submitted_at"`
	CompletedAt       *time.Time        `gorm:"column:completed_at"`
	CancelledAt       *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
