package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit log of order transitions.
// Rows are never updated or deleted.
type OrderStatusHistory struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus enums.OrderStatus `gorm:"column:from_status;type:order_status_enum;not null"`
	ToStatus   enums.OrderStatus `gorm:"column:to_status;type:order_status_enum;not null"`
	Event      enums.OrderEvent  `gorm:"column:event;type:order_event_enum;not null"`
	ChangedBy  uuid.UUID         `gorm:"column:changed_by;type:uuid;not null"`
	Role       enums.UserRole    `gorm:"column:role;type:user_role_enum;not null"`
	Reason     *string           `gorm:"column:reason"`
	Metadata   json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
