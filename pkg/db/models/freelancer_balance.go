package models

import (
	"time"

	"github.com/google/uuid"
)

// FreelancerBalance is the withdrawable balance row, updated only under a
// row lock and always alongside a LedgerEntry recording the movement.
type FreelancerBalance struct {
	FreelancerID   uuid.UUID `gorm:"column:freelancer_id;type:uuid;primaryKey"`
	AvailableCents int64     `gorm:"column:available_cents;not null;default:0"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
