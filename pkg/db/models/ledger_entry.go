package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// LedgerEntry records an immutable movement on a freelancer's balance.
// Credits are positive, debits negative; the balance row must always
// equal the running sum of its entries.
type LedgerEntry struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FreelancerID uuid.UUID             `gorm:"column:freelancer_id;type:uuid;not null;index"`
	EntryType    enums.LedgerEntryType `gorm:"column:entry_type;type:ledger_entry_type_enum;not null"`
	AmountCents  int64                 `gorm:"column:amount_cents;not null"`
	EscrowID     *uuid.UUID            `gorm:"column:escrow_id;type:uuid"`
	WithdrawalID *uuid.UUID            `gorm:"column:withdrawal_id;type:uuid"`
	ActorUserID  uuid.UUID             `gorm:"column:actor_user_id;type:uuid;not null"`
	Metadata     json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
