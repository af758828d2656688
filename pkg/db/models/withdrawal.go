package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// Withdrawal is a freelancer payout request against released escrow funds.
// The gross amount is reserved from the freelancer balance at request time.
type Withdrawal struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FreelancerID        uuid.UUID              `gorm:"column:freelancer_id;type:uuid;not null;index"`
	GrossAmountCents    int64                  `gorm:"column:gross_amount_cents;not null"`
	FeeCents            int64                  `gorm:"column:fee_cents;not null"`
	NetAmountCents      int64                  `gorm:"column:net_amount_cents;not null"`
	BankName            string                 `gorm:"column:bank_name;not null"`
	BankAccountNumber   string                 `gorm:"column:bank_account_number;not null"`
	BankAccountName     string                 `gorm:"column:bank_account_name;not null"`
	Status              enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status_enum;not null;default:'pending'"`
	AdminID             *uuid.UUID             `gorm:"column:admin_id;type:uuid"`
	AdminNote           *string                `gorm:"column:admin_note"`
	TransferEvidenceURL *string                `gorm:"column:transfer_evidence_url"`
	ProcessedAt         *time.Time             `gorm:"column:processed_at"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
