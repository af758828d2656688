package withdrawals

import (
	"time"

	"github.com/google/uuid"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// WithdrawalDTO is the transport shape of a payout request. The account
// number is masked to its last four digits.
type WithdrawalDTO struct {
	ID                  uuid.UUID              `json:"id"`
	FreelancerID        uuid.UUID              `json:"freelancer_id"`
	GrossAmountCents    int64                  `json:"gross_amount_cents"`
	FeeCents            int64                  `json:"fee_cents"`
	NetAmountCents      int64                  `json:"net_amount_cents"`
	BankName            string                 `json:"bank_name"`
	BankAccountNumber   string                 `json:"bank_account_number"`
	BankAccountName     string                 `json:"bank_account_name"`
	Status              enums.WithdrawalStatus `json:"status"`
	AdminNote           *string                `json:"admin_note,omitempty"`
	TransferEvidenceURL *string                `json:"transfer_evidence_url,omitempty"`
	ProcessedAt         *time.Time             `json:"processed_at,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}

func FromModel(w *models.Withdrawal) *WithdrawalDTO {
	if w == nil {
		return nil
	}
	return &WithdrawalDTO{
		ID:                  w.ID,
		FreelancerID:        w.FreelancerID,
		GrossAmountCents:    w.GrossAmountCents,
		FeeCents:            w.FeeCents,
		NetAmountCents:      w.NetAmountCents,
		BankName:            w.BankName,
		BankAccountNumber:   maskAccountNumber(w.BankAccountNumber),
		BankAccountName:     w.BankAccountName,
		Status:              w.Status,
		AdminNote:           w.AdminNote,
		TransferEvidenceURL: w.TransferEvidenceURL,
		ProcessedAt:         w.ProcessedAt,
		CreatedAt:           w.CreatedAt,
	}
}

func FromModels(items []models.Withdrawal) []WithdrawalDTO {
	out := make([]WithdrawalDTO, 0, len(items))
	for i := range items {
		out = append(out, *FromModel(&items[i]))
	}
	return out
}

func maskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	masked := make([]byte, len(number)-4)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + number[len(number)-4:]
}
