package enums

import "fmt"

// LedgerEntryType maps to the ledger_entry_type_enum enum in Postgres.
// Credits raise a freelancer's available balance, debits lower it.
type LedgerEntryType string

const (
	LedgerEntryTypeEscrowRelease     LedgerEntryType = "escrow_release"
	LedgerEntryTypeWithdrawalReserve LedgerEntryType = "withdrawal_reserve"
	LedgerEntryTypeWithdrawalReverse LedgerEntryType = "withdrawal_reverse"
	LedgerEntryTypeAdminAdjustment   LedgerEntryType = "admin_adjustment"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryTypeEscrowRelease,
	LedgerEntryTypeWithdrawalReserve,
	LedgerEntryTypeWithdrawalReverse,
	LedgerEntryTypeAdminAdjustment,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
