package enums

import "fmt"

// EscrowStatus tracks platform-held funds between payment and release.
type EscrowStatus string

const (
	EscrowStatusHeld          EscrowStatus = "held"
	EscrowStatusReleased      EscrowStatus = "released"
	EscrowStatusCancelled     EscrowStatus = "cancelled"
	EscrowStatusRefundPending EscrowStatus = "refund_pending"
	EscrowStatusRefunded      EscrowStatus = "refunded"
	EscrowStatusDisputed      EscrowStatus = "disputed"
)

var validEscrowStatuses = []EscrowStatus{
	EscrowStatusHeld,
	EscrowStatusReleased,
	EscrowStatusCancelled,
	EscrowStatusRefundPending,
	EscrowStatusRefunded,
	EscrowStatusDisputed,
}

// String implements fmt.Stringer.
func (e EscrowStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EscrowStatus.
func (e EscrowStatus) IsValid() bool {
	for _, candidate := range validEscrowStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEscrowStatus converts raw input into an EscrowStatus.
func ParseEscrowStatus(value string) (EscrowStatus, error) {
	for _, candidate := range validEscrowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow status %q", value)
}
