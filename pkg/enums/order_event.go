package enums

import "fmt"

// OrderEvent names a trigger that can move an order between statuses.
type OrderEvent string

const (
	OrderEventPaymentSucceeded  OrderEvent = "payment_succeeded"
	OrderEventFreelancerAccept  OrderEvent = "freelancer_accept"
	OrderEventWorkSubmitted     OrderEvent = "work_submitted"
	OrderEventRevisionRequested OrderEvent = "revision_requested"
	OrderEventWorkApproved      OrderEvent = "work_approved"
	OrderEventEscrowReleased    OrderEvent = "escrow_released"
	OrderEventDisputeOpened     OrderEvent = "dispute_opened"
	OrderEventOrderCancelled    OrderEvent = "order_cancelled"
	OrderEventRefundSettled     OrderEvent = "refund_settled"
)

var validOrderEvents = []OrderEvent{
	OrderEventPaymentSucceeded,
	OrderEventFreelancerAccept,
	OrderEventWorkSubmitted,
	OrderEventRevisionRequested,
	OrderEventWorkApproved,
	OrderEventEscrowReleased,
	OrderEventDisputeOpened,
	OrderEventOrderCancelled,
	OrderEventRefundSettled,
}

// String implements fmt.Stringer.
func (e OrderEvent) String() string {
	return string(e)
}

// IsValid reports whether the value is a known OrderEvent.
func (e OrderEvent) IsValid() bool {
	for _, candidate := range validOrderEvents {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOrderEvent converts raw input into an OrderEvent.
func ParseOrderEvent(value string) (OrderEvent, error) {
	for _, candidate := range validOrderEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event %q", value)
}
