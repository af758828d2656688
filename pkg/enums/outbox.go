package enums

import "fmt"

// OutboxEventType names a domain event persisted through the outbox.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order.created"
	EventOrderStatusChanged  OutboxEventType = "order.status_changed"
	EventPaymentCreated      OutboxEventType = "payment.created"
	EventPaymentSucceeded    OutboxEventType = "payment.succeeded"
	EventPaymentFailed       OutboxEventType = "payment.failed"
	EventPaymentExpired      OutboxEventType = "payment.expired"
	EventEscrowHeld          OutboxEventType = "escrow.held"
	EventEscrowReleased      OutboxEventType = "escrow.released"
	EventEscrowDisputed      OutboxEventType = "escrow.disputed"
	EventRefundRequested     OutboxEventType = "refund.requested"
	EventRefundSettled       OutboxEventType = "refund.settled"
	EventRefundRejected      OutboxEventType = "refund.rejected"
	EventRefundFailed        OutboxEventType = "refund.failed"
	EventWithdrawalRequested OutboxEventType = "withdrawal.requested"
	EventWithdrawalCompleted OutboxEventType = "withdrawal.completed"
	EventWithdrawalRejected  OutboxEventType = "withdrawal.rejected"
	EventWithdrawalFailed    OutboxEventType = "withdrawal.failed"
	EventConfigUpdated       OutboxEventType = "platform_config.updated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventPaymentCreated,
	EventPaymentSucceeded,
	EventPaymentFailed,
	EventPaymentExpired,
	EventEscrowHeld,
	EventEscrowReleased,
	EventEscrowDisputed,
	EventRefundRequested,
	EventRefundSettled,
	EventRefundRejected,
	EventRefundFailed,
	EventWithdrawalRequested,
	EventWithdrawalCompleted,
	EventWithdrawalRejected,
	EventWithdrawalFailed,
	EventConfigUpdated,
}

// IsValid reports whether the value is a known OutboxEventType.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder          OutboxAggregateType = "order"
	AggregatePayment        OutboxAggregateType = "payment"
	AggregateEscrow         OutboxAggregateType = "escrow"
	AggregateRefund         OutboxAggregateType = "refund"
	AggregateWithdrawal     OutboxAggregateType = "withdrawal"
	AggregatePlatformConfig OutboxAggregateType = "platform_config"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateEscrow,
	AggregateRefund,
	AggregateWithdrawal,
	AggregatePlatformConfig,
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (t OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
