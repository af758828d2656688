package orders

import (
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
)

// transitionTable is the single source of truth for the order state
// machine. An event absent from the current status' row is rejected.
var transitionTable = map[enums.OrderStatus]map[enums.OrderEvent]enums.OrderStatus{
	enums.OrderStatusAwaitingPayment: {
		enums.OrderEventPaymentSucceeded: enums.OrderStatusPaid,
		enums.OrderEventOrderCancelled:   enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaid: {
		enums.OrderEventFreelancerAccept: enums.OrderStatusInProgress,
		enums.OrderEventOrderCancelled:   enums.OrderStatusCancelled,
		enums.OrderEventDisputeOpened:    enums.OrderStatusDisputed,
		enums.OrderEventEscrowReleased:   enums.OrderStatusCompleted,
		enums.OrderEventRefundSettled:    enums.OrderStatusRefunded,
	},
	enums.OrderStatusInProgress: {
		enums.OrderEventWorkSubmitted:  enums.OrderStatusAwaitingReview,
		enums.OrderEventDisputeOpened:  enums.OrderStatusDisputed,
		enums.OrderEventEscrowReleased: enums.OrderStatusCompleted,
		enums.OrderEventRefundSettled:  enums.OrderStatusRefunded,
	},
	enums.OrderStatusAwaitingReview: {
		enums.OrderEventWorkApproved:      enums.OrderStatusCompleted,
		enums.OrderEventRevisionRequested: enums.OrderStatusRevision,
		enums.OrderEventDisputeOpened:     enums.OrderStatusDisputed,
		enums.OrderEventEscrowReleased:    enums.OrderStatusCompleted,
		enums.OrderEventRefundSettled:     enums.OrderStatusRefunded,
	},
	enums.OrderStatusRevision: {
		enums.OrderEventWorkSubmitted:  enums.OrderStatusAwaitingReview,
		enums.OrderEventDisputeOpened:  enums.OrderStatusDisputed,
		enums.OrderEventEscrowReleased: enums.OrderStatusCompleted,
		enums.OrderEventRefundSettled:  enums.OrderStatusRefunded,
	},
	enums.OrderStatusDisputed: {
		enums.OrderEventEscrowReleased: enums.OrderStatusCompleted,
		enums.OrderEventRefundSettled:  enums.OrderStatusRefunded,
	},
}

// eventRoles restricts who may drive each event. System actors bypass
// the check entirely; admins may additionally drive dispute resolution
// and cancellation events.
var eventRoles = map[enums.OrderEvent][]enums.UserRole{
	enums.OrderEventPaymentSucceeded:  {enums.UserRoleSystem},
	enums.OrderEventFreelancerAccept:  {enums.UserRoleFreelancer},
	enums.OrderEventWorkSubmitted:     {enums.UserRoleFreelancer},
	enums.OrderEventRevisionRequested: {enums.UserRoleClient},
	enums.OrderEventWorkApproved:      {enums.UserRoleClient},
	enums.OrderEventEscrowReleased:    {enums.UserRoleSystem, enums.UserRoleAdmin},
	enums.OrderEventDisputeOpened:     {enums.UserRoleClient, enums.UserRoleFreelancer, enums.UserRoleAdmin},
	enums.OrderEventOrderCancelled:    {enums.UserRoleClient, enums.UserRoleAdmin, enums.UserRoleSystem},
	enums.OrderEventRefundSettled:     {enums.UserRoleSystem},
}

// nextStatus resolves the target status for an event applied in the
// given state, or an INVALID_TRANSITION error.
func nextStatus(current enums.OrderStatus, event enums.OrderEvent) (enums.OrderStatus, error) {
	row, ok := transitionTable[current]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is in a terminal state")
	}
	target, ok := row[event]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeInvalidTransition, "event not allowed in current order state")
	}
	return target, nil
}

func roleAllowed(event enums.OrderEvent, role enums.UserRole) bool {
	if role == enums.UserRoleSystem {
		return true
	}
	allowed, ok := eventRoles[event]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
