// Package stripewebhook turns verified Stripe events into payment
// verdicts. Event IDs are deduplicated in redis before any handler
// runs, since Stripe redelivers events freely.
package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/widyatama/jasaku-backend/internal/payments"
	"github.com/widyatama/jasaku-backend/pkg/db/models"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/logger"
)

type paymentProcessor interface {
	HandleCallback(ctx context.Context, input payments.CallbackInput) (*models.Payment, error)
}

type ServiceParams struct {
	Payments paymentProcessor
	Guard    *IdempotencyGuard
	Logger   *logger.Logger
}

type Service struct {
	payments paymentProcessor
	guard    *IdempotencyGuard
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment processor required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		payments: params.Payments,
		guard:    params.Guard,
		logg:     params.Logger,
	}, nil
}

// HandleEvent maps one verified Stripe event onto the payment
// processor. Unrecognized event types are acknowledged and dropped.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	kind, ok := callbackKind(event.Type)
	if !ok {
		return nil
	}

	seen, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check")
	}
	if seen {
		s.logg.Info(s.logg.WithField(ctx, "event_id", event.ID), "duplicate stripe event skipped")
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
	}

	input := payments.CallbackInput{
		TransactionID: session.ID,
		Kind:          kind,
	}
	if session.PaymentIntent != nil {
		input.IntentID = session.PaymentIntent.ID
	}
	if kind == payments.CallbackFailed {
		reason := string(event.Type)
		input.FailureReason = &reason
	}

	if _, err := s.payments.HandleCallback(ctx, input); err != nil {
		// Drop the dedup mark so Stripe's redelivery retries the event.
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
			s.logg.Error(ctx, "release webhook idempotency key", delErr)
		}
		return err
	}
	return nil
}

func callbackKind(eventType stripe.EventType) (payments.CallbackKind, bool) {
	switch eventType {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		return payments.CallbackSucceeded, true
	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		return payments.CallbackFailed, true
	case stripe.EventTypeCheckoutSessionExpired:
		return payments.CallbackExpired, true
	default:
		return "", false
	}
}
