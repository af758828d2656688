package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/refund"
)

// CheckoutSessionInput describes one hosted payment page request.
type CheckoutSessionInput struct {
	ReferenceID        string
	ProductName        string
	AmountCents        int64
	Currency           string
	SuccessURL         string
	CancelURL          string
	ExpiresAt          time.Time
	PaymentMethodTypes []string
	Metadata           map[string]string
}

// CheckoutSession is the subset of the hosted session the platform stores.
type CheckoutSession struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   string
	PaymentIntentID string
	ExpiresAt       time.Time
}

// CreateCheckoutSession opens a hosted payment page for one payment attempt.
func (c *Client) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSession, error) {
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("checkout amount must be positive")
	}
	if input.Currency == "" {
		return nil, fmt.Errorf("checkout currency required")
	}

	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(input.SuccessURL),
		CancelURL:         stripe.String(input.CancelURL),
		ClientReferenceID: stripe.String(input.ReferenceID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(input.Currency),
					UnitAmount: stripe.Int64(input.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(input.ProductName),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if !input.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(input.ExpiresAt.Unix())
	}
	if len(input.PaymentMethodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(input.PaymentMethodTypes)
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}

	s, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripeSession(s), nil
}

// GetCheckoutSession fetches the current state of a hosted session, used
// by the expiry sweep to rule out late successes before expiring.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*CheckoutSession, error) {
	if id == "" {
		return nil, fmt.Errorf("session id required")
	}
	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}
	s, err := session.Get(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripeSession(s), nil
}

// RefundInput describes one gateway refund against a settled payment.
// IdempotencyKey, when set, makes repeated submissions return the
// original refund instead of moving money twice.
type RefundInput struct {
	PaymentIntentID string
	AmountCents     int64
	IdempotencyKey  string
	Metadata        map[string]string
}

// RefundResult is the gateway's answer to a refund request.
type RefundResult struct {
	ID     string
	Status string
}

// CreateRefund moves money back to the payer.
func (c *Client) CreateRefund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if input.PaymentIntentID == "" {
		return nil, fmt.Errorf("payment intent id required")
	}
	if input.AmountCents <= 0 {
		return nil, fmt.Errorf("refund amount must be positive")
	}

	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(input.PaymentIntentID),
		Amount:        stripe.Int64(input.AmountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}
	for key, value := range input.Metadata {
		params.AddMetadata(key, value)
	}

	r, err := refund.New(params)
	if err != nil {
		return nil, err
	}
	return &RefundResult{ID: r.ID, Status: string(r.Status)}, nil
}

func fromStripeSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return out
}
