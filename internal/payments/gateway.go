package payments

import (
	"context"
	"time"

	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgstripe "github.com/widyatama/jasaku-backend/pkg/stripe"
)

// Gateway is the slice of the payment gateway the processor needs.
type Gateway interface {
	CreateSession(ctx context.Context, input SessionInput) (*Session, error)
	GetSession(ctx context.Context, transactionID string) (*Session, error)
}

// SessionInput describes one hosted payment request.
type SessionInput struct {
	ReferenceID string
	ProductName string
	AmountCents int64
	Method      enums.PaymentMethod
	ExpiresAt   time.Time
	Metadata    map[string]string
}

// Session mirrors the gateway's view of one payment attempt.
type Session struct {
	TransactionID string
	PaymentURL    string
	IntentID      string
	Paid          bool
	Expired       bool
	ExpiresAt     time.Time
}

type stripeGateway struct {
	client     *pkgstripe.Client
	currency   string
	successURL string
	cancelURL  string
}

// NewStripeGateway adapts the shared Stripe client to the processor.
func NewStripeGateway(client *pkgstripe.Client, currency, successURL, cancelURL string) Gateway {
	return &stripeGateway{
		client:     client,
		currency:   currency,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func (g *stripeGateway) CreateSession(ctx context.Context, input SessionInput) (*Session, error) {
	created, err := g.client.CreateCheckoutSession(ctx, pkgstripe.CheckoutSessionInput{
		ReferenceID:        input.ReferenceID,
		ProductName:        input.ProductName,
		AmountCents:        input.AmountCents,
		Currency:           g.currency,
		SuccessURL:         g.successURL,
		CancelURL:          g.cancelURL,
		ExpiresAt:          input.ExpiresAt,
		PaymentMethodTypes: methodTypes(input.Method),
		Metadata:           input.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return fromCheckoutSession(created), nil
}

func (g *stripeGateway) GetSession(ctx context.Context, transactionID string) (*Session, error) {
	found, err := g.client.GetCheckoutSession(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return fromCheckoutSession(found), nil
}

func fromCheckoutSession(s *pkgstripe.CheckoutSession) *Session {
	return &Session{
		TransactionID: s.ID,
		PaymentURL:    s.URL,
		IntentID:      s.PaymentIntentID,
		Paid:          s.PaymentStatus == "paid",
		Expired:       s.Status == "expired",
		ExpiresAt:     s.ExpiresAt,
	}
}

// methodTypes narrows the hosted page to the channel the client picked.
// Unmapped channels let the gateway offer its default set.
func methodTypes(method enums.PaymentMethod) []string {
	switch method {
	case enums.PaymentMethodCard:
		return []string{"card"}
	case enums.PaymentMethodEWallet:
		return []string{"link"}
	default:
		return nil
	}
}
