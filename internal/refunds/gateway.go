package refunds

import (
	"context"

	pkgstripe "github.com/widyatama/jasaku-backend/pkg/stripe"
)

type stripeGateway struct {
	client *pkgstripe.Client
}

// NewStripeGateway adapts the Stripe client to the refund workflow.
func NewStripeGateway(client *pkgstripe.Client) Gateway {
	return &stripeGateway{client: client}
}

func (g *stripeGateway) CreateRefund(ctx context.Context, intentID string, amountCents int64, idempotencyKey string, metadata map[string]string) (string, error) {
	result, err := g.client.CreateRefund(ctx, pkgstripe.RefundInput{
		PaymentIntentID: intentID,
		AmountCents:     amountCents,
		IdempotencyKey:  idempotencyKey,
		Metadata:        metadata,
	})
	if err != nil {
		return "", err
	}
	return result.ID, nil
}
