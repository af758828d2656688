package cron

import (
	"context"
	"fmt"

	"github.com/widyatama/jasaku-backend/pkg/logger"
	"gorm.io/gorm"
)

const defaultExpirySweepLimit = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type staleLedgerSweeper interface {
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// PaymentExpiryJobParams configure the pending payment sweep.
type PaymentExpiryJobParams struct {
	Logger   *logger.Logger
	Payments staleLedgerSweeper
	Limit    int
}

// NewPaymentExpiryJob builds the cron job that expires stale payment
// attempts. The sweep polls the gateway per attempt, so late successes
// settle instead of being marked expired.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultExpirySweepLimit
	}
	return &paymentExpiryJob{
		logg:     params.Logger,
		payments: params.Payments,
		limit:    limit,
	}, nil
}

type paymentExpiryJob struct {
	logg     *logger.Logger
	payments staleLedgerSweeper
	limit    int
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	expired, err := j.payments.ExpireStale(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("payment expiry sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"limit":        j.limit,
		"rows_expired": expired,
	})
	j.logg.Info(logCtx, "payment expiry sweep complete")
	return nil
}
