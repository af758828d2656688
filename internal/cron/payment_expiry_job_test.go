package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/widyatama/jasaku-backend/pkg/logger"
)

func TestPaymentExpiryJobSweeps(t *testing.T) {
	sweeper := &fakeStaleSweeper{expired: 3}
	jobIface, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Payments: sweeper,
		Limit:    50,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.lastLimit != 50 {
		t.Fatalf("expected limit 50, got %d", sweeper.lastLimit)
	}
	if sweeper.called != 1 {
		t.Fatalf("expected sweeper called once, got %d", sweeper.called)
	}
}

func TestPaymentExpiryJobDefaultsLimit(t *testing.T) {
	sweeper := &fakeStaleSweeper{}
	jobIface, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Payments: sweeper,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.lastLimit != defaultExpirySweepLimit {
		t.Fatalf("expected default limit %d, got %d", defaultExpirySweepLimit, sweeper.lastLimit)
	}
}

func TestPaymentExpiryJobPropagatesError(t *testing.T) {
	sweeper := &fakeStaleSweeper{err: errors.New("gateway down")}
	jobIface, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Payments: sweeper,
	})
	if err != nil {
		t.Fatalf("NewPaymentExpiryJob: %v", err)
	}

	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeStaleSweeper struct {
	expired   int
	lastLimit int
	called    int
	err       error
}

func (f *fakeStaleSweeper) ExpireStale(ctx context.Context, limit int) (int, error) {
	f.called++
	f.lastLimit = limit
	if f.err != nil {
		return 0, f.err
	}
	return f.expired, nil
}
