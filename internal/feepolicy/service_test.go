package feepolicy

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
)

type fakeConfig struct {
	percents map[string]string
	amounts  map[string]int64
}

func (f *fakeConfig) Percent(ctx context.Context, key string) (decimal.Decimal, error) {
	raw, ok := f.percents[key]
	if !ok {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "missing key")
	}
	return decimal.NewFromString(raw)
}

func (f *fakeConfig) Amount(ctx context.Context, key string) (int64, error) {
	return f.amounts[key], nil
}

func defaultConfig() *fakeConfig {
	return &fakeConfig{
		percents: map[string]string{
			models.ConfigKeyPlatformFeePercent:   "5",
			models.ConfigKeyGatewayFeePercent:    "2.5",
			models.ConfigKeyWithdrawalFeePercent: "2.5",
		},
		amounts: map[string]int64{
			models.ConfigKeyWithdrawalMinimum: 50_000,
		},
	}
}

func TestComputeFees(t *testing.T) {
	svc, err := NewService(defaultConfig())
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	fees, err := svc.ComputeFees(context.Background(), 100_000)
	if err != nil {
		t.Fatalf("ComputeFees error: %v", err)
	}
	if fees.PlatformFee != 5_000 {
		t.Fatalf("platform fee = %d, want 5000", fees.PlatformFee)
	}
	if fees.GatewayFee != 2_500 {
		t.Fatalf("gateway fee = %d, want 2500", fees.GatewayFee)
	}
	if fees.TotalPayable != 107_500 {
		t.Fatalf("total payable = %d, want 107500", fees.TotalPayable)
	}
	if fees.TotalPayable != fees.BasePrice+fees.PlatformFee+fees.GatewayFee {
		t.Fatal("total payable must equal base plus fees")
	}
}

func TestComputeFeesRejectsNonPositivePrice(t *testing.T) {
	svc, _ := NewService(defaultConfig())
	for _, price := range []int64{0, -100} {
		_, err := svc.ComputeFees(context.Background(), price)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("price %d: expected validation error, got %v", price, err)
		}
	}
}

func TestWithdrawalFee(t *testing.T) {
	svc, _ := NewService(defaultConfig())

	fee, net, err := svc.WithdrawalFee(context.Background(), 200_000)
	if err != nil {
		t.Fatalf("WithdrawalFee error: %v", err)
	}
	if fee != 5_000 {
		t.Fatalf("fee = %d, want 5000", fee)
	}
	if net != 195_000 {
		t.Fatalf("net = %d, want 195000", net)
	}
}

func TestWithdrawalFeeRoundsHalfUp(t *testing.T) {
	cfg := defaultConfig()
	cfg.percents[models.ConfigKeyWithdrawalFeePercent] = "2.5"
	svc, _ := NewService(cfg)

	// 101 * 2.5% = 2.525 -> 3 under round-half-up.
	fee, net, err := svc.WithdrawalFee(context.Background(), 101)
	if err != nil {
		t.Fatalf("WithdrawalFee error: %v", err)
	}
	if fee != 3 || net != 98 {
		t.Fatalf("fee/net = %d/%d, want 3/98", fee, net)
	}
}
