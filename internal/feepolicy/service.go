// Package feepolicy turns base prices into fee breakdowns using the
// current platform configuration. It is the only place fee percentages
// are applied, so every component shares one rounding rule.
package feepolicy

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/widyatama/jasaku-backend/pkg/db/models"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/money"
)

// ConfigReader exposes the typed reads the policy needs.
type ConfigReader interface {
	Percent(ctx context.Context, key string) (decimal.Decimal, error)
	Amount(ctx context.Context, key string) (int64, error)
}

// FeeBreakdown is the fee split for one order price.
//
// The client pays TotalPayable = base + platform fee + gateway fee.
// Escrow holds the full base price; the platform retains the platform
// fee and the gateway keeps its own fee.
type FeeBreakdown struct {
	BasePrice    int64 `json:"base_price"`
	PlatformFee  int64 `json:"platform_fee"`
	GatewayFee   int64 `json:"gateway_fee"`
	TotalPayable int64 `json:"total_payable"`
}

// Service computes fee breakdowns and withdrawal fees.
type Service interface {
	ComputeFees(ctx context.Context, basePrice int64) (FeeBreakdown, error)
	WithdrawalFee(ctx context.Context, gross int64) (fee int64, net int64, err error)
	WithdrawalMinimum(ctx context.Context) (int64, error)
}

type service struct {
	config ConfigReader
}

// NewService wires a fee policy backed by platform configuration.
func NewService(config ConfigReader) (Service, error) {
	if config == nil {
		return nil, fmt.Errorf("config reader required")
	}
	return &service{config: config}, nil
}

func (s *service) ComputeFees(ctx context.Context, basePrice int64) (FeeBreakdown, error) {
	if basePrice <= 0 {
		return FeeBreakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
	}

	platformRate, err := s.config.Percent(ctx, models.ConfigKeyPlatformFeePercent)
	if err != nil {
		return FeeBreakdown{}, err
	}
	gatewayRate, err := s.config.Percent(ctx, models.ConfigKeyGatewayFeePercent)
	if err != nil {
		return FeeBreakdown{}, err
	}

	platformFee := money.ApplyPercent(basePrice, platformRate)
	gatewayFee := money.ApplyPercent(basePrice, gatewayRate)

	return FeeBreakdown{
		BasePrice:    basePrice,
		PlatformFee:  platformFee,
		GatewayFee:   gatewayFee,
		TotalPayable: basePrice + platformFee + gatewayFee,
	}, nil
}

func (s *service) WithdrawalFee(ctx context.Context, gross int64) (int64, int64, error) {
	if gross <= 0 {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "gross amount must be positive")
	}
	rate, err := s.config.Percent(ctx, models.ConfigKeyWithdrawalFeePercent)
	if err != nil {
		return 0, 0, err
	}
	fee := money.ApplyPercent(gross, rate)
	return fee, gross - fee, nil
}

func (s *service) WithdrawalMinimum(ctx context.Context) (int64, error) {
	return s.config.Amount(ctx, models.ConfigKeyWithdrawalMinimum)
}
