package models

import (
	"time"

	"github.com/widyatama/jasaku-backend/pkg/enums"
)

// PlatformConfig is a tunable rate or threshold, written only through the
// audited admin configuration path.
type PlatformConfig struct {
	Key         string                `gorm:"column:key;primaryKey"`
	Value       string                `gorm:"column:value;not null"`
	ValueType   enums.ConfigValueType `gorm:"column:value_type;type:config_value_type_enum;not null"`
	Description *string               `gorm:"column:description"`
	Editable    bool                  `gorm:"column:editable;not null;default:true"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// Well-known configuration keys.
const (
	ConfigKeyPlatformFeePercent   = "platform_fee_percentage"
	ConfigKeyGatewayFeePercent    = "payment_gateway_fee_percentage"
	ConfigKeyWithdrawalFeePercent = "withdrawal_fee_percentage"
	ConfigKeyWithdrawalMinimum    = "withdrawal_minimum_amount"
	ConfigKeyPaymentExpiryHours   = "payment_expiry_hours"
)
