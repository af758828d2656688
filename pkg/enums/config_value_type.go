package enums

import "fmt"

// ConfigValueType declares how a platform_configs value string is interpreted.
type ConfigValueType string

const (
	ConfigValueTypePercent ConfigValueType = "percent"
	ConfigValueTypeAmount  ConfigValueType = "amount"
	ConfigValueTypeInt     ConfigValueType = "int"
	ConfigValueTypeBool    ConfigValueType = "bool"
	ConfigValueTypeString  ConfigValueType = "string"
)

var validConfigValueTypes = []ConfigValueType{
	ConfigValueTypePercent,
	ConfigValueTypeAmount,
	ConfigValueTypeInt,
	ConfigValueTypeBool,
	ConfigValueTypeString,
}

// IsValid reports whether the value is a known ConfigValueType.
func (c ConfigValueType) IsValid() bool {
	for _, candidate := range validConfigValueTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConfigValueType converts raw input into a ConfigValueType.
func ParseConfigValueType(value string) (ConfigValueType, error) {
	for _, candidate := range validConfigValueTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid config value type %q", value)
}
